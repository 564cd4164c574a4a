package stock

import "github.com/travelmarket/tourism-backend/pkg/enums"

// Rooms count down: available_quantity shrinks as units are booked.
func newRoomLedger() Ledger {
	return &columnLedger{
		productType: enums.ProductTypeRoom,
		table:       "room_availabilities",
		totalCol:    "max_quantity",
		counterCol:  "available_quantity",
		mode:        countsAvailable,
	}
}
