package stock

import "github.com/travelmarket/tourism-backend/pkg/enums"

// A flight is its own availability; seats are tracked on the flights row.
func newFlightLedger() Ledger {
	return &columnLedger{
		productType: enums.ProductTypeFlight,
		table:       "flights",
		totalCol:    "capacity",
		counterCol:  "available_seats",
		mode:        countsAvailable,
	}
}
