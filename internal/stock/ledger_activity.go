package stock

import "github.com/travelmarket/tourism-backend/pkg/enums"

func newActivityLedger() Ledger {
	return &columnLedger{
		productType: enums.ProductTypeActivity,
		table:       "activity_availabilities",
		totalCol:    "total_seats",
		counterCol:  "reserved_seats",
		mode:        countsReserved,
	}
}
