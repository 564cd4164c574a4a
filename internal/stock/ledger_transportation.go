package stock

import "github.com/travelmarket/tourism-backend/pkg/enums"

func newTransportationLedger() Ledger {
	return &columnLedger{
		productType: enums.ProductTypeTransportation,
		table:       "transportation_availabilities",
		totalCol:    "total_seats",
		counterCol:  "reserved_seats",
		mode:        countsReserved,
	}
}
