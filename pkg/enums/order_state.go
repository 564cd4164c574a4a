package enums

import "fmt"

// OrderState mirrors the lifecycle of a travel package order.
type OrderState string

const (
	OrderStatePending    OrderState = "Pending"
	OrderStateConfirmed  OrderState = "Confirmed"
	OrderStateUpcoming   OrderState = "Upcoming"
	OrderStateInProgress OrderState = "In Progress"
	OrderStateCompleted  OrderState = "Completed"
	OrderStateCancelled  OrderState = "Cancelled"
	OrderStateRefunded   OrderState = "Refunded"
)

var validOrderStates = []OrderState{
	OrderStatePending,
	OrderStateConfirmed,
	OrderStateUpcoming,
	OrderStateInProgress,
	OrderStateCompleted,
	OrderStateCancelled,
	OrderStateRefunded,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether reaching this state hands reserved stock back.
func (s OrderState) ReleasesStock() bool {
	return s == OrderStateCancelled || s == OrderStateRefunded
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}

// OrderLineProductType is the product family stored on an order line. It is
// free text so lines for product families without stock (packages, insurance)
// can coexist.
type OrderLineProductType string

const (
	OrderLineActivity       OrderLineProductType = "activity"
	OrderLineTransportation OrderLineProductType = "transportation"
	OrderLineLodgment       OrderLineProductType = "lodgment"
	OrderLineFlight         OrderLineProductType = "flight"
)

// String implements fmt.Stringer.
func (t OrderLineProductType) String() string {
	return string(t)
}
