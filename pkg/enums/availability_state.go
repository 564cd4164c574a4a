package enums

import "fmt"

// AvailabilityState marks whether an availability can still be booked.
type AvailabilityState string

const (
	AvailabilityStateActive    AvailabilityState = "active"
	AvailabilityStateCancelled AvailabilityState = "cancelled"
)

// String implements fmt.Stringer.
func (s AvailabilityState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AvailabilityState.
func (s AvailabilityState) IsValid() bool {
	return s == AvailabilityStateActive || s == AvailabilityStateCancelled
}

// ParseAvailabilityState converts raw input into an AvailabilityState.
func ParseAvailabilityState(value string) (AvailabilityState, error) {
	s := AvailabilityState(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid availability state %q", value)
	}
	return s, nil
}
