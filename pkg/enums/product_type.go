package enums

import "fmt"

// ProductType identifies the inventory family an availability record belongs to.
type ProductType string

const (
	ProductTypeActivity       ProductType = "activity"
	ProductTypeTransportation ProductType = "transportation"
	ProductTypeRoom           ProductType = "room"
	ProductTypeFlight         ProductType = "flight"
)

var validProductTypes = []ProductType{
	ProductTypeActivity,
	ProductTypeTransportation,
	ProductTypeRoom,
	ProductTypeFlight,
}

// ProductTypes returns every supported product type in dispatch order.
func ProductTypes() []ProductType {
	out := make([]ProductType, len(validProductTypes))
	copy(out, validProductTypes)
	return out
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
