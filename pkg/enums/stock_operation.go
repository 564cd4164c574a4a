package enums

import "fmt"

// StockOperationType enumerates the operations recorded in the stock audit log.
type StockOperationType string

const (
	StockOperationReserve StockOperationType = "reserve"
	StockOperationRelease StockOperationType = "release"
	StockOperationCheck   StockOperationType = "check"
	StockOperationModify  StockOperationType = "modify"
	StockOperationCreate  StockOperationType = "create"
	StockOperationDelete  StockOperationType = "delete"
)

var validStockOperationTypes = []StockOperationType{
	StockOperationReserve,
	StockOperationRelease,
	StockOperationCheck,
	StockOperationModify,
	StockOperationCreate,
	StockOperationDelete,
}

// String implements fmt.Stringer.
func (o StockOperationType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known StockOperationType.
func (o StockOperationType) IsValid() bool {
	for _, candidate := range validStockOperationTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseStockOperationType converts raw input into a StockOperationType.
func ParseStockOperationType(value string) (StockOperationType, error) {
	for _, candidate := range validStockOperationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock operation type %q", value)
}

// StockChangeType classifies a single field delta.
type StockChangeType string

const (
	StockChangeIncrease StockChangeType = "increase"
	StockChangeDecrease StockChangeType = "decrease"
	StockChangeSet      StockChangeType = "set"
	StockChangeReset    StockChangeType = "reset"
)

var validStockChangeTypes = []StockChangeType{
	StockChangeIncrease,
	StockChangeDecrease,
	StockChangeSet,
	StockChangeReset,
}

// String implements fmt.Stringer.
func (c StockChangeType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known StockChangeType.
func (c StockChangeType) IsValid() bool {
	for _, candidate := range validStockChangeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseStockChangeType converts raw input into a StockChangeType.
func ParseStockChangeType(value string) (StockChangeType, error) {
	for _, candidate := range validStockChangeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock change type %q", value)
}
