package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
)

// MaxBulkItems caps a single pre-flight request.
const MaxBulkItems = 100

var bulkValidator = validator.New()

// BulkItem is one requested line of a multi-item pre-flight.
type BulkItem struct {
	ProductType    enums.ProductType `json:"product_type" validate:"required,oneof=activity transportation room flight"`
	AvailabilityID uuid.UUID         `json:"availability_id" validate:"required"`
	Quantity       int               `json:"quantity" validate:"gt=0"`
}

// BulkItemResult is the outcome for one BulkItem.
type BulkItemResult struct {
	Item      BulkItem       `json:"item"`
	OK        bool           `json:"ok"`
	Code      pkgerrors.Code `json:"code,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Remaining int            `json:"remaining"`
}

// BulkValidation aggregates the per-item outcomes. Valid is true only when
// every item passed.
type BulkValidation struct {
	Valid bool             `json:"valid"`
	Items []BulkItemResult `json:"items"`
}

type bulkKey struct {
	productType enums.ProductType
	id          uuid.UUID
}

// ValidateBulk checks every item without reserving anything. Items that
// target the same availability are evaluated against their combined quantity.
func (s *service) ValidateBulk(ctx context.Context, items []BulkItem) (*BulkValidation, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if len(items) > MaxBulkItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d items per request", MaxBulkItems))
	}

	result := &BulkValidation{Valid: true, Items: make([]BulkItemResult, 0, len(items))}
	requested := map[bulkKey]int{}

	for _, item := range items {
		out := BulkItemResult{Item: item}
		if reason := itemShapeError(item); reason != "" {
			out.Code = pkgerrors.CodeValidation
			out.Reason = reason
			result.add(out)
			continue
		}

		key := bulkKey{productType: item.ProductType, id: item.AvailabilityID}
		cumulative := requested[key] + item.Quantity

		check, err := s.Check(ctx, item.ProductType, item.AvailabilityID, cumulative)
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound, pkgerrors.CodeValidation):
			te := pkgerrors.As(err)
			out.Code = te.Code()
			out.Reason = te.Message()
		case err != nil:
			return nil, err
		case !check.Active:
			out.Code = pkgerrors.CodeStateConflict
			out.Reason = "availability is not active"
			out.Remaining = check.Remaining
		case !check.Enough:
			out.Code = pkgerrors.CodeInsufficientStock
			out.Reason = fmt.Sprintf("only %d units remaining", check.Remaining)
			out.Remaining = check.Remaining
		default:
			out.OK = true
			out.Remaining = check.Remaining - cumulative
			requested[key] = cumulative
		}
		result.add(out)
	}
	return result, nil
}

func (b *BulkValidation) add(item BulkItemResult) {
	if !item.OK {
		b.Valid = false
	}
	b.Items = append(b.Items, item)
}

func itemShapeError(item BulkItem) string {
	err := bulkValidator.Struct(item)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "ProductType":
			msgs = append(msgs, fmt.Sprintf("unsupported product type %q", item.ProductType))
		case "AvailabilityID":
			msgs = append(msgs, "availability id is required")
		case "Quantity":
			msgs = append(msgs, "quantity must be greater than zero")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
