package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

// StockReleaser hands reserved units back inside the caller's transaction.
type StockReleaser interface {
	ReleaseTx(ctx context.Context, tx *gorm.DB, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor stock.Actor) (int, error)
}

// releaseDispatch maps order line product types onto stock ledgers. Lines of
// any other type carry no stock and are skipped.
var releaseDispatch = map[enums.OrderLineProductType]enums.ProductType{
	enums.OrderLineActivity:       enums.ProductTypeActivity,
	enums.OrderLineTransportation: enums.ProductTypeTransportation,
	enums.OrderLineLodgment:       enums.ProductTypeRoom,
	enums.OrderLineFlight:         enums.ProductTypeFlight,
}

// LineRelease describes one line whose stock was handed back.
type LineRelease struct {
	DetailID       uuid.UUID         `json:"detail_id"`
	ProductType    enums.ProductType `json:"product_type"`
	AvailabilityID uuid.UUID         `json:"availability_id"`
	Quantity       int               `json:"quantity"`
	ReservedAfter  int               `json:"reserved_after"`
}

// LineSkip describes a line that was tolerated without releasing.
type LineSkip struct {
	DetailID    uuid.UUID                  `json:"detail_id"`
	ProductType enums.OrderLineProductType `json:"product_type"`
	Code        pkgerrors.Code             `json:"code"`
	Reason      string                     `json:"reason"`
}

// ReleaseReport summarizes one cancellation sweep.
type ReleaseReport struct {
	OrderID     uuid.UUID     `json:"order_id"`
	Triggered   bool          `json:"triggered"`
	Released    []LineRelease `json:"released"`
	Skipped     []LineSkip    `json:"skipped"`
	Unsupported int           `json:"unsupported"`
}

// CancellationHook releases an order's stock when it enters a terminal
// released state. It must be invoked before the new state is persisted.
type CancellationHook struct {
	repo  Repository
	stock StockReleaser
	logg  *logger.Logger
}

// NewCancellationHook wires the hook with its collaborators.
func NewCancellationHook(repo Repository, releaser StockReleaser, logg *logger.Logger) (*CancellationHook, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if releaser == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &CancellationHook{repo: repo, stock: releaser, logg: logg}, nil
}

// OnOrderStateChange releases every stock-bearing line of order when the
// transition moves it from a live state into Cancelled or Refunded. All
// releases share tx; a line failing with insufficient stock or a missing
// availability is skipped, any other failure aborts the sweep.
func (h *CancellationHook) OnOrderStateChange(ctx context.Context, tx *gorm.DB, order *models.Order, previous, next enums.OrderState, actor stock.Actor) (*ReleaseReport, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	report := &ReleaseReport{OrderID: order.ID}
	if previous.ReleasesStock() || !next.ReleasesStock() {
		return report, nil
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for order release")
	}
	report.Triggered = true

	ctx = h.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"previous_state": previous,
		"next_state":     next,
	})

	details, err := h.repo.WithTx(tx).ListDetails(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order details")
	}

	for _, detail := range details {
		productType, ok := releaseDispatch[detail.ProductType]
		if !ok {
			report.Unsupported++
			continue
		}

		var (
			reserved int
			lineErr  error
		)
		err := tx.Transaction(func(ltx *gorm.DB) error {
			reserved, lineErr = h.stock.ReleaseTx(ctx, ltx, productType, detail.AvailabilityID, detail.Quantity, actor)
			if lineErr != nil && !stock.IsRejection(lineErr) {
				return lineErr
			}
			return nil
		})

		switch {
		case lineErr == nil && err == nil:
			report.Released = append(report.Released, LineRelease{
				DetailID:       detail.ID,
				ProductType:    productType,
				AvailabilityID: detail.AvailabilityID,
				Quantity:       detail.Quantity,
				ReservedAfter:  reserved,
			})
		case pkgerrors.IsCode(lineErr, pkgerrors.CodeInsufficientStock, pkgerrors.CodeNotFound):
			te := pkgerrors.As(lineErr)
			report.Skipped = append(report.Skipped, LineSkip{
				DetailID:    detail.ID,
				ProductType: detail.ProductType,
				Code:        te.Code(),
				Reason:      te.Message(),
			})
			h.logg.Warn(h.logg.WithFields(ctx, map[string]any{
				"detail_id":       detail.ID.String(),
				"availability_id": detail.AvailabilityID.String(),
				"code":            te.Code(),
			}), "order line release skipped")
		case lineErr != nil:
			return nil, lineErr
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release order line")
		}
	}

	h.logg.Info(h.logg.WithFields(ctx, map[string]any{
		"released":    len(report.Released),
		"skipped":     len(report.Skipped),
		"unsupported": report.Unsupported,
	}), "order stock released")
	return report, nil
}
