package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StateChangeHook observes an order transition inside its transaction.
type StateChangeHook interface {
	OnOrderStateChange(ctx context.Context, tx *gorm.DB, order *models.Order, previous, next enums.OrderState, actor stock.Actor) (*ReleaseReport, error)
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	TransitionState(ctx context.Context, orderID uuid.UUID, next enums.OrderState, actor stock.Actor) (*TransitionResult, error)
}

// TransitionResult reports the outcome of a state change.
type TransitionResult struct {
	OrderID  uuid.UUID        `json:"order_id"`
	Previous enums.OrderState `json:"previous_state"`
	Current  enums.OrderState `json:"current_state"`
	Changed  bool             `json:"changed"`
	Release  *ReleaseReport   `json:"release,omitempty"`
}

type service struct {
	repo Repository
	tx   txRunner
	hook StateChangeHook
	logg *logger.Logger
}

// NewService builds an orders service backed by the provided collaborators.
func NewService(repo Repository, tx txRunner, hook StateChangeHook, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if hook == nil {
		return nil, fmt.Errorf("state change hook required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, hook: hook, logg: logg}, nil
}

func (s *service) TransitionState(ctx context.Context, orderID uuid.UUID, next enums.OrderState, actor stock.Actor) (*TransitionResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order state %q", next))
	}

	result := &TransitionResult{OrderID: orderID, Current: next}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}

		previous := order.State
		result.Previous = previous
		if previous == next {
			return nil
		}
		if previous.ReleasesStock() && !next.ReleasesStock() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order cannot move from %s to %s", previous, next)).
				WithDetails(map[string]any{"current_state": previous})
		}

		report, err := s.hook.OnOrderStateChange(ctx, tx, order, previous, next, actor)
		if err != nil {
			return err
		}
		if report != nil && report.Triggered {
			result.Release = report
		}

		if err := txRepo.UpdateState(ctx, orderID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order state")
		}
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id":       orderID.String(),
			"previous_state": result.Previous,
			"next_state":     next,
		}), "order state changed")
	}
	return result, nil
}
