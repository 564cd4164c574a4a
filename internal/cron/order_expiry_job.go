package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/travelmarket/tourism-backend/internal/orders"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	defaultExpiryBatchSize = 100
	orderExpirySessionID   = "cron:order-expiry"
)

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type orderTransitioner interface {
	TransitionState(ctx context.Context, orderID uuid.UUID, next enums.OrderState, actor stock.Actor) (*orders.TransitionResult, error)
}

// OrderExpiryJobParams configure the pending order expiry job.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Pending   pendingOrderReader
	Orders    orderTransitioner
	TTL       time.Duration
	BatchSize int
}

// NewOrderExpiryJob builds the job that cancels orders left pending past the
// TTL, handing their reserved stock back.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:    params.Logger,
		pending: params.Pending,
		orders:  params.Orders,
		ttl:     ttl,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg    *logger.Logger
	pending pendingOrderReader
	orders  orderTransitioner
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	pending, err := j.pending.FindPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query pending orders for expiry: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range pending {
		res, err := j.orders.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{SessionID: orderExpirySessionID})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if res != nil && res.Changed {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(pending),
		"expired": expired,
	})
	j.logg.Info(logCtx, "order expiry loop complete")
	return errs
}
