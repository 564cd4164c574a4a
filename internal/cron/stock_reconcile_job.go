package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

const defaultReconcileBatchSize = 200

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerSource interface {
	Ledgers() []stock.Ledger
}

type metricsSnapshotter interface {
	Snapshot(ctx context.Context, tx *gorm.DB, productType enums.ProductType, productID uuid.UUID, total, reserved int) (*models.StockMetrics, error)
}

// StockReconcileJobParams configure the stock metrics reconcile job.
type StockReconcileJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Stock     ledgerSource
	Metrics   metricsSnapshotter
	BatchSize int
}

// NewStockReconcileJob builds the job that rewrites every stock_metrics
// snapshot from the ledgers. Counters are left untouched.
func NewStockReconcileJob(params StockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if params.Metrics == nil {
		return nil, fmt.Errorf("stock metrics service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &stockReconcileJob{
		logg:    params.Logger,
		db:      params.DB,
		stock:   params.Stock,
		metrics: params.Metrics,
		batch:   batch,
	}, nil
}

type stockReconcileJob struct {
	logg    *logger.Logger
	db      txRunner
	stock   ledgerSource
	metrics metricsSnapshotter
	batch   int
}

func (j *stockReconcileJob) Name() string { return "stock-metrics-reconcile" }

// Run reconciles each ledger independently so one failing product type does
// not hold back the others.
func (j *stockReconcileJob) Run(ctx context.Context) error {
	var errs error
	for _, ledger := range j.stock.Ledgers() {
		count, err := j.reconcileLedger(ctx, ledger)
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"product_type": ledger.ProductType(),
			"rows":         count,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", ledger.ProductType(), err))
			j.logg.Error(logCtx, "stock metrics reconcile failed", err)
			continue
		}
		j.logg.Info(logCtx, "stock metrics reconciled")
	}
	return errs
}

// reconcileLedger scans ids without locks, then snapshots each batch in its
// own transaction from rows re-read FOR UPDATE. A reservation committing
// between the scan and the snapshot is therefore never overwritten, and row
// locks are held for one batch at a time.
func (j *stockReconcileJob) reconcileLedger(ctx context.Context, ledger stock.Ledger) (int, error) {
	count := 0
	err := ledger.Each(ctx, j.db.DB(), j.batch, func(records []stock.Record) error {
		return j.db.WithTx(ctx, func(tx *gorm.DB) error {
			for _, rec := range records {
				fresh, err := ledger.Load(ctx, tx, rec.ID, true)
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if _, err := j.metrics.Snapshot(ctx, tx, fresh.ProductType, fresh.ID, fresh.Total, fresh.Reserved); err != nil {
					return err
				}
				count++
			}
			return nil
		})
	})
	return count, err
}
