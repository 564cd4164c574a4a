package stockmetrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/travelmarket/tourism-backend/internal/repo"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/pagination"
)

// Increments are the counter deltas applied by one upsert.
type Increments struct {
	Reservations int
	Releases     int
	Failures     int
}

// ListFilter narrows metrics rows for reporting.
type ListFilter struct {
	ProductType enums.ProductType
	ProductID   *uuid.UUID
	Limit       int
}

// Repository persists the per-product metrics rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, row *models.StockMetrics, inc Increments) error
	Find(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*models.StockMetrics, error)
	List(ctx context.Context, filter ListFilter) ([]models.StockMetrics, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a metrics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// Upsert inserts the row or, when (product_type, product_id) already exists,
// overwrites the snapshot columns and adds inc to the counters.
func (r *repository) Upsert(ctx context.Context, row *models.StockMetrics, inc Increments) error {
	row.TotalReservations = inc.Reservations
	row.TotalReleases = inc.Releases
	row.FailedOperations = inc.Failures

	updates := map[string]any{
		"total_capacity":     row.TotalCapacity,
		"current_reserved":   row.CurrentReserved,
		"current_available":  row.CurrentAvailable,
		"utilization_rate":   row.UtilizationRate,
		"total_reservations": gorm.Expr("stock_metrics.total_reservations + ?", inc.Reservations),
		"total_releases":     gorm.Expr("stock_metrics.total_releases + ?", inc.Releases),
		"failed_operations":  gorm.Expr("stock_metrics.failed_operations + ?", inc.Failures),
		"updated_at":         time.Now().UTC(),
	}
	if row.LastOperationAt != nil {
		updates["last_operation_at"] = *row.LastOperationAt
	}

	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_type"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(updates),
		}).
		Create(row).Error
}

func (r *repository) Find(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*models.StockMetrics, error) {
	var row models.StockMetrics
	if err := r.DB(ctx).
		Where("product_type = ? AND product_id = ?", productType, productID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.StockMetrics, error) {
	query := r.DB(ctx).Model(&models.StockMetrics{})
	if filter.ProductType != "" {
		query = query.Where("product_type = ?", filter.ProductType)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}

	var rows []models.StockMetrics
	if err := query.
		Order("utilization_rate DESC").
		Order("product_id ASC").
		Limit(pagination.NormalizeLimit(filter.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
