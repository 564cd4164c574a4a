package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/internal/repo"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/pagination"
)

// logQuery is the normalized form of LogFilter handed to the repository.
type logQuery struct {
	ProductType   enums.ProductType
	ProductID     *uuid.UUID
	OperationType enums.StockOperationType
	UserID        *uuid.UUID
	Success       *bool
	From          *time.Time
	To            *time.Time
	Cursor        *pagination.Cursor
	Limit         int
}

type changeQuery struct {
	AuditLogID  *uuid.UUID
	ProductType enums.ProductType
	ProductID   *uuid.UUID
	FieldName   string
	ChangeType  enums.StockChangeType
	From        *time.Time
	To          *time.Time
	Limit       int
}

// Repository is the append-only store for audit logs and change records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLog(ctx context.Context, entry *models.StockAuditLog) error
	CreateChange(ctx context.Context, change *models.StockChangeHistory) error
	ListLogs(ctx context.Context, q logQuery) ([]models.StockAuditLog, error)
	ListChanges(ctx context.Context, q changeQuery) ([]models.StockChangeHistory, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateLog(ctx context.Context, entry *models.StockAuditLog) error {
	return r.DB(ctx).Omit("Changes").Create(entry).Error
}

func (r *repository) CreateChange(ctx context.Context, change *models.StockChangeHistory) error {
	return r.DB(ctx).Create(change).Error
}

func (r *repository) ListLogs(ctx context.Context, q logQuery) ([]models.StockAuditLog, error) {
	query := r.DB(ctx).Model(&models.StockAuditLog{})
	if q.ProductType != "" {
		query = query.Where("product_type = ?", q.ProductType)
	}
	if q.ProductID != nil {
		query = query.Where("product_id = ?", *q.ProductID)
	}
	if q.OperationType != "" {
		query = query.Where("operation_type = ?", q.OperationType)
	}
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if q.Success != nil {
		query = query.Where("success = ?", *q.Success)
	}
	if q.From != nil {
		query = query.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("created_at <= ?", *q.To)
	}
	if q.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Cursor.CreatedAt, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	var logs []models.StockAuditLog
	if err := query.
		Preload("Changes").
		Order("created_at DESC").
		Order("id DESC").
		Limit(q.Limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) ListChanges(ctx context.Context, q changeQuery) ([]models.StockChangeHistory, error) {
	query := r.DB(ctx).Model(&models.StockChangeHistory{}).Select("stock_change_histories.*")
	if q.AuditLogID != nil {
		query = query.Where("stock_change_histories.audit_log_id = ?", *q.AuditLogID)
	}
	if q.ProductType != "" || q.ProductID != nil {
		query = query.Joins("JOIN stock_audit_logs ON stock_audit_logs.id = stock_change_histories.audit_log_id")
		if q.ProductType != "" {
			query = query.Where("stock_audit_logs.product_type = ?", q.ProductType)
		}
		if q.ProductID != nil {
			query = query.Where("stock_audit_logs.product_id = ?", *q.ProductID)
		}
	}
	if q.FieldName != "" {
		query = query.Where("stock_change_histories.field_name = ?", q.FieldName)
	}
	if q.ChangeType != "" {
		query = query.Where("stock_change_histories.change_type = ?", q.ChangeType)
	}
	if q.From != nil {
		query = query.Where("stock_change_histories.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("stock_change_histories.created_at <= ?", *q.To)
	}

	var changes []models.StockChangeHistory
	if err := query.
		Order("stock_change_histories.created_at DESC").
		Order("stock_change_histories.id DESC").
		Limit(q.Limit).
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
