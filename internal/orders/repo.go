package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/travelmarket/tourism-backend/internal/repo"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListDetails(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListDetails(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error) {
	var details []models.OrderDetail
	if err := r.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.DB(ctx).
		Where("state = ?", enums.OrderStatePending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"state":      state,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
