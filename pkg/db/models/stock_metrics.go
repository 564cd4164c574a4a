package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/enums"
)

// StockMetrics is the rolling utilization summary for one availability.
type StockMetrics struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ProductType       enums.ProductType `gorm:"column:product_type;type:text;not null;uniqueIndex:stock_metrics_product_key"`
	ProductID         uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:stock_metrics_product_key"`
	TotalCapacity     int               `gorm:"column:total_capacity;not null;default:0"`
	CurrentReserved   int               `gorm:"column:current_reserved;not null;default:0"`
	CurrentAvailable  int               `gorm:"column:current_available;not null;default:0"`
	UtilizationRate   decimal.Decimal   `gorm:"column:utilization_rate;type:numeric(5,2);not null;default:0"`
	TotalReservations int               `gorm:"column:total_reservations;not null;default:0"`
	TotalReleases     int               `gorm:"column:total_releases;not null;default:0"`
	FailedOperations  int               `gorm:"column:failed_operations;not null;default:0"`
	LastOperationAt   *time.Time        `gorm:"column:last_operation_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (StockMetrics) TableName() string { return "stock_metrics" }

func (m *StockMetrics) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
