package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/enums"
)

// StockAuditLog is an immutable record of one attempted stock operation.
type StockAuditLog struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OperationType enums.StockOperationType `gorm:"column:operation_type;type:text;not null"`
	ProductType   enums.ProductType        `gorm:"column:product_type;type:text;not null"`
	ProductID     uuid.UUID                `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int                      `gorm:"column:quantity;not null"`
	PreviousStock *int                     `gorm:"column:previous_stock"`
	NewStock      *int                     `gorm:"column:new_stock"`
	UserID        *uuid.UUID               `gorm:"column:user_id;type:uuid"`
	SessionID     *string                  `gorm:"column:session_id;type:text"`
	RequestID     *string                  `gorm:"column:request_id;type:text"`
	Metadata      datatypes.JSONMap        `gorm:"column:metadata;type:jsonb"`
	Success       bool                     `gorm:"column:success;not null"`
	ErrorMessage  *string                  `gorm:"column:error_message;type:text"`
	Changes       []StockChangeHistory     `gorm:"foreignKey:AuditLogID"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (StockAuditLog) TableName() string { return "stock_audit_logs" }

func (l *StockAuditLog) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// StockChangeHistory records a single field delta caused by an audited operation.
type StockChangeHistory struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	AuditLogID   uuid.UUID             `gorm:"column:audit_log_id;type:uuid;not null;index"`
	ChangeType   enums.StockChangeType `gorm:"column:change_type;type:text;not null"`
	FieldName    string                `gorm:"column:field_name;type:text;not null"`
	OldValue     *int                  `gorm:"column:old_value"`
	NewValue     *int                  `gorm:"column:new_value"`
	ChangeAmount int                   `gorm:"column:change_amount;not null;default:0"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (StockChangeHistory) TableName() string { return "stock_change_histories" }

func (c *StockChangeHistory) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
