package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/enums"
)

// Order is a client's travel purchase.
type Order struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ClientID  uuid.UUID        `gorm:"column:client_id;type:uuid;not null;index"`
	State     enums.OrderState `gorm:"column:state;type:text;not null;default:'Pending'"`
	Total     decimal.Decimal  `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Details   []OrderDetail    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderDetail is one purchased line pointing at the availability it consumed.
type OrderDetail struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductType    enums.OrderLineProductType `gorm:"column:product_type;type:text;not null"`
	AvailabilityID uuid.UUID                  `gorm:"column:availability_id;type:uuid;not null"`
	Quantity       int                        `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal            `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Subtotal       decimal.Decimal            `gorm:"column:subtotal;type:numeric(12,2);not null;default:0"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (OrderDetail) TableName() string { return "order_details" }

func (d *OrderDetail) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
