package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/enums"
)

// ActivityAvailability is one bookable slot of an activity. Seats are counted
// as reserved out of total.
type ActivityAvailability struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ActivityID    uuid.UUID               `gorm:"column:activity_id;type:uuid;not null;index"`
	StartsAt      time.Time               `gorm:"column:starts_at;not null"`
	TotalSeats    int                     `gorm:"column:total_seats;not null;default:0"`
	ReservedSeats int                     `gorm:"column:reserved_seats;not null;default:0;check:activity_availabilities_reserved_check,reserved_seats >= 0 AND reserved_seats <= total_seats"`
	UnitPrice     decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Currency      string                  `gorm:"column:currency;type:text;not null;default:'USD'"`
	State         enums.AvailabilityState `gorm:"column:state;type:text;not null;default:'active'"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (ActivityAvailability) TableName() string { return "activity_availabilities" }

func (a *ActivityAvailability) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TransportationAvailability is one departure of a transportation product.
type TransportationAvailability struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	TransportationID uuid.UUID               `gorm:"column:transportation_id;type:uuid;not null;index"`
	DepartsAt        time.Time               `gorm:"column:departs_at;not null"`
	TotalSeats       int                     `gorm:"column:total_seats;not null;default:0"`
	ReservedSeats    int                     `gorm:"column:reserved_seats;not null;default:0;check:transportation_availabilities_reserved_check,reserved_seats >= 0 AND reserved_seats <= total_seats"`
	UnitPrice        decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Currency         string                  `gorm:"column:currency;type:text;not null;default:'USD'"`
	State            enums.AvailabilityState `gorm:"column:state;type:text;not null;default:'active'"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (TransportationAvailability) TableName() string { return "transportation_availabilities" }

func (t *TransportationAvailability) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// RoomAvailability tracks how many units of a room type remain for a night
// range. Unlike seats, the counter stores what is still available.
type RoomAvailability struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	RoomID            uuid.UUID               `gorm:"column:room_id;type:uuid;not null;index"`
	StartDate         time.Time               `gorm:"column:start_date;not null"`
	EndDate           time.Time               `gorm:"column:end_date;not null"`
	MaxQuantity       int                     `gorm:"column:max_quantity;not null;default:0"`
	AvailableQuantity int                     `gorm:"column:available_quantity;not null;default:0;check:room_availabilities_available_check,available_quantity >= 0 AND available_quantity <= max_quantity"`
	UnitPrice         decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Currency          string                  `gorm:"column:currency;type:text;not null;default:'USD'"`
	State             enums.AvailabilityState `gorm:"column:state;type:text;not null;default:'active'"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (RoomAvailability) TableName() string { return "room_availabilities" }

func (r *RoomAvailability) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Flight is both the product and its availability: seats live on the row.
type Flight struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	FlightNumber   string                  `gorm:"column:flight_number;type:text;not null"`
	Origin         string                  `gorm:"column:origin;type:text;not null"`
	Destination    string                  `gorm:"column:destination;type:text;not null"`
	DepartureAt    time.Time               `gorm:"column:departure_at;not null"`
	Capacity       int                     `gorm:"column:capacity;not null;default:0"`
	AvailableSeats int                     `gorm:"column:available_seats;not null;default:0;check:flights_available_check,available_seats >= 0 AND available_seats <= capacity"`
	UnitPrice      decimal.Decimal         `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Currency       string                  `gorm:"column:currency;type:text;not null;default:'USD'"`
	State          enums.AvailabilityState `gorm:"column:state;type:text;not null;default:'active'"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Flight) TableName() string { return "flights" }

func (f *Flight) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
