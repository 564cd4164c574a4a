package stock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/db"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/metrics"
	"github.com/travelmarket/tourism-backend/pkg/migrate"
)

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:stock_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.AutoMigrate(context.Background(), conn))
	return conn
}

type stockFixture struct {
	conn     *gorm.DB
	svc      Service
	registry *prometheus.Registry
	counters *metrics.StockMetrics
}

type fixtureOption func(p *ServiceParams)

func withAudit(a AuditLogger) fixtureOption {
	return func(p *ServiceParams) { p.Audit = a }
}

func newStockFixture(t *testing.T, opts ...fixtureOption) *stockFixture {
	t.Helper()
	conn := setupStockTestDB(t)

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	metricsSvc, err := stockmetrics.NewService(stockmetrics.NewRepository(conn))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	counters := metrics.NewStockMetrics(reg)

	params := ServiceParams{
		DB:             db.NewFromConn(conn),
		Audit:          auditSvc,
		Metrics:        metricsSvc,
		Logger:         logger.Nop(),
		Counters:       counters,
		AuditEnabled:   true,
		MetricsEnabled: true,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	return &stockFixture{conn: conn, svc: svc, registry: reg, counters: counters}
}

func (f *stockFixture) seedActivity(t *testing.T, total, reserved int) uuid.UUID {
	t.Helper()
	row := models.ActivityAvailability{
		ActivityID:    uuid.New(),
		StartsAt:      time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		TotalSeats:    total,
		ReservedSeats: reserved,
		UnitPrice:     decimal.RequireFromString("49.90"),
		Currency:      "USD",
		State:         enums.AvailabilityStateActive,
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

func (f *stockFixture) seedTransportation(t *testing.T, total, reserved int) uuid.UUID {
	t.Helper()
	row := models.TransportationAvailability{
		TransportationID: uuid.New(),
		DepartsAt:        time.Date(2026, 7, 1, 7, 30, 0, 0, time.UTC),
		TotalSeats:       total,
		ReservedSeats:    reserved,
		UnitPrice:        decimal.RequireFromString("15.00"),
		Currency:         "USD",
		State:            enums.AvailabilityStateActive,
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

func (f *stockFixture) seedRoom(t *testing.T, max, available int) uuid.UUID {
	t.Helper()
	row := models.RoomAvailability{
		RoomID:            uuid.New(),
		StartDate:         time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC),
		MaxQuantity:       max,
		AvailableQuantity: available,
		UnitPrice:         decimal.RequireFromString("120.00"),
		Currency:          "EUR",
		State:             enums.AvailabilityStateActive,
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

func (f *stockFixture) seedFlight(t *testing.T, capacity, available int) uuid.UUID {
	t.Helper()
	row := models.Flight{
		FlightNumber:   "TM204",
		Origin:         "LIM",
		Destination:    "CUZ",
		DepartureAt:    time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC),
		Capacity:       capacity,
		AvailableSeats: available,
		UnitPrice:      decimal.RequireFromString("89.00"),
		Currency:       "USD",
		State:          enums.AvailabilityStateActive,
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

func (f *stockFixture) activity(t *testing.T, id uuid.UUID) models.ActivityAvailability {
	t.Helper()
	var row models.ActivityAvailability
	require.NoError(t, f.conn.First(&row, "id = ?", id).Error)
	return row
}

func (f *stockFixture) auditLogs(t *testing.T, productID uuid.UUID) []models.StockAuditLog {
	t.Helper()
	var logs []models.StockAuditLog
	require.NoError(t, f.conn.
		Preload("Changes").
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&logs).Error)
	return logs
}

func (f *stockFixture) metricsRow(t *testing.T, productType enums.ProductType, productID uuid.UUID) models.StockMetrics {
	t.Helper()
	var row models.StockMetrics
	require.NoError(t, f.conn.First(&row, "product_type = ? AND product_id = ?", productType, productID).Error)
	return row
}
