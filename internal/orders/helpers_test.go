package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/db"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/migrate"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
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

type ordersFixture struct {
	conn   *gorm.DB
	client *db.Client
	repo   Repository
	stock  stock.Service
	svc    Service
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()
	conn := setupOrdersTestDB(t)
	client := db.NewFromConn(conn)

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	require.NoError(t, err)
	metricsSvc, err := stockmetrics.NewService(stockmetrics.NewRepository(conn))
	require.NoError(t, err)

	stockSvc, err := stock.NewService(stock.ServiceParams{
		DB:             client,
		Audit:          auditSvc,
		Metrics:        metricsSvc,
		Logger:         logger.Nop(),
		AuditEnabled:   true,
		MetricsEnabled: true,
	})
	require.NoError(t, err)

	repo := NewRepository(conn)
	hook, err := NewCancellationHook(repo, stockSvc, logger.Nop())
	require.NoError(t, err)
	svc, err := NewService(repo, client, hook, logger.Nop())
	require.NoError(t, err)

	return &ordersFixture{conn: conn, client: client, repo: repo, stock: stockSvc, svc: svc}
}

func (f *ordersFixture) seedActivity(t *testing.T, total, reserved int) uuid.UUID {
	t.Helper()
	row := models.ActivityAvailability{
		ActivityID:    uuid.New(),
		StartsAt:      time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC),
		TotalSeats:    total,
		ReservedSeats: reserved,
		UnitPrice:     decimal.RequireFromString("35.00"),
		Currency:      "USD",
		State:         enums.AvailabilityStateActive,
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

func (f *ordersFixture) seedRoom(t *testing.T, max, available int) uuid.UUID {
	t.Helper()
	row := models.RoomAvailability{
		RoomID:            uuid.New(),
		StartDate:         time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		MaxQuantity:       max,
		AvailableQuantity: available,
		UnitPrice:         decimal.RequireFromString("90.00"),
		Currency:          "USD",
		State:             enums.AvailabilityStateActive,
	}
	require.NoError(t, f.conn.Create(&row).Error)
	return row.ID
}

type orderLine struct {
	productType    enums.OrderLineProductType
	availabilityID uuid.UUID
	qty            int
}

func (f *ordersFixture) seedOrder(t *testing.T, state enums.OrderState, lines ...orderLine) *models.Order {
	t.Helper()
	order := &models.Order{
		ClientID: uuid.New(),
		State:    state,
	}
	total := decimal.Zero
	for _, line := range lines {
		price := decimal.RequireFromString("10.00")
		subtotal := price.Mul(decimal.NewFromInt(int64(line.qty)))
		total = total.Add(subtotal)
		order.Details = append(order.Details, models.OrderDetail{
			ProductType:    line.productType,
			AvailabilityID: line.availabilityID,
			Quantity:       line.qty,
			UnitPrice:      price,
			Subtotal:       subtotal,
		})
	}
	order.Total = total
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func (f *ordersFixture) summary(t *testing.T, productType enums.ProductType, id uuid.UUID) *stock.StockSummary {
	t.Helper()
	s, err := f.stock.GetStockSummary(context.Background(), productType, id)
	require.NoError(t, err)
	return s
}

func (f *ordersFixture) releaseLogs(t *testing.T) []models.StockAuditLog {
	t.Helper()
	var logs []models.StockAuditLog
	require.NoError(t, f.conn.
		Where("operation_type = ?", enums.StockOperationRelease).
		Order("created_at ASC").
		Find(&logs).Error)
	return logs
}
