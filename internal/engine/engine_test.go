package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/config"
	"github.com/travelmarket/tourism-backend/pkg/db"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/migrate"
)

func setupEngineTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:engine_%s?mode=memory&cache=shared", uuid.NewString())
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

func TestEngineEndToEnd(t *testing.T) {
	conn := setupEngineTestDB(t)
	ctx := context.Background()

	eng, err := New(db.NewFromConn(conn), config.StockConfig{AuditEnabled: true, MetricsEnabled: true}, logger.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)

	row := models.TransportationAvailability{
		TransportationID: uuid.New(),
		DepartsAt:        time.Date(2026, 11, 2, 6, 0, 0, 0, time.UTC),
		TotalSeats:       12,
		State:            enums.AvailabilityStateActive,
		Currency:         "USD",
	}
	require.NoError(t, conn.Create(&row).Error)

	reserved, err := eng.Stock.Reserve(ctx, enums.ProductTypeTransportation, row.ID, 5, stock.Actor{SessionID: "sess-1"})
	require.NoError(t, err)
	assert.Equal(t, 5, reserved)

	order := &models.Order{
		ClientID: uuid.New(),
		State:    enums.OrderStatePending,
		Details: []models.OrderDetail{{
			ProductType:    enums.OrderLineTransportation,
			AvailabilityID: row.ID,
			Quantity:       5,
		}},
	}
	require.NoError(t, eng.OrdersRepo.Create(ctx, order))

	res, err := eng.Orders.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{SessionID: "sess-1"})
	require.NoError(t, err)
	require.NotNil(t, res.Release)
	assert.Len(t, res.Release.Released, 1)

	page, err := eng.AuditQuery.Logs(ctx, audit.LogFilter{ProductType: enums.ProductTypeTransportation})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	ops := []enums.StockOperationType{page.Items[0].OperationType, page.Items[1].OperationType}
	assert.ElementsMatch(t, []enums.StockOperationType{enums.StockOperationReserve, enums.StockOperationRelease}, ops)

	summary, err := eng.AuditQuery.OperationSummary(ctx, enums.ProductTypeTransportation, row.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalReservations)
	assert.Equal(t, 1, summary.TotalReleases)
	assert.Equal(t, 0, summary.CurrentReserved)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, config.StockConfig{}, nil, nil)
	require.Error(t, err)
}
