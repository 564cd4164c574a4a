package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/migrate"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:audit_%s?mode=memory&cache=shared", uuid.NewString())
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

type queryFixture struct {
	conn    *gorm.DB
	repo    Repository
	metrics stockmetrics.Service
	query   QueryService
	base    time.Time
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	conn := setupAuditTestDB(t)
	repo := NewRepository(conn)
	metrics, err := stockmetrics.NewService(stockmetrics.NewRepository(conn))
	require.NoError(t, err)
	query, err := NewQueryService(repo, metrics)
	require.NoError(t, err)
	return &queryFixture{
		conn:    conn,
		repo:    repo,
		metrics: metrics,
		query:   query,
		base:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *queryFixture) seedLog(t *testing.T, offset time.Duration, entry models.StockAuditLog) models.StockAuditLog {
	t.Helper()
	entry.CreatedAt = f.base.Add(offset)
	if entry.OperationType == "" {
		entry.OperationType = enums.StockOperationReserve
	}
	if entry.Quantity == 0 {
		entry.Quantity = 1
	}
	require.NoError(t, f.repo.CreateLog(context.Background(), &entry))
	return entry
}

func TestQueryService_LogsCombinesFilters(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	otherID := uuid.New()
	userID := uuid.New()
	failMsg := "insufficient stock"

	f.seedLog(t, 0, models.StockAuditLog{ProductType: enums.ProductTypeActivity, ProductID: productID, Success: true, UserID: &userID})
	f.seedLog(t, time.Minute, models.StockAuditLog{ProductType: enums.ProductTypeActivity, ProductID: productID, Success: false, ErrorMessage: &failMsg})
	f.seedLog(t, 2*time.Minute, models.StockAuditLog{ProductType: enums.ProductTypeActivity, ProductID: productID, OperationType: enums.StockOperationRelease, Success: true, UserID: &userID})
	f.seedLog(t, 3*time.Minute, models.StockAuditLog{ProductType: enums.ProductTypeRoom, ProductID: otherID, Success: true, UserID: &userID})

	history, err := f.query.ProductHistory(ctx, enums.ProductTypeActivity, productID, 0)
	require.NoError(t, err)
	require.Len(t, history.Items, 3)
	assert.Equal(t, enums.StockOperationRelease, history.Items[0].OperationType, "newest first")
	assert.Empty(t, history.NextCursor)

	byUser, err := f.query.UserOperations(ctx, userID, 0)
	require.NoError(t, err)
	assert.Len(t, byUser.Items, 3)

	failed, err := f.query.FailedOperations(ctx, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, failed.Items, 1)
	assert.Equal(t, failMsg, *failed.Items[0].ErrorMessage)

	succeeded := true
	from := f.base.Add(30 * time.Second)
	to := f.base.Add(150 * time.Second)
	combined, err := f.query.Logs(ctx, LogFilter{
		ProductType: enums.ProductTypeActivity,
		UserID:      &userID,
		Success:     &succeeded,
		From:        &from,
		To:          &to,
	})
	require.NoError(t, err)
	require.Len(t, combined.Items, 1)
	assert.Equal(t, enums.StockOperationRelease, combined.Items[0].OperationType)

	releases, err := f.query.Logs(ctx, LogFilter{OperationType: enums.StockOperationRelease})
	require.NoError(t, err)
	assert.Len(t, releases.Items, 1)
}

func TestQueryService_LogsPaginatesWithCursor(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	productID := uuid.New()

	for i := 0; i < 5; i++ {
		f.seedLog(t, time.Duration(i)*time.Minute, models.StockAuditLog{
			ProductType: enums.ProductTypeFlight,
			ProductID:   productID,
			Quantity:    i + 1,
			Success:     true,
		})
	}

	first, err := f.query.Logs(ctx, LogFilter{ProductID: &productID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, 5, first.Items[0].Quantity)

	second, err := f.query.Logs(ctx, LogFilter{ProductID: &productID, Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, 3, second.Items[0].Quantity)

	third, err := f.query.Logs(ctx, LogFilter{ProductID: &productID, Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Empty(t, third.NextCursor)
}

func TestQueryService_LogsValidation(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	_, err := f.query.Logs(ctx, LogFilter{ProductType: "cruise"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.query.Logs(ctx, LogFilter{Limit: -1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	from := f.base
	to := f.base.Add(-time.Hour)
	_, err = f.query.Logs(ctx, LogFilter{From: &from, To: &to})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.query.Logs(ctx, LogFilter{Cursor: "bm90LWEtY3Vyc29y"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.query.UserOperations(ctx, uuid.Nil, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryService_Changes(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	svc, err := NewService(f.repo)
	require.NoError(t, err)

	productID := uuid.New()
	entry, err := svc.LogOperation(ctx, f.conn, LogOperationInput{
		OperationType: enums.StockOperationRelease,
		ProductType:   enums.ProductTypeActivity,
		ProductID:     productID,
		Quantity:      2,
		PreviousStock: intPtr(2),
		NewStock:      intPtr(0),
		Success:       true,
	})
	require.NoError(t, err)
	_, err = svc.LogChange(ctx, f.conn, entry, "reserved_seats", intPtr(2), intPtr(0))
	require.NoError(t, err)

	other, err := svc.LogOperation(ctx, f.conn, LogOperationInput{
		OperationType: enums.StockOperationReserve,
		ProductType:   enums.ProductTypeRoom,
		ProductID:     uuid.New(),
		Quantity:      1,
		PreviousStock: intPtr(4),
		NewStock:      intPtr(3),
		Success:       true,
	})
	require.NoError(t, err)
	_, err = svc.LogChange(ctx, f.conn, other, "available_quantity", intPtr(4), intPtr(3))
	require.NoError(t, err)

	changes, err := f.query.Changes(ctx, ChangeFilter{ProductType: enums.ProductTypeActivity, ProductID: &productID})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, enums.StockChangeReset, changes[0].ChangeType)
	assert.Equal(t, -2, changes[0].ChangeAmount)

	decreases, err := f.query.Changes(ctx, ChangeFilter{ChangeType: enums.StockChangeDecrease})
	require.NoError(t, err)
	require.Len(t, decreases, 1)
	assert.Equal(t, "available_quantity", decreases[0].FieldName)

	byLog, err := f.query.Changes(ctx, ChangeFilter{AuditLogID: &entry.ID})
	require.NoError(t, err)
	assert.Len(t, byLog, 1)

	page, err := f.query.ProductHistory(ctx, enums.ProductTypeActivity, productID, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Len(t, page.Items[0].Changes, 1, "changes are preloaded on logs")
}

func TestQueryService_OperationSummary(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	productID := uuid.New()

	_, err := f.query.OperationSummary(ctx, enums.ProductTypeActivity, productID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	observations := []struct {
		op       enums.StockOperationType
		success  bool
		reserved int
	}{
		{enums.StockOperationReserve, true, 10},
		{enums.StockOperationReserve, true, 15},
		{enums.StockOperationReserve, false, 15},
		{enums.StockOperationRelease, true, 12},
	}
	for _, o := range observations {
		_, err := f.metrics.Record(ctx, f.conn, stockmetrics.Observation{
			ProductType:     enums.ProductTypeActivity,
			ProductID:       productID,
			TotalCapacity:   20,
			CurrentReserved: o.reserved,
			Operation:       o.op,
			Success:         o.success,
		})
		require.NoError(t, err)
	}

	summary, err := f.query.OperationSummary(ctx, enums.ProductTypeActivity, productID)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalOperations)
	assert.Equal(t, 2, summary.TotalReservations)
	assert.Equal(t, 1, summary.TotalReleases)
	assert.Equal(t, 1, summary.FailedOperations)
	assert.True(t, summary.SuccessRate.Equal(decimal.NewFromInt(75)), summary.SuccessRate.String())
	assert.Equal(t, 12, summary.CurrentReserved)
	assert.Equal(t, 8, summary.CurrentAvailable)
	assert.True(t, summary.UtilizationRate.Equal(decimal.NewFromInt(60)))
	assert.NotNil(t, summary.LastOperationAt)

	rows, err := f.query.Metrics(ctx, stockmetrics.ListFilter{ProductType: enums.ProductTypeActivity})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
