package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelmarket/tourism-backend/api/middleware"
	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/orders"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/config"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/types"
)

type stubStock struct {
	summary   *stock.StockSummary
	check     *stock.CheckResult
	bulk      *stock.BulkValidation
	err       error
	lastType  enums.ProductType
	lastQty   int
	lastItems []stock.BulkItem
}

func (s *stubStock) Check(ctx context.Context, productType enums.ProductType, id uuid.UUID, qty int) (*stock.CheckResult, error) {
	s.lastType, s.lastQty = productType, qty
	return s.check, s.err
}

func (s *stubStock) ValidateBulk(ctx context.Context, items []stock.BulkItem) (*stock.BulkValidation, error) {
	s.lastItems = items
	return s.bulk, s.err
}

func (s *stubStock) GetStockSummary(ctx context.Context, productType enums.ProductType, id uuid.UUID) (*stock.StockSummary, error) {
	s.lastType = productType
	return s.summary, s.err
}

type stubAudit struct {
	page       *audit.LogPage
	summary    *audit.OperationSummary
	err        error
	lastFilter audit.LogFilter
	lastChange audit.ChangeFilter
	lastList   stockmetrics.ListFilter
}

func (s *stubAudit) Logs(ctx context.Context, filter audit.LogFilter) (*audit.LogPage, error) {
	s.lastFilter = filter
	return s.page, s.err
}

func (s *stubAudit) Changes(ctx context.Context, filter audit.ChangeFilter) ([]models.StockChangeHistory, error) {
	s.lastChange = filter
	return []models.StockChangeHistory{}, s.err
}

func (s *stubAudit) OperationSummary(ctx context.Context, productType enums.ProductType, id uuid.UUID) (*audit.OperationSummary, error) {
	return s.summary, s.err
}

func (s *stubAudit) Metrics(ctx context.Context, filter stockmetrics.ListFilter) ([]models.StockMetrics, error) {
	s.lastList = filter
	return []models.StockMetrics{}, s.err
}

type stubTransitioner struct {
	lastState enums.OrderState
	lastActor stock.Actor
	err       error
}

func (s *stubTransitioner) TransitionState(ctx context.Context, orderID uuid.UUID, next enums.OrderState, actor stock.Actor) (*orders.TransitionResult, error) {
	s.lastState, s.lastActor = next, actor
	if s.err != nil {
		return nil, s.err
	}
	return &orders.TransitionResult{OrderID: orderID, Current: next, Changed: true}, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func serve(t *testing.T, pattern, method string, h http.HandlerFunc, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(middleware.RequestID(nil), middleware.Actor(nil))
	r.Method(method, pattern, h)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("X-Request-Id", "req-test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env.Error
}

func TestStockSummaryHandler(t *testing.T) {
	id := uuid.New()
	svc := &stubStock{summary: &stock.StockSummary{ProductType: enums.ProductTypeRoom, ID: id, Total: 5, Reserved: 2, Available: 3}}

	rec := serve(t, "/api/stock/{type}/{id}/summary", http.MethodGet, StockSummary(svc, logger.Nop()), "/api/stock/room/"+id.String()+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.ProductTypeRoom, svc.lastType)

	var env struct {
		Data stock.StockSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, 3, env.Data.Available)
}

func TestStockSummaryRejectsBadPath(t *testing.T) {
	svc := &stubStock{}
	rec := serve(t, "/api/stock/{type}/{id}/summary", http.MethodGet, StockSummary(svc, logger.Nop()), "/api/stock/cruise/"+uuid.NewString()+"/summary", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, "/api/stock/{type}/{id}/summary", http.MethodGet, StockSummary(svc, logger.Nop()), "/api/stock/room/abc/summary", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStockSummaryNotFound(t *testing.T) {
	svc := &stubStock{err: pkgerrors.New(pkgerrors.CodeNotFound, "availability not found")}
	rec := serve(t, "/api/stock/{type}/{id}/summary", http.MethodGet, StockSummary(svc, logger.Nop()), "/api/stock/flight/"+uuid.NewString()+"/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), decodeError(t, rec).Code)
}

func TestStockCheckHandler(t *testing.T) {
	svc := &stubStock{check: &stock.CheckResult{Remaining: 4, Enough: true}}
	rec := serve(t, "/api/stock/{type}/{id}/check", http.MethodGet, StockCheck(svc, logger.Nop()), "/api/stock/activity/"+uuid.NewString()+"/check?quantity=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.lastQty)

	rec = serve(t, "/api/stock/{type}/{id}/check", http.MethodGet, StockCheck(svc, logger.Nop()), "/api/stock/activity/"+uuid.NewString()+"/check?quantity=0", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStockValidateBulkHandler(t *testing.T) {
	svc := &stubStock{bulk: &stock.BulkValidation{Valid: false}}
	id := uuid.New()
	body := `{"items":[{"product_type":"activity","availability_id":"` + id.String() + `","quantity":2}]}`

	rec := serve(t, "/api/stock/validate", http.MethodPost, StockValidateBulk(svc, logger.Nop()), "/api/stock/validate", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.lastItems, 1)
	assert.Equal(t, id, svc.lastItems[0].AvailabilityID)

	rec = serve(t, "/api/stock/validate", http.MethodPost, StockValidateBulk(svc, logger.Nop()), "/api/stock/validate", `{"items":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAuditLogsParsesFilters(t *testing.T) {
	svc := &stubAudit{page: &audit.LogPage{}}
	productID := uuid.New()
	target := "/api/audit/logs?product_type=Activity&product_id=" + productID.String() +
		"&operation_type=reserve&success=false&from=2026-03-01T00:00:00Z&limit=10&cursor=abc"

	rec := serve(t, "/api/audit/logs", http.MethodGet, AuditLogs(svc, logger.Nop()), target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	f := svc.lastFilter
	assert.Equal(t, enums.ProductTypeActivity, f.ProductType)
	assert.Equal(t, productID, *f.ProductID)
	assert.Equal(t, enums.StockOperationReserve, f.OperationType)
	require.NotNil(t, f.Success)
	assert.False(t, *f.Success)
	require.NotNil(t, f.From)
	assert.Nil(t, f.To)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, "abc", f.Cursor)
}

func TestAuditLogsPropagatesValidation(t *testing.T) {
	svc := &stubAudit{err: pkgerrors.New(pkgerrors.CodeValidation, "invalid audit filter")}
	rec := serve(t, "/api/audit/logs", http.MethodGet, AuditLogs(svc, logger.Nop()), "/api/audit/logs?product_type=cruise", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(t, "/api/audit/logs", http.MethodGet, AuditLogs(&stubAudit{}, logger.Nop()), "/api/audit/logs?success=maybe", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAuditChangesAndMetrics(t *testing.T) {
	svc := &stubAudit{}
	rec := serve(t, "/api/audit/changes", http.MethodGet, AuditChanges(svc, logger.Nop()), "/api/audit/changes?change_type=reset&field_name=reserved_seats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.StockChangeReset, svc.lastChange.ChangeType)
	assert.Equal(t, "reserved_seats", svc.lastChange.FieldName)

	rec = serve(t, "/api/stock/metrics", http.MethodGet, StockMetrics(svc, logger.Nop()), "/api/stock/metrics?product_type=flight&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.ProductTypeFlight, svc.lastList.ProductType)
	assert.Equal(t, 5, svc.lastList.Limit)
}

func TestAuditProductSummary(t *testing.T) {
	svc := &stubAudit{summary: &audit.OperationSummary{TotalOperations: 4}}
	rec := serve(t, "/api/audit/{type}/{id}/summary", http.MethodGet, AuditProductSummary(svc, logger.Nop()), "/api/audit/transportation/"+uuid.NewString()+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderTransitionHandler(t *testing.T) {
	svc := &stubTransitioner{}
	orderID := uuid.New()
	userID := uuid.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID(nil), middleware.Actor(nil))
	r.Post("/api/orders/{id}/state", OrderTransition(svc, logger.Nop()))

	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/state", strings.NewReader(`{"state":"Cancelled"}`))
	req.Header.Set("X-User-Id", userID.String())
	req.Header.Set("X-Request-Id", "req-cancel")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.OrderStateCancelled, svc.lastState)
	require.NotNil(t, svc.lastActor.UserID)
	assert.Equal(t, userID, *svc.lastActor.UserID)
	assert.Equal(t, "req-cancel", svc.lastActor.RequestID)

	rec = serve(t, "/api/orders/{id}/state", http.MethodPost, OrderTransition(svc, logger.Nop()), "/api/orders/"+orderID.String()+"/state", `{"state":"Shipped"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOrderTransitionConflict(t *testing.T) {
	svc := &stubTransitioner{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move from Cancelled to Confirmed")}
	rec := serve(t, "/api/orders/{id}/state", http.MethodPost, OrderTransition(svc, logger.Nop()), "/api/orders/"+uuid.NewString()+"/state", `{"state":"Confirmed"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), decodeError(t, rec).Code)
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), map[string]Pinger{"db": stubPinger{}, "redis": nil})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Tourism-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, logger.Nop(), map[string]Pinger{"db": stubPinger{err: errors.New("down")}})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.CodeDependency), apiErr.Code)
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(&config.Config{App: config.AppConfig{Env: "prod"}})(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
