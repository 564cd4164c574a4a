package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/orders"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/config"
	"github.com/travelmarket/tourism-backend/pkg/db"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/metrics"
)

// Engine holds the wired stock services shared by the api and cron binaries.
type Engine struct {
	Audit        audit.Service
	AuditQuery   audit.QueryService
	StockMetrics stockmetrics.Service
	Stock        stock.Service
	OrdersRepo   orders.Repository
	Orders       orders.Service
	Counters     *metrics.StockMetrics
}

// New wires the reservation engine over client. reg may be nil to skip
// Prometheus counters.
func New(client *db.Client, cfg config.StockConfig, logg *logger.Logger, reg prometheus.Registerer) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	conn := client.DB()

	auditSvc, err := audit.NewService(audit.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}
	metricsSvc, err := stockmetrics.NewService(stockmetrics.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("stock metrics service: %w", err)
	}
	querySvc, err := audit.NewQueryService(audit.NewRepository(conn), metricsSvc)
	if err != nil {
		return nil, fmt.Errorf("audit query service: %w", err)
	}

	counters := metrics.NewStockMetrics(reg)
	stockSvc, err := stock.NewService(stock.ServiceParams{
		DB:             client,
		Audit:          auditSvc,
		Metrics:        metricsSvc,
		Logger:         logg,
		Counters:       counters,
		AuditEnabled:   cfg.AuditEnabled,
		MetricsEnabled: cfg.MetricsEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("stock service: %w", err)
	}

	ordersRepo := orders.NewRepository(conn)
	hook, err := orders.NewCancellationHook(ordersRepo, stockSvc, logg)
	if err != nil {
		return nil, fmt.Errorf("cancellation hook: %w", err)
	}
	ordersSvc, err := orders.NewService(ordersRepo, client, hook, logg)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	return &Engine{
		Audit:        auditSvc,
		AuditQuery:   querySvc,
		StockMetrics: metricsSvc,
		Stock:        stockSvc,
		OrdersRepo:   ordersRepo,
		Orders:       ordersSvc,
		Counters:     counters,
	}, nil
}
