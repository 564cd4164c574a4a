package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/travelmarket/tourism-backend/api/controllers"
	"github.com/travelmarket/tourism-backend/api/middleware"
	"github.com/travelmarket/tourism-backend/pkg/config"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/redis"
)

// Dependencies groups the services the router exposes.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       *redis.Client
	Gatherer    prometheus.Gatherer
	Stock       controllers.StockReader
	Audit       controllers.AuditReader
	Orders      controllers.OrderTransitioner
	RateLimiter redis.RateLimiter
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.RateLimit(apiPolicy, deps.RateLimiter, logg))
		if cfg.HTTP.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.HTTP.RequestTimeout))
		}

		r.Route("/stock", func(r chi.Router) {
			r.Get("/metrics", controllers.StockMetrics(deps.Audit, logg))
			r.Post("/validate", controllers.StockValidateBulk(deps.Stock, logg))
			r.Get("/{type}/{id}/summary", controllers.StockSummary(deps.Stock, logg))
			r.Get("/{type}/{id}/check", controllers.StockCheck(deps.Stock, logg))
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/logs", controllers.AuditLogs(deps.Audit, logg))
			r.Get("/changes", controllers.AuditChanges(deps.Audit, logg))
			r.Get("/{type}/{id}/summary", controllers.AuditProductSummary(deps.Audit, logg))
		})

		r.Post("/orders/{id}/state", controllers.OrderTransition(deps.Orders, logg))
	})

	return r
}
