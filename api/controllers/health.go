package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/travelmarket/tourism-backend/api/responses"
	"github.com/travelmarket/tourism-backend/pkg/config"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is implemented by every dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tourism-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each named dependency; nil pingers are reported as
// skipped so optional dependencies do not fail the probe.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tourism-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = true
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness.dependency_down")
				}
				continue
			}
			checks[name] = "up"
		}

		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
