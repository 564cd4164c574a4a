package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/travelmarket/tourism-backend/api/responses"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy caps requests per client IP in a fixed window.
type RateLimitPolicy struct {
	name   string
	limit  int64
	window time.Duration
}

// NewRateLimitPolicy builds a policy; a non-positive limit or window disables it.
func NewRateLimitPolicy(name string, limit int64, window time.Duration) RateLimitPolicy {
	return RateLimitPolicy{
		name:   strings.ToLower(strings.TrimSpace(name)),
		limit:  limit,
		window: window,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.limit > 0 && p.window > 0
}

func (p RateLimitPolicy) scope(ip string) string {
	name := p.name
	if name == "" {
		name = "api"
	}
	return fmt.Sprintf("%s:ip:%s", name, ip)
}

// RateLimit rejects callers over the policy with 429. Limiter errors fail
// open so a Redis outage never blocks stock reads.
func RateLimit(policy RateLimitPolicy, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			if ip == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(ip), policy.limit, policy.window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate_limit.unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"ip":             ip,
						"attempts":       count,
						"limit":          policy.limit,
						"window_seconds": int(policy.window.Seconds()),
					}), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(policy.window.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").
					WithDetails(map[string]any{"limit": policy.limit}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
