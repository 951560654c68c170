package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateLimitChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Total number of rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	rateLimitRedisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Total number of Redis errors encountered by the limiter.",
	})
)

// AdaptiveLimiter delegates to a primary (Redis) limiter and falls back to a
// stricter in-memory limiter when the primary fails or is absent.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

// NewAdaptiveLimiter creates a limiter that adapts between Redis and in-memory backends.
// primary may be nil when Redis is disabled; the fallback then enforces the full limit.
func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	if fallback == nil {
		fallback = NewMemoryLimiter()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check returns ErrLimitExceeded together with the result when the key is over its limit.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if a.primary == nil {
		return a.checkFallback(ctx, "memory", key, limit, window)
	}

	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		return observe("redis", result)
	}

	rateLimitRedisErrorsTotal.Inc()
	a.log.Warn("redis limiter failed, falling back to in-memory", slog.String("key", key), slog.Any("error", err))

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	return a.checkFallback(ctx, "fallback", key, fallbackLimit, window)
}

func (a *AdaptiveLimiter) checkFallback(ctx context.Context, backend, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.fallback.Check(ctx, key, limit, window)
	if err != nil {
		return result, err
	}
	return observe(backend, result)
}

func observe(backend string, result *Result) (*Result, error) {
	if result.Allowed {
		rateLimitChecksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}

	rateLimitChecksTotal.WithLabelValues(backend, "rejected").Inc()
	return result, ErrLimitExceeded
}
