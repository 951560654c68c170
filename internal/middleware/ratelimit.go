package middleware

import (
	"errors"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/bot/handlers"
	"github.com/Proton-105/course-intake-bot/internal/ratelimit"
	"github.com/Proton-105/course-intake-bot/pkg/metrics"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	message string
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component. message is
// sent to throttled users.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, message string, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		message: message,
		log:     log,
	}
}

// Handle returns a telebot middleware that enforces per-user rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		sender := c.Sender()
		if sender == nil {
			return next(c)
		}

		userID := sender.ID
		if m.rules.IsWhitelisted(userID) {
			return next(c)
		}

		result, err := m.limiter.Check(handlers.Context(c), ratelimit.UserKey(userID), m.rules.Limit, m.rules.Window)
		if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
			m.log.Warn("rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(c)
		}

		if result != nil && !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("user_id", userID))
			metrics.RecordRateLimited("per_user")
			if m.message == "" {
				return nil
			}
			return c.Send(m.message)
		}

		return next(c)
	}
}

// Middleware adapts Handle to the router chain.
func (m *RateLimitMiddleware) Middleware(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}
	wrapped := m.Handle(telebot.HandlerFunc(next))
	return handlers.Handler(wrapped)
}
