package ratelimit

import (
	"fmt"
	"time"

	"github.com/Proton-105/course-intake-bot/pkg/config"
)

// Rules holds the parsed per-user limit and the whitelist.
type Rules struct {
	Limit     int
	Window    time.Duration
	whitelist map[int64]struct{}
}

// NewRules parses the rate limit section of the configuration.
func NewRules(cfg config.RateLimitConfig) (*Rules, error) {
	window, err := time.ParseDuration(cfg.PerUser.Window)
	if err != nil {
		return nil, fmt.Errorf("parse rate_limit.per_user.window: %w", err)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate_limit.per_user.window must be positive")
	}

	whitelist := make(map[int64]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}

	return &Rules{Limit: cfg.PerUser.Limit, Window: window, whitelist: whitelist}, nil
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	_, ok := r.whitelist[userID]
	return ok
}
