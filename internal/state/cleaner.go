package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner deletes sessions that stayed idle longer than the configured TTL.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner. A zero ttl disables it.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Enabled reports whether Run would do any work.
func (c *Cleaner) Enabled() bool {
	return c != nil && c.storage != nil && c.ttl > 0
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if !c.Enabled() {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep runs a single cleanup pass and returns the number of removed sessions.
func (c *Cleaner) Sweep(ctx context.Context) int {
	if !c.Enabled() || ctx.Err() != nil {
		return 0
	}

	sessions, err := c.storage.All(ctx)
	if err != nil {
		c.log.Error("session cleaner failed to list sessions", slog.Any("error", err))
		return 0
	}

	removed := 0
	for _, session := range sessions {
		if c.now().Sub(session.UpdatedAt) <= c.ttl {
			continue
		}

		if err := c.storage.Delete(ctx, session.UserID); err != nil {
			c.log.Error("session cleaner failed to delete session", slog.Int64("user_id", session.UserID), slog.Any("error", err))
			continue
		}
		removed++
		c.log.Info("idle session cleared", slog.Int64("user_id", session.UserID), slog.String("state", string(session.State)))
	}

	return removed
}
