// Package idempotency guarantees that a Telegram update is processed at most once,
// even when the platform redelivers it after a timeout.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultTTL is how long a completed key is remembered.
	DefaultTTL = 24 * time.Hour
	// DefaultLockTTL bounds how long an in-flight claim blocks redeliveries.
	DefaultLockTTL = 5 * time.Minute
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation is the unit of work guarded by a key.
type Operation func(ctx context.Context) error

// Result reports whether the operation ran or was skipped as a duplicate.
type Result struct {
	Duplicate bool
}

type Manager interface {
	Execute(ctx context.Context, key string, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	ttl     time.Duration
	lockTTL time.Duration
	log     *slog.Logger
}

// NewManager returns a Manager backed by store. Non-positive TTLs use the defaults.
func NewManager(store Store, ttl, lockTTL time.Duration, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}

	return &manager{
		store:   store,
		ttl:     ttl,
		lockTTL: lockTTL,
		log:     log,
	}
}

// Execute runs fn once per key. A failed run releases the key so a redelivered
// update is processed again.
func (m *manager) Execute(ctx context.Context, key string, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	claimed, err := m.store.Claim(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}

	if !claimed {
		status, err := m.store.Status(ctx, key)
		if err != nil {
			return nil, err
		}
		if status == StatusProcessing {
			return nil, ErrRequestInProgress
		}

		m.log.Debug("duplicate update skipped", slog.String("key", key))
		return &Result{Duplicate: true}, nil
	}

	if err := fn(ctx); err != nil {
		if releaseErr := m.store.Release(ctx, key); releaseErr != nil {
			m.log.Warn("failed to release idempotency key", slog.String("key", key), slog.Any("error", releaseErr))
		}
		return nil, err
	}

	if err := m.store.Complete(ctx, key, m.ttl); err != nil {
		return nil, err
	}

	return &Result{Duplicate: false}, nil
}
