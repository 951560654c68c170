// Package state holds the intake form states and the per-user session store.
package state

import (
	"context"
	"errors"
)

// ErrSessionNotFound indicates that the user has no active session.
var ErrSessionNotFound = errors.New("session not found")

// Storage maps user ids to sessions.
type Storage interface {
	// Get returns the session of userID or ErrSessionNotFound.
	Get(ctx context.Context, userID int64) (Session, error)
	// Save stores the session under its UserID.
	Save(ctx context.Context, session Session) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID int64) error
	// All returns every stored session.
	All(ctx context.Context) ([]Session, error)
}
