package store

import (
	"context"
	"errors"
	"time"

	"github.com/voyagen/xtreamrelay/internal/models"
)

// ErrNotFound is returned by Get when no session exists for the identifier.
var ErrNotFound = errors.New("session not found")

// Store persists sessions by identifier. Implementations are safe for concurrent use.
type Store interface {
	// Get returns the session for id or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Session, error)
	// Put stores s under s.ID, replacing any previous session.
	Put(ctx context.Context, s models.Session) error
	// Delete removes the session for id. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// Sweep removes sessions authenticated before cutoff and returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	// Close releases backend resources.
	Close() error
}
