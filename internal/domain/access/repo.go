package access

import (
	"context"
	"errors"
)

// ErrNotSeeded is returned by Get when the singleton row does not exist yet.
var ErrNotSeeded = errors.New("access settings row not seeded")

// Repository persists the singleton access_settings row.
type Repository interface {
	Get(ctx context.Context) (*Record, error)
	// EnsureSingleton inserts the default row if it is missing. Concurrent
	// callers must not fail on the race.
	EnsureSingleton(ctx context.Context, defaults Settings) error
	// Save merges p into the stored row atomically, creating the row from
	// Defaults() when it is missing. Fields p leaves nil keep their stored
	// value even if another writer changed them since the caller last read.
	Save(ctx context.Context, p Patch, actorID int64) (*Record, error)
}
