package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Cue model related methods.
	UpsertCue(ctx context.Context, upsert *UpsertCue) (*Cue, error)
	ListCues(ctx context.Context, find *FindCue) ([]*Cue, error)
	DeleteCue(ctx context.Context, delete *DeleteCue) error
}
