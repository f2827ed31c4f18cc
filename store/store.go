package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/cuerecall/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// UpsertCue validates and writes a cue.
func (s *Store) UpsertCue(ctx context.Context, upsert *UpsertCue) (*Cue, error) {
	if err := upsert.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid cue")
	}
	if upsert.ObservedTs == 0 {
		upsert.ObservedTs = time.Now().Unix()
	}
	cue, err := s.driver.UpsertCue(ctx, upsert)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upsert cue %s/%s", upsert.Key, upsert.Type)
	}
	return cue, nil
}

func (s *Store) ListCues(ctx context.Context, find *FindCue) ([]*Cue, error) {
	return s.driver.ListCues(ctx, find)
}

// GetCue returns the single cue matching find, or ErrCueNotFound.
func (s *Store) GetCue(ctx context.Context, find *FindCue) (*Cue, error) {
	narrowed := *find
	narrowed.Limit = 1
	list, err := s.driver.ListCues(ctx, &narrowed)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrCueNotFound
	}
	return list[0], nil
}

func (s *Store) DeleteCue(ctx context.Context, delete *DeleteCue) error {
	return s.driver.DeleteCue(ctx, delete)
}
