// Package db contains the metadata record stores
package db

import (
	"bitbnb/hosting-api/model"
	"context"
	"errors"
)

var (
	ErrRecordPersist    = errors.New("failed to persist record")
	ErrDuplicateShortID = errors.New("short id already exists")
	ErrNotFound         = errors.New("record not found")
)

// RecordStore persists upload metadata records. Implementations must enforce
// uniqueness of the short id themselves, callers never lock.
type RecordStore interface {
	Insert(ctx context.Context, r *model.Record) error
	FindByShortID(ctx context.Context, shortID string) (*model.Record, error)
	// ListByUsername returns a user's records newest first. Pages start at 0
	ListByUsername(ctx context.Context, username string, page, limit int) ([]model.Record, error)
	Close(ctx context.Context) error
}

func persistErr(err error) error {
	return errors.Join(ErrRecordPersist, err)
}
