// Package datastore persists resolved product images behind ImageRecordStore.
package datastore

import (
	"context"
	"time"
)

// ImageRecordStore is the persistence boundary of the image resolution
// service. Read paths only ever see active records.
type ImageRecordStore interface {
	// FindActiveByKey returns the active record for a canonical key, or nil
	// without error when there is none.
	FindActiveByKey(ctx context.Context, key string) (*ImageRecord, error)

	// Insert stores a new active record. The key is canonicalized and an ID
	// assigned when empty. A second active record for the same key fails
	// with ErrDuplicateKey.
	Insert(ctx context.Context, record *ImageRecord) (*ImageRecord, error)

	// Update applies patch to the record with the given ID.
	Update(ctx context.Context, id string, patch ImageRecordPatch) (*ImageRecord, error)

	// ListByScope returns active records first resolved for scope, newest first.
	ListByScope(ctx context.Context, scope string) ([]ImageRecord, error)

	CountActive(ctx context.Context) (int64, error)
	GroupCountByOrigin(ctx context.Context) (map[string]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)

	// DeleteInactive hard-deletes every inactive record and reports how many
	// were removed.
	DeleteInactive(ctx context.Context) (int64, error)

	Close() error
}
