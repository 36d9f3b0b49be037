package datastore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/precivox/precivox-images/internal/errors"
)

// CanonicalKey lower-cases and trims a product title. The store applies it to
// every key it writes or looks up so callers cannot bypass canonicalization.
func CanonicalKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// GormStore implements ImageRecordStore on any GORM dialect.
type GormStore struct {
	db     *gorm.DB
	now    func() time.Time
	closer func() error
}

// NewGormStore wraps an open connection. The schema must already be migrated;
// Open does that for configured backends.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:  db,
		now: time.Now,
	}
}

// FindActiveByKey returns the active record for key, or nil on a miss.
func (s *GormStore) FindActiveByKey(ctx context.Context, key string) (*ImageRecord, error) {
	key = CanonicalKey(key)

	var record ImageRecord
	err := s.db.WithContext(ctx).
		Where("active_key = ?", key).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "find_active_by_key", "key", key)
	}
	return &record, nil
}

// Insert stores record as a new active entry. When another active record
// already holds the key the insert is skipped and ErrDuplicateKey returned.
func (s *GormStore) Insert(ctx context.Context, record *ImageRecord) (*ImageRecord, error) {
	if record == nil {
		return nil, dbError(ErrInvalidRecord, "insert")
	}

	rec := *record
	rec.Key = CanonicalKey(rec.Key)
	if rec.Key == "" || rec.URL == "" {
		return nil, dbError(ErrInvalidRecord, "insert", "key", rec.Key)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Active = true
	rec.ActiveKey = &rec.Key

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "active_key"}},
			DoNothing: true,
		}).
		Create(&rec)
	if result.Error != nil {
		return nil, dbError(result.Error, "insert", "key", rec.Key)
	}
	if result.RowsAffected == 0 {
		return nil, dbError(ErrDuplicateKey, "insert", "key", rec.Key)
	}

	return &rec, nil
}

// Update applies patch to the record with the given ID and returns the
// stored result. Deactivating releases the active key; reactivating claims it
// again and fails with ErrDuplicateKey when another record holds it.
func (s *GormStore) Update(ctx context.Context, id string, patch ImageRecordPatch) (*ImageRecord, error) {
	var updated ImageRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&updated).Error; err != nil {
			return err
		}
		if patch.empty() {
			return nil
		}

		changes := map[string]any{"updated_at": s.now()}
		if patch.URL != nil {
			changes["url"] = *patch.URL
		}
		if patch.Origin != nil {
			changes["origin"] = *patch.Origin
		}
		if patch.Provider != nil {
			changes["provider"] = *patch.Provider
		}
		if patch.Scope != nil {
			changes["scope"] = *patch.Scope
		}
		if patch.Metadata != nil {
			changes["metadata"] = patch.Metadata
		}
		if patch.Active != nil {
			changes["active"] = *patch.Active
			if *patch.Active {
				changes["active_key"] = updated.Key
			} else {
				changes["active_key"] = gorm.Expr("NULL")
			}
		}

		if err := tx.Model(&ImageRecord{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Take(&updated).Error
	})
	if err != nil {
		return nil, dbError(err, "update", "id", id)
	}

	return &updated, nil
}

// ListByScope returns active records for scope, newest first.
func (s *GormStore) ListByScope(ctx context.Context, scope string) ([]ImageRecord, error) {
	var records []ImageRecord
	err := s.db.WithContext(ctx).
		Where("scope = ? AND active = ?", scope, true).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, dbError(err, "list_by_scope", "scope", scope)
	}
	return records, nil
}

// CountActive returns the number of active records.
func (s *GormStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ImageRecord{}).
		Where("active = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, dbError(err, "count_active")
	}
	return count, nil
}

// GroupCountByOrigin returns active record counts keyed by origin.
func (s *GormStore) GroupCountByOrigin(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Origin string
		Total  int64
	}
	err := s.db.WithContext(ctx).Model(&ImageRecord{}).
		Select("origin, COUNT(*) AS total").
		Where("active = ?", true).
		Group("origin").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "group_count_by_origin")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Origin] = row.Total
	}
	return counts, nil
}

// CountCreatedSince returns the number of active records created at or after since.
func (s *GormStore) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ImageRecord{}).
		Where("active = ? AND created_at >= ?", true, since).
		Count(&count).Error
	if err != nil {
		return 0, dbError(err, "count_created_since")
	}
	return count, nil
}

// DeleteInactive hard-deletes inactive records.
func (s *GormStore) DeleteInactive(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("active = ?", false).
		Delete(&ImageRecord{})
	if result.Error != nil {
		return 0, dbError(result.Error, "delete_inactive")
	}
	return result.RowsAffected, nil
}

// Close releases the underlying connection pool when the store opened it.
func (s *GormStore) Close() error {
	if s.closer == nil {
		return nil
	}
	if err := s.closer(); err != nil {
		return dbError(err, "close")
	}
	return nil
}

var _ ImageRecordStore = (*GormStore)(nil)
