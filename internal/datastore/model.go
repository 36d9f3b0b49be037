package datastore

import (
	"time"

	"gorm.io/datatypes"
)

// ImageRecord is a persisted product image, keyed by canonical product title.
//
// ActiveKey mirrors Key while the record is active and is NULL once it is
// deactivated. Its unique index enforces at most one active record per key on
// every supported backend while letting inactive duplicates accumulate until
// cleanup.
type ImageRecord struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	Key       string            `gorm:"size:200;not null;index:idx_product_images_key" json:"key"`
	ActiveKey *string           `gorm:"size:200;uniqueIndex:idx_product_images_active_key" json:"-"`
	URL       string            `gorm:"size:2048;not null" json:"url"`
	Origin    string            `gorm:"size:100;not null;index:idx_product_images_origin" json:"origin"`
	Provider  string            `gorm:"size:50" json:"provider,omitempty"`
	Scope     string            `gorm:"size:100;index:idx_product_images_scope" json:"scope,omitempty"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	Active    bool              `gorm:"not null;default:true;index:idx_product_images_active" json:"active"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index:idx_product_images_created_at" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (ImageRecord) TableName() string {
	return "product_images"
}

// ImageRecordPatch lists the mutable fields of a record. Nil fields are left
// untouched.
type ImageRecordPatch struct {
	URL      *string
	Origin   *string
	Provider *string
	Scope    *string
	Metadata datatypes.JSONMap
	Active   *bool
}

func (p ImageRecordPatch) empty() bool {
	return p.URL == nil && p.Origin == nil && p.Provider == nil &&
		p.Scope == nil && p.Metadata == nil && p.Active == nil
}
