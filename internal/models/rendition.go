package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rendition is a resized, re-encoded variant of an asset for one preset.
// StorageKey may be shared across renditions of different assets when a
// near-duplicate reuses an existing artifact; that aliasing is intentional.
type Rendition struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rendition_asset_preset" json:"asset_id"`
	Preset     string    `gorm:"size:64;not null;uniqueIndex:idx_rendition_asset_preset;index" json:"preset"`
	StorageKey string    `gorm:"size:512;not null;index" json:"storage_key"`
	SizeBytes  int64     `gorm:"not null" json:"size_bytes"`
	Width      int       `gorm:"not null" json:"width"`
	Height     int       `gorm:"not null" json:"height"`
	Quality    int       `gorm:"not null" json:"quality"`
	Phash      string    `gorm:"size:64;index;not null" json:"phash"` // perceptual hash of the encoded rendition (hex)

	CreatedAt time.Time `json:"created_at"`
}

func (r *Rendition) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
