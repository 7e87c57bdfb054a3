package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Asset represents one distinct content payload, keyed by its content hash.
// The same bytes uploaded twice resolve to the same row.
type Asset struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ContentHash       string    `gorm:"size:64;uniqueIndex;not null" json:"content_hash"` // SHA256 hex
	OriginalFilename  string    `gorm:"size:255;not null" json:"original_filename"`
	OriginalSizeBytes int64     `gorm:"not null" json:"original_size_bytes"`
	OriginalWidth     int       `gorm:"not null" json:"original_width"`
	OriginalHeight    int       `gorm:"not null" json:"original_height"`
	Phash             string    `gorm:"size:64;index;not null" json:"phash"` // perceptual hash of the original (hex)
	InUseCount        int       `gorm:"not null;default:0" json:"in_use_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tenant     *Tenant     `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Renditions []Rendition `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"renditions,omitempty"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
