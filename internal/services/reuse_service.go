package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/models"
	"github.com/catalogix/backend/internal/pkg/imageutil"
)

// ReuseService is the near-duplicate index: it answers whether an existing
// rendition can be aliased for a new asset instead of encoding a fresh one.
type ReuseService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewReuseService(db *gorm.DB, cfg *config.Config) *ReuseService {
	return &ReuseService{db: db, cfg: cfg}
}

// candidateBatchSize bounds how many rendition rows are held in memory while
// scanning for a reuse candidate.
const candidateBatchSize = 500

var errCandidateFound = errors.New("candidate found")

// FindReuseCandidate returns the first rendition for the preset, in ascending
// id order, whose perceptual hash is within the configured hamming threshold
// of phash. Renditions owned by excludeAssetID are skipped, as are stored
// hashes of a different bit width (left behind by a hash-size change).
// Returns nil when no candidate qualifies.
//
// This is a linear scan, not a nearest-neighbor search: the first match under
// the threshold wins. That keeps the result stable under insertion order at
// the cost of O(n) per lookup, a known ceiling for very large catalogs.
func (s *ReuseService) FindReuseCandidate(preset, phash string, excludeAssetID uuid.UUID) (*models.Rendition, error) {
	var found *models.Rendition
	var batch []models.Rendition

	// FindInBatches pages in ascending primary-key order.
	err := s.db.
		Where("preset = ? AND asset_id <> ?", preset, excludeAssetID).
		FindInBatches(&batch, candidateBatchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				near, err := imageutil.IsNearDuplicate(phash, batch[i].Phash, s.cfg.PhashHammingThreshold)
				if err != nil {
					continue
				}
				if near {
					r := batch[i]
					found = &r
					return errCandidateFound
				}
			}
			return nil
		}).Error

	if err != nil && !errors.Is(err, errCandidateFound) {
		return nil, fmt.Errorf("failed to scan renditions for reuse: %w", err)
	}
	return found, nil
}
