package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/models"
	"github.com/catalogix/backend/internal/storage"
)

// PurgeService deletes assets nobody references anymore. An asset with a
// nonzero in_use_count is never deleted, even when the count changed after
// the candidate list was produced.
type PurgeService struct {
	db    *gorm.DB
	cfg   *config.Config
	store storage.Storage
}

func NewPurgeService(db *gorm.DB, cfg *config.Config, store storage.Storage) *PurgeService {
	return &PurgeService{db: db, cfg: cfg, store: store}
}

// PurgeResult reports what a purge run saw and did. Candidates are content
// hashes; StorageFailures counts best-effort storage deletes that failed.
type PurgeResult struct {
	DryRun          bool     `json:"dry_run"`
	Candidates      []string `json:"candidates"`
	DeletedCount    int      `json:"deleted_count"`
	StorageFailures int      `json:"storage_failures"`
}

// errCandidateInUse marks a candidate whose reference count became nonzero
// between listing and deletion.
var errCandidateInUse = errors.New("candidate is in use")

// ListPurgeCandidates returns all assets with a zero reference count,
// renditions included.
func (s *PurgeService) ListPurgeCandidates() ([]models.Asset, error) {
	var candidates []models.Asset
	err := s.db.Preload("Renditions").Where("in_use_count = 0").Order("created_at").Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purge candidates: %w", err)
	}
	return candidates, nil
}

// Purge runs the purge protocol. Dry runs are always permitted and never
// mutate anything. Destructive runs require confirmToken to match the
// configured secret and are refused otherwise before any deletion.
func (s *PurgeService) Purge(ctx context.Context, dryRun bool, confirmToken string) (*PurgeResult, error) {
	if !dryRun && confirmToken != s.cfg.PurgeConfirmToken {
		return nil, ErrBadConfirmToken
	}

	candidates, err := s.ListPurgeCandidates()
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{DryRun: dryRun, Candidates: make([]string, 0, len(candidates))}
	for i := range candidates {
		result.Candidates = append(result.Candidates, candidates[i].ContentHash)
	}
	if dryRun {
		return result, nil
	}

	for i := range candidates {
		storageKeys, err := s.deleteCandidate(&candidates[i])
		if errors.Is(err, errCandidateInUse) {
			log.Printf("Purge: skipping asset %s, reference count became nonzero", candidates[i].ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		result.DeletedCount++

		// Storage deletes happen after the rows are committed away, so a
		// skipped candidate never loses blobs its rows still point at.
		// Failures are swallowed: blob cleanup is best-effort and idempotent.
		for _, key := range storageKeys {
			if _, derr := s.store.Delete(ctx, key); derr != nil {
				log.Printf("WARN: failed to delete storage object %s: %v", key, derr)
				result.StorageFailures++
			}
		}
	}

	return result, nil
}

// deleteCandidate removes one candidate's rows inside a transaction. The
// zero-count condition is re-validated by the guarded delete itself; a stale
// candidate rolls back untouched. It returns the storage keys that are no
// longer referenced by any surviving rendition row, which the caller may
// delete after commit. Keys still aliased by another asset's rendition are
// kept.
func (s *PurgeService) deleteCandidate(asset *models.Asset) ([]string, error) {
	var orphanedKeys []string

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND in_use_count = 0", asset.ID).Delete(&models.Asset{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete asset %s: %w", asset.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return errCandidateInUse
		}

		for i := range asset.Renditions {
			key := asset.Renditions[i].StorageKey
			var shared int64
			if err := tx.Model(&models.Rendition{}).
				Where("storage_key = ? AND asset_id <> ?", key, asset.ID).
				Count(&shared).Error; err != nil {
				return fmt.Errorf("failed to count shared locations: %w", err)
			}
			if shared == 0 {
				orphanedKeys = append(orphanedKeys, key)
			}
		}

		if err := tx.Where("asset_id = ?", asset.ID).Delete(&models.Rendition{}).Error; err != nil {
			return fmt.Errorf("failed to delete renditions of asset %s: %w", asset.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphanedKeys, nil
}
