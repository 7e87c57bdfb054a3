package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/models"
	"github.com/catalogix/backend/internal/pkg/imageutil"
	"github.com/catalogix/backend/internal/storage"
)

// IngestService coordinates an upload: exact-match dedup by content hash,
// decode and fingerprinting, then per-preset reuse-or-generate of renditions.
type IngestService struct {
	db      *gorm.DB
	cfg     *config.Config
	store   storage.Storage
	tenants *TenantService
	reuse   *ReuseService
}

func NewIngestService(db *gorm.DB, cfg *config.Config, store storage.Storage, tenants *TenantService, reuse *ReuseService) *IngestService {
	return &IngestService{db: db, cfg: cfg, store: store, tenants: tenants, reuse: reuse}
}

// Ingest processes an uploaded image for a tenant and returns the asset with
// its renditions. Re-uploading identical bytes returns the existing asset
// without any new hashing, encoding or storage work.
func (s *IngestService) Ingest(ctx context.Context, tenantName, filename string, data []byte) (*models.Asset, error) {
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), s.cfg.MaxUploadBytes)
	}

	contentHash := imageutil.ContentHash(data)

	existing, err := s.findByContentHash(contentHash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	img, err := imageutil.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	bounds := img.Bounds()

	phash, err := imageutil.PerceptualHash(img, s.cfg.PhashSize)
	if err != nil {
		return nil, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}

	tenant, err := s.tenants.GetOrCreate(tenantName)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = "unknown"
	}
	asset := &models.Asset{
		TenantID:          tenant.ID,
		ContentHash:       contentHash,
		OriginalFilename:  filename,
		OriginalSizeBytes: int64(len(data)),
		OriginalWidth:     bounds.Dx(),
		OriginalHeight:    bounds.Dy(),
		Phash:             phash,
		InUseCount:        0,
	}
	created, err := s.insertAsset(asset)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent upload of the same bytes won the race; asset now
		// points at the winner's row, renditions included.
		return asset, nil
	}

	if err := s.createRenditions(ctx, asset, img, phash, contentHash); err != nil {
		return nil, err
	}

	if err := s.db.Preload("Renditions").Preload("Tenant").First(asset, "id = ?", asset.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload asset: %w", err)
	}
	return asset, nil
}

// insertAsset persists a new asset row. When the unique index on content_hash
// rejects the insert, the race loser fetches the winner's row into asset and
// reports created=false; the conflict is never surfaced to the caller.
func (s *IngestService) insertAsset(asset *models.Asset) (created bool, err error) {
	if err := s.db.Create(asset).Error; err != nil {
		if !isUniqueViolation(err) {
			return false, fmt.Errorf("failed to create asset: %w", err)
		}
		winner, ferr := s.findByContentHash(asset.ContentHash)
		if ferr != nil {
			return false, ferr
		}
		if winner == nil {
			return false, fmt.Errorf("failed to create asset: %w", err)
		}
		*asset = *winner
		return false, nil
	}
	return true, nil
}

// createRenditions runs the per-preset loop: alias an existing near-duplicate
// rendition when the index finds one, otherwise generate, store, then persist.
// A rendition row is only written after its storage write succeeded, so no
// row can point at a missing object. In non-strict mode a failed preset is
// logged and skipped; the remaining presets still run.
func (s *IngestService) createRenditions(ctx context.Context, asset *models.Asset, img image.Image, phash, contentHash string) error {
	for _, name := range s.cfg.PresetNames() {
		preset := s.cfg.Presets[name]

		candidate, err := s.reuse.FindReuseCandidate(name, phash, asset.ID)
		if err != nil {
			return err
		}
		if candidate != nil {
			// Alias the existing artifact verbatim: same location, size,
			// dimensions, quality and hash. No re-encoding.
			rendition := &models.Rendition{
				AssetID:    asset.ID,
				Preset:     name,
				StorageKey: candidate.StorageKey,
				SizeBytes:  candidate.SizeBytes,
				Width:      candidate.Width,
				Height:     candidate.Height,
				Quality:    candidate.Quality,
				Phash:      candidate.Phash,
			}
			if err := s.db.Create(rendition).Error; err != nil {
				return fmt.Errorf("failed to create aliased rendition for preset %s: %w", name, err)
			}
			continue
		}

		encoded, width, height, err := imageutil.GenerateRendition(img, preset.Width, preset.Height, s.cfg.RenditionQuality)
		if err != nil {
			return fmt.Errorf("failed to generate rendition for preset %s: %w", name, err)
		}

		renditionImg, err := imageutil.DecodeImage(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode generated rendition for preset %s: %w", name, err)
		}
		renditionPhash, err := imageutil.PerceptualHash(renditionImg, s.cfg.PhashSize)
		if err != nil {
			return fmt.Errorf("failed to hash rendition for preset %s: %w", name, err)
		}

		key := fmt.Sprintf("renditions/%s/%s.jpg", contentHash[:8], name)
		location, err := s.store.Put(ctx, key, encoded)
		if err != nil {
			if s.cfg.IngestStrict {
				return fmt.Errorf("failed to store rendition for preset %s: %w", name, err)
			}
			log.Printf("WARN: storage write failed for preset %s of asset %s: %v", name, asset.ID, err)
			continue
		}

		rendition := &models.Rendition{
			AssetID:    asset.ID,
			Preset:     name,
			StorageKey: location,
			SizeBytes:  int64(len(encoded)),
			Width:      width,
			Height:     height,
			Quality:    s.cfg.RenditionQuality,
			Phash:      renditionPhash,
		}
		if err := s.db.Create(rendition).Error; err != nil {
			return fmt.Errorf("failed to create rendition for preset %s: %w", name, err)
		}
	}
	return nil
}

// GetAsset returns an asset with its renditions and tenant.
func (s *IngestService) GetAsset(id uuid.UUID) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.Preload("Renditions").Preload("Tenant").First(&asset, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	return &asset, nil
}

func (s *IngestService) findByContentHash(contentHash string) (*models.Asset, error) {
	var asset models.Asset
	err := s.db.Preload("Renditions").Preload("Tenant").First(&asset, "content_hash = ?", contentHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up asset by content hash: %w", err)
	}
	return &asset, nil
}
