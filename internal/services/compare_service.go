package services

import (
	"fmt"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/pkg/imageutil"
)

// CompareService measures an upload against every configured preset without
// persisting anything, and recommends the preset with the best
// bytes-per-pixel density.
type CompareService struct {
	cfg *config.Config
}

func NewCompareService(cfg *config.Config) *CompareService {
	return &CompareService{cfg: cfg}
}

type PresetComparison struct {
	Preset        string  `json:"preset"`
	SizeBytes     int64   `json:"size_bytes"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	QualityMetric float64 `json:"quality_metric"`
}

func (s *CompareService) Compare(data []byte) ([]PresetComparison, string, error) {
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, "", fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), s.cfg.MaxUploadBytes)
	}

	img, err := imageutil.DecodeImage(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	results := make([]PresetComparison, 0, len(s.cfg.Presets))
	recommended := ""
	best := -1.0
	for _, name := range s.cfg.PresetNames() {
		preset := s.cfg.Presets[name]
		encoded, width, height, err := imageutil.GenerateRendition(img, preset.Width, preset.Height, s.cfg.RenditionQuality)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate comparison rendition for preset %s: %w", name, err)
		}
		metric := imageutil.QualityMetric(width, height, int64(len(encoded)))
		results = append(results, PresetComparison{
			Preset:        name,
			SizeBytes:     int64(len(encoded)),
			Width:         width,
			Height:        height,
			QualityMetric: metric,
		})
		if metric > best {
			best = metric
			recommended = name
		}
	}

	return results, recommended, nil
}
