package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/catalogix/backend/internal/models"
)

// MetricsService aggregates usage numbers for the admin surface.
type MetricsService struct {
	db *gorm.DB
}

func NewMetricsService(db *gorm.DB) *MetricsService {
	return &MetricsService{db: db}
}

type MetricsReport struct {
	TenantCounts   map[string]int64 `json:"tenant_counts"`
	BytesPerPreset map[string]int64 `json:"bytes_per_preset"`
}

func (s *MetricsService) Metrics() (*MetricsReport, error) {
	report := &MetricsReport{
		TenantCounts:   make(map[string]int64),
		BytesPerPreset: make(map[string]int64),
	}

	var tenantRows []struct {
		Name  string
		Count int64
	}
	err := s.db.Model(&models.Asset{}).
		Select("tenants.name AS name, COUNT(assets.id) AS count").
		Joins("JOIN tenants ON tenants.id = assets.tenant_id").
		Group("tenants.name").
		Scan(&tenantRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tenant counts: %w", err)
	}
	for _, row := range tenantRows {
		report.TenantCounts[row.Name] = row.Count
	}

	var presetRows []struct {
		Preset     string
		TotalBytes int64
	}
	err = s.db.Model(&models.Rendition{}).
		Select("preset, COALESCE(SUM(size_bytes), 0) AS total_bytes").
		Group("preset").
		Scan(&presetRows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rendition bytes: %w", err)
	}
	for _, row := range presetRows {
		report.BytesPerPreset[row.Preset] = row.TotalBytes
	}

	return report, nil
}
