package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/catalogix/backend/internal/models"
)

type TenantService struct {
	db *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService {
	return &TenantService{db: db}
}

// GetOrCreate resolves a tenant by name, creating it on first use. The
// unique index on name makes this idempotent: a concurrent creator winning
// the race is detected and its row is returned.
func (s *TenantService) GetOrCreate(name string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.First(&tenant, "name = ?", name).Error
	if err == nil {
		return &tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up tenant: %w", err)
	}

	tenant = models.Tenant{Name: name}
	if err := s.db.Create(&tenant).Error; err != nil {
		if isUniqueViolation(err) {
			var existing models.Tenant
			if err := s.db.First(&existing, "name = ?", name).Error; err != nil {
				return nil, fmt.Errorf("failed to fetch tenant after create conflict: %w", err)
			}
			return &existing, nil
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return &tenant, nil
}
