package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/repository"
)

// ReferenceService serves the material master and staff roster.
type ReferenceService struct {
	store repository.Store
}

// NewReferenceService builds a service reading from store.
func NewReferenceService(store repository.Store) *ReferenceService {
	return &ReferenceService{store: store}
}

// ListMaterials returns the material master ordered by code.
func (s *ReferenceService) ListMaterials(ctx context.Context) ([]models.Material, error) {
	materials, err := s.store.ListMaterials(ctx)
	if err != nil {
		return nil, storeError(err, "material", "")
	}
	if materials == nil {
		materials = []models.Material{}
	}
	return materials, nil
}

// ListActiveStaff returns active staff ordered by name.
func (s *ReferenceService) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	staff, err := s.store.ListActiveStaff(ctx)
	if err != nil {
		return nil, storeError(err, "staff", "")
	}
	if staff == nil {
		staff = []models.Staff{}
	}
	return staff, nil
}

// ImportMaterials upserts materials by code. When a code repeats within one
// batch the last entry wins.
func (s *ReferenceService) ImportMaterials(ctx context.Context, p auth.Principal, materials []models.Material) (int, error) {
	if !p.Is(auth.RoleAdmin) {
		return 0, apperr.NewPermissionDenied("import materials")
	}
	clean := make([]models.Material, 0, len(materials))
	position := make(map[string]int, len(materials))
	for i, m := range materials {
		m.Code = strings.TrimSpace(m.Code)
		m.Name = strings.TrimSpace(m.Name)
		if m.Code == "" {
			return 0, apperr.NewValidation(fmt.Sprintf("materials[%d].code", i), "is required")
		}
		if m.Name == "" {
			return 0, apperr.NewValidation(fmt.Sprintf("materials[%d].name", i), "is required")
		}
		if at, ok := position[m.Code]; ok {
			clean[at] = m
			continue
		}
		position[m.Code] = len(clean)
		clean = append(clean, m)
	}
	if err := s.store.UpsertMaterials(ctx, clean); err != nil {
		return 0, storeError(err, "material", "")
	}
	return len(clean), nil
}

// Seed adds the default material master and staff roster. Existing entries,
// including imported names for default codes, are left alone.
func (s *ReferenceService) Seed(ctx context.Context) error {
	materials := append([]models.Material(nil), models.DefaultMaterials...)
	if err := s.store.SeedMaterials(ctx, materials); err != nil {
		return storeError(err, "material", "")
	}
	staff := append([]models.Staff(nil), models.DefaultStaff...)
	return storeError(s.store.SeedStaff(ctx, staff), "staff", "")
}
