package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/repository"
)

const minPasswordLength = 6

var mobilePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)

// NewTenant carries the sign-up form of a resident.
type NewTenant struct {
	MobileNo     string
	BuildingName models.BuildingName
	RoomNo       string
}

// TenantService manages resident accounts.
type TenantService struct {
	store repository.Store
}

// NewTenantService builds a service over store.
func NewTenantService(store repository.Store) *TenantService {
	return &TenantService{store: store}
}

// CreateTenant registers a tenant, storing only a bcrypt hash of the password.
func (s *TenantService) CreateTenant(ctx context.Context, in NewTenant, rawPassword string) (*models.Tenant, error) {
	mobile := strings.TrimSpace(in.MobileNo)
	if !mobilePattern.MatchString(mobile) {
		return nil, apperr.NewValidation("mobile_no", "must look like 555-123-4567")
	}
	if !in.BuildingName.Valid() {
		return nil, apperr.NewValidation("building_name", "unknown building")
	}
	if strings.TrimSpace(in.RoomNo) == "" {
		return nil, apperr.NewValidation("room_no", "is required")
	}
	if len(rawPassword) < minPasswordLength {
		return nil, apperr.NewValidation("password", "must be at least 6 characters")
	}

	hash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return nil, apperr.NewStorage(err)
	}
	tenant := &models.Tenant{
		MobileNo:     mobile,
		BuildingName: in.BuildingName,
		RoomNo:       strings.TrimSpace(in.RoomNo),
		PasswordHash: hash,
	}
	if err := s.store.CreateTenant(ctx, tenant); err != nil {
		return nil, storeError(err, "tenant", "")
	}
	return tenant, nil
}

// AuthenticateTenant returns the tenant when mobile and password match, and
// nil otherwise.
func (s *TenantService) AuthenticateTenant(ctx context.Context, mobile, rawPassword string) (*models.Tenant, error) {
	tenant, err := s.store.FindTenantByMobile(ctx, strings.TrimSpace(mobile))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "tenant", "")
	}
	if !auth.CheckPassword(rawPassword, tenant.PasswordHash) {
		return nil, nil
	}
	return tenant, nil
}
