package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/repository"
)

// ListComplaints returns complaints with their jobs, most recently registered
// first. Tenants only ever see their own complaints; staff may narrow the list
// to one tenant.
func (s *ComplaintService) ListComplaints(ctx context.Context, p auth.Principal, tenantID *uuid.UUID) ([]models.Complaint, error) {
	filter := repository.ComplaintFilter{TenantID: tenantID}
	if p.Role == auth.RoleTenant {
		if p.TenantID == nil || (tenantID != nil && *tenantID != *p.TenantID) {
			return nil, apperr.NewPermissionDenied("list another tenant's complaints")
		}
		filter.TenantID = p.TenantID
	}
	complaints, err := s.store.ListComplaints(ctx, filter)
	if err != nil {
		return nil, storeError(err, "complaint", "")
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	return complaints, nil
}

// GetComplaint returns the complaint with its jobs, or nil when no complaint
// visible to p has that id.
func (s *ComplaintService) GetComplaint(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Complaint, error) {
	complaint, err := s.store.FindComplaint(ctx, id)
	if err != nil {
		if err := storeError(err, "complaint", id.String()); !apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, nil
	}
	if p.Role == auth.RoleTenant && !sameTenant(complaint.TenantID, p.TenantID) {
		return nil, nil
	}
	return complaint, nil
}

func sameTenant(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}
