package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/maintdesk/backend/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("duplicate key")
)

// ComplaintFilter narrows ListComplaints. A nil TenantID lists every complaint.
type ComplaintFilter struct {
	TenantID *uuid.UUID
}

// Store is the entity store behind the services. Implementations must make
// every call made on the tx handed to Transaction commit or roll back together.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	// LockComplaint loads a complaint without jobs and holds it until the
	// surrounding transaction ends.
	LockComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	// FindComplaint loads a complaint with its jobs in insertion order.
	FindComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error)
	// ListComplaints returns complaints with jobs, newest date_registered
	// first and ties in insertion order.
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) error
	// MarkDuplicateGenerated flips duplicate_generated from false to true and
	// reports whether this call performed the flip.
	MarkDuplicateGenerated(ctx context.Context, id uuid.UUID) (bool, error)

	CreateJob(ctx context.Context, job *models.Job) error
	// ApproveJob sets approved on the job and returns it.
	ApproveJob(ctx context.Context, id uuid.UUID) (*models.Job, error)

	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	FindTenantByMobile(ctx context.Context, mobile string) (*models.Tenant, error)

	ListMaterials(ctx context.Context) ([]models.Material, error)
	FindMaterials(ctx context.Context, codes []string) (map[string]models.Material, error)
	UpsertMaterials(ctx context.Context, materials []models.Material) error
	// SeedMaterials inserts materials whose code is not in the master yet.
	SeedMaterials(ctx context.Context, materials []models.Material) error
	ListActiveStaff(ctx context.Context) ([]models.Staff, error)
	// SeedStaff inserts staff whose name is not on the roster yet.
	SeedStaff(ctx context.Context, staff []models.Staff) error
}
