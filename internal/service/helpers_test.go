package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/repository"
	"github.com/example/maintdesk/backend/internal/service"
)

var (
	admin      = auth.Principal{Role: auth.RoleAdmin, Subject: "admin"}
	supervisor = auth.Principal{Role: auth.RoleSupervisor, Subject: "supervisor"}
	registered = time.Date(2024, 7, 22, 9, 30, 0, 0, time.UTC)
)

func tenant(id uuid.UUID) auth.Principal {
	return auth.TenantPrincipal(id, "555-123-4567")
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(routingKey, payload)
	return args.Error(0)
}

// failingStore makes CreateComplaint fail inside transactions so rollback can
// be observed.
type failingStore struct {
	repository.Store
	inTx bool
}

func (f *failingStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(&failingStore{Store: tx, inTx: true})
	})
}

func (f *failingStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if f.inTx {
		return errors.New("insert complaint: connection reset")
	}
	return f.Store.CreateComplaint(ctx, c)
}

func newStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, service.NewReferenceService(store).Seed(context.Background()))
	return store
}

func newComplaintService(store repository.Store) *service.ComplaintService {
	return service.NewComplaintService(store, nil).WithClock(func() time.Time { return registered })
}

func plumbingLeak() service.NewComplaint {
	return service.NewComplaint{
		BldgName:      "Tower A",
		FlatNo:        "101",
		MobileNo:      "555-0101",
		PreferredTime: "10:00 - 11:00",
		Category:      models.CategoryPlumbing,
		Description:   "leak",
	}
}

func visit(complaintID uuid.UUID) service.JobFields {
	return service.JobFields{
		ComplaintID:   complaintID,
		DateAttended:  "2024-07-22",
		TimeAttended:  "10:15",
		StaffAttended: []string{"Staff A"},
		JobCardNo:     "JC-12345",
	}
}
