package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/maintdesk/backend/internal/models"
)

// MemoryStore keeps entities in process memory. Transactions are serialised
// under a single mutex and applied to a copy of the state that replaces the
// live state only when the callback succeeds.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
}

type memoryState struct {
	seq        int64
	complaints map[uuid.UUID]storedComplaint
	jobs       []models.Job
	tenants    map[uuid.UUID]models.Tenant
	materials  map[string]models.Material
	staff      map[uuid.UUID]models.Staff
}

type storedComplaint struct {
	models.Complaint
	seq int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		state: &memoryState{
			complaints: make(map[uuid.UUID]storedComplaint),
			tenants:    make(map[uuid.UUID]models.Tenant),
			materials:  make(map[string]models.Material),
			staff:      make(map[uuid.UUID]models.Staff),
		},
	}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Transaction runs fn against a private copy of the state.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&MemoryStore{mu: s.mu, state: working, inTx: true}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *MemoryStore) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	defer s.lock()()
	if err := complaint.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := s.state.complaints[complaint.ID]; ok {
		return errors.WithStack(ErrDuplicate)
	}
	now := time.Now()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	complaint.UpdatedAt = now

	stored := *complaint
	stored.Jobs = nil
	stored.Tenant = nil
	s.state.seq++
	s.state.complaints[complaint.ID] = storedComplaint{Complaint: stored, seq: s.state.seq}
	return nil
}

func (s *MemoryStore) LockComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	defer s.lock()()
	stored, ok := s.state.complaints[id]
	if !ok {
		return nil, errors.WithStack(ErrNotFound)
	}
	complaint := stored.Complaint
	return &complaint, nil
}

func (s *MemoryStore) FindComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	defer s.lock()()
	stored, ok := s.state.complaints[id]
	if !ok {
		return nil, errors.WithStack(ErrNotFound)
	}
	complaint := s.state.withJobs(stored.Complaint)
	return &complaint, nil
}

func (s *MemoryStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	defer s.lock()()
	var rows []storedComplaint
	for _, stored := range s.state.complaints {
		if filter.TenantID != nil && (stored.TenantID == nil || *stored.TenantID != *filter.TenantID) {
			continue
		}
		rows = append(rows, stored)
	}
	sort.Slice(rows, func(i, j int) bool {
		di, dj := time.Time(rows[i].DateRegistered), time.Time(rows[j].DateRegistered)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return rows[i].seq < rows[j].seq
	})
	complaints := make([]models.Complaint, 0, len(rows))
	for _, row := range rows {
		complaints = append(complaints, s.state.withJobs(row.Complaint))
	}
	return complaints, nil
}

func (s *MemoryStore) UpdateComplaintStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) error {
	defer s.lock()()
	stored, ok := s.state.complaints[id]
	if !ok {
		return errors.WithStack(ErrNotFound)
	}
	stored.Status = status
	stored.UpdatedAt = time.Now()
	s.state.complaints[id] = stored
	return nil
}

func (s *MemoryStore) MarkDuplicateGenerated(ctx context.Context, id uuid.UUID) (bool, error) {
	defer s.lock()()
	stored, ok := s.state.complaints[id]
	if !ok || stored.DuplicateGenerated {
		return false, nil
	}
	stored.DuplicateGenerated = true
	stored.UpdatedAt = time.Now()
	s.state.complaints[id] = stored
	return true, nil
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.Job) error {
	defer s.lock()()
	if _, ok := s.state.complaints[job.ComplaintID]; !ok {
		return errors.WithStack(ErrNotFound)
	}
	if err := job.BeforeCreate(nil); err != nil {
		return err
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	s.state.jobs = append(s.state.jobs, copyJob(*job))
	return nil
}

func (s *MemoryStore) ApproveJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	defer s.lock()()
	for i := range s.state.jobs {
		if s.state.jobs[i].ID == id {
			s.state.jobs[i].Approved = true
			job := copyJob(s.state.jobs[i])
			return &job, nil
		}
	}
	return nil, errors.WithStack(ErrNotFound)
}

func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	defer s.lock()()
	for _, t := range s.state.tenants {
		if t.MobileNo == tenant.MobileNo {
			return errors.WithStack(ErrDuplicate)
		}
	}
	if err := tenant.BeforeCreate(nil); err != nil {
		return err
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	s.state.tenants[tenant.ID] = *tenant
	return nil
}

func (s *MemoryStore) FindTenantByMobile(ctx context.Context, mobile string) (*models.Tenant, error) {
	defer s.lock()()
	for _, t := range s.state.tenants {
		if t.MobileNo == mobile {
			tenant := t
			return &tenant, nil
		}
	}
	return nil, errors.WithStack(ErrNotFound)
}

func (s *MemoryStore) ListMaterials(ctx context.Context) ([]models.Material, error) {
	defer s.lock()()
	materials := make([]models.Material, 0, len(s.state.materials))
	for _, m := range s.state.materials {
		materials = append(materials, m)
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].Code < materials[j].Code })
	return materials, nil
}

func (s *MemoryStore) FindMaterials(ctx context.Context, codes []string) (map[string]models.Material, error) {
	defer s.lock()()
	out := make(map[string]models.Material, len(codes))
	for _, code := range codes {
		if m, ok := s.state.materials[code]; ok {
			out[code] = m
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertMaterials(ctx context.Context, materials []models.Material) error {
	defer s.lock()()
	for _, m := range materials {
		s.state.materials[m.Code] = m
	}
	return nil
}

func (s *MemoryStore) SeedMaterials(ctx context.Context, materials []models.Material) error {
	defer s.lock()()
	for _, m := range materials {
		if _, ok := s.state.materials[m.Code]; !ok {
			s.state.materials[m.Code] = m
		}
	}
	return nil
}

func (s *MemoryStore) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	defer s.lock()()
	var staff []models.Staff
	for _, st := range s.state.staff {
		if st.Active {
			staff = append(staff, st)
		}
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].Name < staff[j].Name })
	return staff, nil
}

func (s *MemoryStore) SeedStaff(ctx context.Context, staff []models.Staff) error {
	defer s.lock()()
	known := make(map[string]bool, len(s.state.staff))
	for _, st := range s.state.staff {
		known[st.Name] = true
	}
	for i := range staff {
		if known[staff[i].Name] {
			continue
		}
		if err := staff[i].BeforeCreate(nil); err != nil {
			return err
		}
		s.state.staff[staff[i].ID] = staff[i]
		known[staff[i].Name] = true
	}
	return nil
}

func (st *memoryState) withJobs(complaint models.Complaint) models.Complaint {
	complaint.Jobs = []models.Job{}
	for _, j := range st.jobs {
		if j.ComplaintID == complaint.ID {
			complaint.Jobs = append(complaint.Jobs, copyJob(j))
		}
	}
	return complaint
}

func (st *memoryState) clone() *memoryState {
	out := &memoryState{
		seq:        st.seq,
		complaints: make(map[uuid.UUID]storedComplaint, len(st.complaints)),
		jobs:       make([]models.Job, 0, len(st.jobs)),
		tenants:    make(map[uuid.UUID]models.Tenant, len(st.tenants)),
		materials:  make(map[string]models.Material, len(st.materials)),
		staff:      make(map[uuid.UUID]models.Staff, len(st.staff)),
	}
	for k, v := range st.complaints {
		out.complaints[k] = v
	}
	for _, j := range st.jobs {
		out.jobs = append(out.jobs, copyJob(j))
	}
	for k, v := range st.tenants {
		out.tenants[k] = v
	}
	for k, v := range st.materials {
		out.materials[k] = v
	}
	for k, v := range st.staff {
		out.staff[k] = v
	}
	return out
}

func copyJob(j models.Job) models.Job {
	if j.StaffAttended != nil {
		j.StaffAttended = append(make([]string, 0, len(j.StaffAttended)), j.StaffAttended...)
	}
	if j.MaterialsUsed != nil {
		j.MaterialsUsed = append(make([]models.MaterialUsed, 0, len(j.MaterialsUsed)), j.MaterialsUsed...)
	}
	return j
}
