package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/maintdesk/backend/internal/models"
)

// GormStore persists entities in Postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs a store using the provided gorm DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction runs fn inside a database transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// CreateComplaint persists the complaint instance.
func (s *GormStore) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(complaint).Error)
}

// LockComplaint selects the complaint row FOR UPDATE.
func (s *GormStore) LockComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&complaint, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &complaint, nil
}

// FindComplaint returns the complaint by id with its jobs.
func (s *GormStore) FindComplaint(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.db.WithContext(ctx).Preload("Jobs", orderJobs).First(&complaint, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &complaint, nil
}

// ListComplaints returns complaints with their jobs, most recently registered first.
func (s *GormStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, error) {
	q := s.db.WithContext(ctx).Preload("Jobs", orderJobs)
	if filter.TenantID != nil {
		q = q.Where("tenant_id = ?", *filter.TenantID)
	}
	var complaints []models.Complaint
	err := q.Order("date_registered desc").Order("created_at asc").Order("id asc").Find(&complaints).Error
	return complaints, translate(err)
}

// UpdateComplaintStatus overwrites the status of the complaint.
func (s *GormStore) UpdateComplaintStatus(ctx context.Context, id uuid.UUID, status models.ComplaintStatus) error {
	res := s.db.WithContext(ctx).Model(&models.Complaint{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.WithStack(ErrNotFound)
	}
	return nil
}

// MarkDuplicateGenerated performs a conditional write on duplicate_generated.
func (s *GormStore) MarkDuplicateGenerated(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ? AND duplicate_generated = ?", id, false).
		Update("duplicate_generated", true)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CreateJob persists the job.
func (s *GormStore) CreateJob(ctx context.Context, job *models.Job) error {
	err := s.db.WithContext(ctx).Create(job).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return errors.WithStack(ErrNotFound)
	}
	return translate(err)
}

// ApproveJob sets the approved flag on the job.
func (s *GormStore) ApproveJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Job{}).Where("id = ?", id).Update("approved", true)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.WithStack(ErrNotFound)
	}
	var job models.Job
	if err := db.First(&job, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &job, nil
}

// CreateTenant persists the tenant.
func (s *GormStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	return translate(s.db.WithContext(ctx).Create(tenant).Error)
}

// FindTenantByMobile returns the tenant registered with the mobile number.
func (s *GormStore) FindTenantByMobile(ctx context.Context, mobile string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "mobile_no = ?", mobile).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

// ListMaterials returns the material master ordered by code.
func (s *GormStore) ListMaterials(ctx context.Context) ([]models.Material, error) {
	var materials []models.Material
	err := s.db.WithContext(ctx).Order("code").Find(&materials).Error
	return materials, translate(err)
}

// FindMaterials returns the known materials among codes, keyed by code.
func (s *GormStore) FindMaterials(ctx context.Context, codes []string) (map[string]models.Material, error) {
	out := make(map[string]models.Material, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var materials []models.Material
	if err := s.db.WithContext(ctx).Where("code IN ?", codes).Find(&materials).Error; err != nil {
		return nil, translate(err)
	}
	for _, m := range materials {
		out[m.Code] = m
	}
	return out, nil
}

// UpsertMaterials inserts materials, renaming those whose code already exists.
func (s *GormStore) UpsertMaterials(ctx context.Context, materials []models.Material) error {
	if len(materials) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&materials).Error)
}

// SeedMaterials inserts materials, skipping codes already present.
func (s *GormStore) SeedMaterials(ctx context.Context, materials []models.Material) error {
	if len(materials) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&materials).Error)
}

// ListActiveStaff returns active staff ordered by name.
func (s *GormStore) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&staff).Error
	return staff, translate(err)
}

// SeedStaff inserts staff, skipping names already present.
func (s *GormStore) SeedStaff(ctx context.Context, staff []models.Staff) error {
	if len(staff) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&staff).Error)
}

func orderJobs(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc").Order("id asc")
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.WithStack(ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.WithStack(ErrDuplicate)
	}
	return errors.WithStack(err)
}
