package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/mq"
	"github.com/example/maintdesk/backend/internal/repository"
)

const defaultFollowUpReason = "Status requires follow-up"

// NewComplaint carries the fields a caller supplies when registering a complaint.
type NewComplaint struct {
	BldgName      string
	FlatNo        string
	MobileNo      string
	PreferredTime string
	Category      models.ComplaintCategory
	Description   string
	TenantID      *uuid.UUID
	ImageURL      string
}

// JobFields carries the record of a visit. Dates are YYYY-MM-DD and times HH:MM.
type JobFields struct {
	ComplaintID   uuid.UUID
	DateAttended  string
	TimeAttended  string
	StaffAttended []string
	JobCardNo     string
	MaterialsUsed []models.MaterialUsed
	TimeCompleted string
}

// ComplaintService owns the complaint/job lifecycle: registration, job
// submission with its status and re-open rules, and supervisor approval.
type ComplaintService struct {
	store repository.Store
	mq    mq.Publisher
	now   func() time.Time
}

// NewComplaintService builds a service with dependencies. publisher may be nil.
func NewComplaintService(store repository.Store, publisher mq.Publisher) *ComplaintService {
	return &ComplaintService{store: store, mq: publisher, now: time.Now}
}

// WithClock replaces the clock used for registration dates.
func (s *ComplaintService) WithClock(now func() time.Time) *ComplaintService {
	s.now = now
	return s
}

// CreateComplaint registers a complaint in the Pending state. Tenants always
// file against their own account.
func (s *ComplaintService) CreateComplaint(ctx context.Context, p auth.Principal, in NewComplaint) (*models.Complaint, error) {
	if !p.Is(auth.RoleTenant, auth.RoleAdmin) {
		return nil, apperr.NewPermissionDenied("create complaint")
	}
	if err := validateComplaint(in); err != nil {
		return nil, err
	}

	complaint := &models.Complaint{
		DateRegistered:     models.Date(s.now()),
		BldgName:           strings.TrimSpace(in.BldgName),
		FlatNo:             strings.TrimSpace(in.FlatNo),
		MobileNo:           strings.TrimSpace(in.MobileNo),
		PreferredTime:      in.PreferredTime,
		Category:           in.Category,
		Description:        strings.TrimSpace(in.Description),
		Status:             models.ComplaintStatusPending,
		DuplicateGenerated: false,
		TenantID:           in.TenantID,
		ImageURL:           strings.TrimSpace(in.ImageURL),
	}
	if p.Role == auth.RoleTenant {
		complaint.TenantID = p.TenantID
	}

	if err := s.store.CreateComplaint(ctx, complaint); err != nil {
		return nil, storeError(err, "complaint", "")
	}
	complaint.Jobs = []models.Job{}

	s.publishEvent(ctx, mq.EventComplaintCreated, mq.Event{
		ComplaintID: complaint.ID.String(),
		Status:      string(complaint.Status),
		TenantID:    tenantString(complaint.TenantID),
	})
	return complaint, nil
}

// SubmitJobUpdate records a visit against a complaint, overwrites the
// complaint's status with outcome and, for an unresolved outcome, re-opens the
// issue as a successor complaint. All writes share one transaction.
func (s *ComplaintService) SubmitJobUpdate(ctx context.Context, p auth.Principal, fields JobFields, outcome models.ComplaintStatus, reason string) (*models.Job, error) {
	if !p.Is(auth.RoleAdmin) {
		return nil, apperr.NewPermissionDenied("submit job update")
	}
	job, err := s.buildJob(ctx, fields, outcome, reason)
	if err != nil {
		return nil, err
	}

	var parent, successor *models.Complaint
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		parent, err = tx.LockComplaint(ctx, fields.ComplaintID)
		if err != nil {
			return storeError(err, "complaint", fields.ComplaintID.String())
		}
		if err := tx.CreateJob(ctx, job); err != nil {
			return storeError(err, "complaint", fields.ComplaintID.String())
		}
		if err := tx.UpdateComplaintStatus(ctx, parent.ID, outcome); err != nil {
			return storeError(err, "complaint", parent.ID.String())
		}
		if !outcome.Unresolved() {
			return nil
		}

		flipped, err := tx.MarkDuplicateGenerated(ctx, parent.ID)
		if err != nil {
			return storeError(err, "complaint", parent.ID.String())
		}
		if !flipped {
			log.Printf("complaint %s already re-opened, no successor created", parent.ID)
			return nil
		}
		successor = s.successorOf(parent, reason)
		return storeError(tx.CreateComplaint(ctx, successor), "complaint", "")
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, mq.EventJobSubmitted, mq.Event{
		ComplaintID: parent.ID.String(),
		JobID:       job.ID.String(),
		Status:      string(outcome),
		TenantID:    tenantString(parent.TenantID),
	})
	if successor != nil {
		s.publishEvent(ctx, mq.EventComplaintDuplicated, mq.Event{
			ComplaintID: parent.ID.String(),
			SuccessorID: successor.ID.String(),
			Status:      string(successor.Status),
			TenantID:    tenantString(successor.TenantID),
		})
	}
	return job, nil
}

// ApproveJob records supervisor sign-off on a job. Approving an approved job
// is a no-op; there is no way to withdraw an approval.
func (s *ComplaintService) ApproveJob(ctx context.Context, p auth.Principal, jobID uuid.UUID) error {
	if !p.Is(auth.RoleSupervisor) {
		return apperr.NewPermissionDenied("approve job")
	}
	job, err := s.store.ApproveJob(ctx, jobID)
	if err != nil {
		return storeError(err, "job", jobID.String())
	}
	s.publishEvent(ctx, mq.EventJobApproved, mq.Event{
		ComplaintID: job.ComplaintID.String(),
		JobID:       job.ID.String(),
	})
	return nil
}

func (s *ComplaintService) successorOf(parent *models.Complaint, reason string) *models.Complaint {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultFollowUpReason
	}
	return &models.Complaint{
		DateRegistered: models.Date(s.now()),
		BldgName:       parent.BldgName,
		FlatNo:         parent.FlatNo,
		MobileNo:       parent.MobileNo,
		PreferredTime:  parent.PreferredTime,
		Category:       parent.Category,
		Description: fmt.Sprintf("(Duplicated from complaint ID %s) %s - Reason: %s",
			parent.ID, parent.Description, reason),
		Status:             models.ComplaintStatusPending,
		DuplicateGenerated: false,
		TenantID:           parent.TenantID,
	}
}

func (s *ComplaintService) buildJob(ctx context.Context, in JobFields, outcome models.ComplaintStatus, reason string) (*models.Job, error) {
	if in.ComplaintID == uuid.Nil {
		return nil, apperr.NewValidation("complaint_id", "is required")
	}
	if !outcome.IsOutcome() {
		return nil, apperr.NewValidation("outcome", fmt.Sprintf("%q is not a job outcome", outcome))
	}
	dateAttended, err := time.Parse("2006-01-02", strings.TrimSpace(in.DateAttended))
	if err != nil {
		return nil, apperr.NewValidation("date_attended", "must be a date in YYYY-MM-DD form")
	}
	if !validClock(in.TimeAttended) {
		return nil, apperr.NewValidation("time_attended", "must be a time in HH:MM form")
	}
	if len(in.StaffAttended) == 0 {
		return nil, apperr.NewValidation("staff_attended", "at least one staff member is required")
	}
	staff := make([]string, 0, len(in.StaffAttended))
	for _, name := range in.StaffAttended {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, apperr.NewValidation("staff_attended", "staff name cannot be empty")
		}
		staff = append(staff, name)
	}
	if strings.TrimSpace(in.JobCardNo) == "" {
		return nil, apperr.NewValidation("job_card_no", "is required")
	}
	materials, err := s.resolveMaterials(ctx, in.MaterialsUsed)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		ComplaintID:   in.ComplaintID,
		DateAttended:  models.Date(dateAttended),
		TimeAttended:  strings.TrimSpace(in.TimeAttended),
		StaffAttended: staff,
		JobCardNo:     strings.TrimSpace(in.JobCardNo),
		MaterialsUsed: materials,
	}
	if outcome == models.ComplaintStatusCompleted && strings.TrimSpace(in.TimeCompleted) != "" {
		if !validClock(in.TimeCompleted) {
			return nil, apperr.NewValidation("time_completed", "must be a time in HH:MM form")
		}
		completed := strings.TrimSpace(in.TimeCompleted)
		job.TimeCompleted = &completed
	}
	if outcome.Unresolved() {
		if r := strings.TrimSpace(reason); r != "" {
			job.ReasonNotCompleted = &r
		}
	}
	return job, nil
}

// resolveMaterials fills in material names from the master list.
func (s *ComplaintService) resolveMaterials(ctx context.Context, used []models.MaterialUsed) ([]models.MaterialUsed, error) {
	out := make([]models.MaterialUsed, 0, len(used))
	if len(used) == 0 {
		return out, nil
	}
	codes := make([]string, 0, len(used))
	for i, m := range used {
		if strings.TrimSpace(m.Code) == "" {
			return nil, apperr.NewValidation(fmt.Sprintf("materials_used[%d].code", i), "is required")
		}
		if m.Qty < 1 {
			return nil, apperr.NewValidation(fmt.Sprintf("materials_used[%d].qty", i), "must be at least 1")
		}
		codes = append(codes, strings.TrimSpace(m.Code))
	}
	known, err := s.store.FindMaterials(ctx, codes)
	if err != nil {
		return nil, storeError(err, "material", "")
	}
	for i, code := range codes {
		master, ok := known[code]
		if !ok {
			return nil, apperr.NewValidation(fmt.Sprintf("materials_used[%d].code", i), fmt.Sprintf("unknown material %q", code))
		}
		out = append(out, models.MaterialUsed{Code: code, Name: master.Name, Qty: used[i].Qty})
	}
	return out, nil
}

func (s *ComplaintService) publishEvent(ctx context.Context, event string, ev mq.Event) {
	if s.mq == nil {
		return
	}
	ev.Event = event
	ev.OccurredAt = time.Now().UTC()
	if err := s.mq.Publish(ctx, event, ev); err != nil {
		log.Printf("publish %s failed: %v", event, err)
	}
}

func validateComplaint(in NewComplaint) error {
	required := []struct{ field, value string }{
		{"bldg_name", in.BldgName},
		{"flat_no", in.FlatNo},
		{"mobile_no", in.MobileNo},
		{"description", in.Description},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperr.NewValidation(r.field, "is required")
		}
	}
	if !in.Category.Valid() {
		return apperr.NewValidation("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if !models.ValidTimeSlot(in.PreferredTime) {
		return apperr.NewValidation("preferred_time", fmt.Sprintf("unknown time slot %q", in.PreferredTime))
	}
	return nil
}

func validClock(v string) bool {
	_, err := time.Parse("15:04", strings.TrimSpace(v))
	return err == nil
}

func tenantString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// storeError maps a repository failure onto the service error taxonomy.
// Errors already in the taxonomy pass through unchanged.
func storeError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var ae apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NewNotFound(resource, id)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.NewConflict(resource)
	}
	return apperr.NewStorage(err)
}
