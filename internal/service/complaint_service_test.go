package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/maintdesk/backend/internal/apperr"
	"github.com/example/maintdesk/backend/internal/auth"
	"github.com/example/maintdesk/backend/internal/models"
	"github.com/example/maintdesk/backend/internal/mq"
	"github.com/example/maintdesk/backend/internal/repository"
	"github.com/example/maintdesk/backend/internal/service"
)

func TestCreateComplaint_StartsPending(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))

	inputs := []service.NewComplaint{plumbingLeak()}
	electrical := plumbingLeak()
	electrical.Category = models.CategoryElectrical
	electrical.PreferredTime = "17:00 - 18:00"
	electrical.ImageURL = "https://cdn.example.com/photo.jpg"
	inputs = append(inputs, electrical)

	for _, in := range inputs {
		c, err := svc.CreateComplaint(ctx, admin, in)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Equal(t, models.ComplaintStatusPending, c.Status)
		assert.False(t, c.DuplicateGenerated)
		assert.Equal(t, models.Date(registered), c.DateRegistered)
		assert.Equal(t, in.Category, c.Category)
		assert.Nil(t, c.TenantID)
	}
}

func TestCreateComplaint_TenantFilesAgainstOwnAccount(t *testing.T) {
	svc := newComplaintService(newStore(t))
	me, someoneElse := uuid.New(), uuid.New()

	in := plumbingLeak()
	in.TenantID = &someoneElse
	c, err := svc.CreateComplaint(context.Background(), tenant(me), in)

	require.NoError(t, err)
	require.NotNil(t, c.TenantID)
	assert.Equal(t, me, *c.TenantID)
}

func TestCreateComplaint_Validation(t *testing.T) {
	svc := newComplaintService(newStore(t))
	tests := []struct {
		name  string
		edit  func(*service.NewComplaint)
		field string
	}{
		{"missing building", func(c *service.NewComplaint) { c.BldgName = " " }, "bldg_name"},
		{"missing flat", func(c *service.NewComplaint) { c.FlatNo = "" }, "flat_no"},
		{"missing mobile", func(c *service.NewComplaint) { c.MobileNo = "" }, "mobile_no"},
		{"missing description", func(c *service.NewComplaint) { c.Description = "" }, "description"},
		{"unknown category", func(c *service.NewComplaint) { c.Category = "carpentry" }, "category"},
		{"unknown slot", func(c *service.NewComplaint) { c.PreferredTime = "8-9" }, "preferred_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := plumbingLeak()
			tt.edit(&in)
			_, err := svc.CreateComplaint(context.Background(), admin, in)
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreateComplaint_SupervisorDenied(t *testing.T) {
	svc := newComplaintService(newStore(t))
	_, err := svc.CreateComplaint(context.Background(), supervisor, plumbingLeak())
	assert.True(t, apperr.IsPermissionDenied(err))
}

func TestSubmitJobUpdate_CompletedClosesWithoutSuccessor(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := newComplaintService(store)
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	fields := visit(c.ID)
	fields.TimeCompleted = "11:00"
	job, err := svc.SubmitJobUpdate(ctx, admin, fields, models.ComplaintStatusCompleted, "ignored")
	require.NoError(t, err)

	require.NotNil(t, job.TimeCompleted)
	assert.Equal(t, "11:00", *job.TimeCompleted)
	assert.Nil(t, job.ReasonNotCompleted)
	assert.False(t, job.Approved)

	got, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusCompleted, got.Status)
	assert.False(t, got.DuplicateGenerated)
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, job.ID, got.Jobs[0].ID)

	all, err := svc.ListComplaints(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSubmitJobUpdate_UnresolvedSpawnsSuccessor(t *testing.T) {
	for _, outcome := range []models.ComplaintStatus{models.ComplaintStatusNotCompleted, models.ComplaintStatusTenantNotAvailable} {
		t.Run(string(outcome), func(t *testing.T) {
			ctx := context.Background()
			svc := newComplaintService(newStore(t))
			tenantID := uuid.New()
			c, err := svc.CreateComplaint(ctx, tenant(tenantID), plumbingLeak())
			require.NoError(t, err)

			fields := visit(c.ID)
			fields.TimeCompleted = "11:00"
			job, err := svc.SubmitJobUpdate(ctx, admin, fields, outcome, "parts on order")
			require.NoError(t, err)
			assert.Nil(t, job.TimeCompleted)
			require.NotNil(t, job.ReasonNotCompleted)
			assert.Equal(t, "parts on order", *job.ReasonNotCompleted)

			all, err := svc.ListComplaints(ctx, admin, nil)
			require.NoError(t, err)
			require.Len(t, all, 2)

			var original, successor models.Complaint
			for _, x := range all {
				if x.ID == c.ID {
					original = x
				} else {
					successor = x
				}
			}
			assert.Equal(t, outcome, original.Status)
			assert.True(t, original.DuplicateGenerated)

			assert.Equal(t, models.ComplaintStatusPending, successor.Status)
			assert.False(t, successor.DuplicateGenerated)
			assert.Equal(t, c.BldgName, successor.BldgName)
			assert.Equal(t, c.FlatNo, successor.FlatNo)
			assert.Equal(t, c.MobileNo, successor.MobileNo)
			assert.Equal(t, c.PreferredTime, successor.PreferredTime)
			assert.Equal(t, c.Category, successor.Category)
			assert.Equal(t, c.TenantID, successor.TenantID)
			assert.Equal(t, models.Date(registered), successor.DateRegistered)
			assert.Empty(t, successor.Jobs)
		})
	}
}

func TestSubmitJobUpdate_TenantNotAvailableScenario(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))

	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusPending, c.Status)

	_, err = svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusTenantNotAvailable, "no one home")
	require.NoError(t, err)

	original, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusTenantNotAvailable, original.Status)
	assert.True(t, original.DuplicateGenerated)

	all, err := svc.ListComplaints(ctx, admin, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	var successor *models.Complaint
	for i := range all {
		if all[i].ID != c.ID {
			successor = &all[i]
		}
	}
	require.NotNil(t, successor)
	assert.Equal(t, models.ComplaintStatusPending, successor.Status)
	assert.Equal(t, "Tower A", successor.BldgName)
	assert.Equal(t, "101", successor.FlatNo)
	assert.Equal(t, "555-0101", successor.MobileNo)
	assert.Equal(t, "10:00 - 11:00", successor.PreferredTime)
	assert.Equal(t, models.CategoryPlumbing, successor.Category)
	assert.Contains(t, successor.Description, c.ID.String())
	assert.Contains(t, successor.Description, "no one home")
}

func TestSubmitJobUpdate_DefaultReason(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	job, err := svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusNotCompleted, "")
	require.NoError(t, err)
	assert.Nil(t, job.ReasonNotCompleted)

	all, err := svc.ListComplaints(ctx, admin, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, x := range all {
		if x.ID != c.ID {
			assert.Equal(t, "(Duplicated from complaint ID "+c.ID.String()+") leak - Reason: Status requires follow-up", x.Description)
		}
	}
}

func TestSubmitJobUpdate_AnyOutcomeMayFollowAnother(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	sequence := []models.ComplaintStatus{
		models.ComplaintStatusCompleted,
		models.ComplaintStatusAttended,
		models.ComplaintStatusCompleted,
	}
	for _, outcome := range sequence {
		_, err := svc.SubmitJobUpdate(ctx, admin, visit(c.ID), outcome, "")
		require.NoError(t, err)
	}

	got, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusCompleted, got.Status)
	assert.Len(t, got.Jobs, 3, "every submission records a job")
}

func TestSubmitJobUpdate_ReopensOnlyOnce(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	_, err = svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusNotCompleted, "first")
	require.NoError(t, err)
	_, err = svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusTenantNotAvailable, "second")
	require.NoError(t, err)

	got, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusTenantNotAvailable, got.Status)
	assert.Len(t, got.Jobs, 2)

	all, err := svc.ListComplaints(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSubmitJobUpdate_ConcurrentUnresolvedCreatesOneSuccessor(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	const submitters = 8
	var wg sync.WaitGroup
	errs := make(chan error, submitters)
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusNotCompleted, "no access")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := svc.ListComplaints(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2, "exactly one successor")

	got, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.True(t, got.DuplicateGenerated)
	assert.Len(t, got.Jobs, submitters)
}

func TestSubmitJobUpdate_RollsBackWhenSuccessorFails(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	c, err := newComplaintService(store).CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	svc := newComplaintService(&failingStore{Store: store})
	_, err = svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusNotCompleted, "no access")
	var se *apperr.StorageError
	require.True(t, errors.As(err, &se), "got %v", err)

	got, err := store.FindComplaint(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintStatusPending, got.Status)
	assert.False(t, got.DuplicateGenerated)
	assert.Empty(t, got.Jobs)
}

func TestSubmitJobUpdate_UnknownComplaint(t *testing.T) {
	svc := newComplaintService(newStore(t))
	_, err := svc.SubmitJobUpdate(context.Background(), admin, visit(uuid.New()), models.ComplaintStatusCompleted, "")
	assert.True(t, apperr.IsNotFound(err))
}

func TestSubmitJobUpdate_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	tests := []struct {
		name    string
		edit    func(*service.JobFields)
		outcome models.ComplaintStatus
		field   string
	}{
		{"pending outcome", func(*service.JobFields) {}, models.ComplaintStatusPending, "outcome"},
		{"unknown outcome", func(*service.JobFields) {}, "Done", "outcome"},
		{"missing complaint", func(f *service.JobFields) { f.ComplaintID = uuid.Nil }, models.ComplaintStatusAttended, "complaint_id"},
		{"no staff", func(f *service.JobFields) { f.StaffAttended = nil }, models.ComplaintStatusAttended, "staff_attended"},
		{"blank staff", func(f *service.JobFields) { f.StaffAttended = []string{"Staff A", " "} }, models.ComplaintStatusAttended, "staff_attended"},
		{"no job card", func(f *service.JobFields) { f.JobCardNo = "" }, models.ComplaintStatusAttended, "job_card_no"},
		{"bad date", func(f *service.JobFields) { f.DateAttended = "22/07/2024" }, models.ComplaintStatusAttended, "date_attended"},
		{"bad time", func(f *service.JobFields) { f.TimeAttended = "late" }, models.ComplaintStatusAttended, "time_attended"},
		{"bad completion time", func(f *service.JobFields) { f.TimeCompleted = "25:99" }, models.ComplaintStatusCompleted, "time_completed"},
		{"zero qty", func(f *service.JobFields) {
			f.MaterialsUsed = []models.MaterialUsed{{Code: "P001", Qty: 0}}
		}, models.ComplaintStatusAttended, "materials_used[0].qty"},
		{"unknown material", func(f *service.JobFields) {
			f.MaterialsUsed = []models.MaterialUsed{{Code: "P001", Qty: 1}, {Code: "X999", Qty: 1}}
		}, models.ComplaintStatusAttended, "materials_used[1].code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := visit(c.ID)
			tt.edit(&fields)
			_, err := svc.SubmitJobUpdate(ctx, admin, fields, tt.outcome, "")
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	got, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Jobs, "rejected submissions leave no trace")
	assert.Equal(t, models.ComplaintStatusPending, got.Status)
}

func TestSubmitJobUpdate_ResolvesMaterialNames(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	fields := visit(c.ID)
	fields.MaterialsUsed = []models.MaterialUsed{{Code: "P004", Name: "whatever", Qty: 2}}
	job, err := svc.SubmitJobUpdate(ctx, admin, fields, models.ComplaintStatusAttended, "")
	require.NoError(t, err)

	require.Len(t, job.MaterialsUsed, 1)
	assert.Equal(t, models.MaterialUsed{Code: "P004", Name: "Sink Trap", Qty: 2}, job.MaterialsUsed[0])
}

func TestSubmitJobUpdate_RequiresAdmin(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)

	for _, p := range []auth.Principal{supervisor, tenant(uuid.New())} {
		_, err := svc.SubmitJobUpdate(ctx, p, visit(c.ID), models.ComplaintStatusCompleted, "")
		assert.True(t, apperr.IsPermissionDenied(err))
	}
}

func TestApproveJob(t *testing.T) {
	ctx := context.Background()
	svc := newComplaintService(newStore(t))
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)
	job, err := svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusAttended, "")
	require.NoError(t, err)

	require.NoError(t, svc.ApproveJob(ctx, supervisor, job.ID))
	require.NoError(t, svc.ApproveJob(ctx, supervisor, job.ID), "approval is idempotent")

	got, err := svc.GetComplaint(ctx, admin, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Jobs, 1)
	assert.True(t, got.Jobs[0].Approved)
	assert.Equal(t, models.ComplaintStatusAttended, got.Status, "approval leaves the status alone")
}

func TestApproveJob_UnknownJob(t *testing.T) {
	svc := newComplaintService(newStore(t))
	err := svc.ApproveJob(context.Background(), supervisor, uuid.New())
	assert.True(t, apperr.IsNotFound(err))
}

func TestApproveJob_RequiresSupervisor(t *testing.T) {
	svc := newComplaintService(newStore(t))
	err := svc.ApproveJob(context.Background(), admin, uuid.New())
	assert.True(t, apperr.IsPermissionDenied(err))
}

func TestLifecycleEventsArePublished(t *testing.T) {
	ctx := context.Background()
	pub := new(MockPublisher)
	pub.On("Publish", mq.EventComplaintCreated, mock.AnythingOfType("mq.Event")).Return(nil)
	pub.On("Publish", mq.EventJobSubmitted, mock.AnythingOfType("mq.Event")).Return(nil)
	pub.On("Publish", mq.EventComplaintDuplicated, mock.AnythingOfType("mq.Event")).Return(errors.New("broker down"))
	pub.On("Publish", mq.EventJobApproved, mock.AnythingOfType("mq.Event")).Return(nil)

	svc := service.NewComplaintService(newStore(t), pub)
	c, err := svc.CreateComplaint(ctx, admin, plumbingLeak())
	require.NoError(t, err)
	job, err := svc.SubmitJobUpdate(ctx, admin, visit(c.ID), models.ComplaintStatusNotCompleted, "")
	require.NoError(t, err, "publish failures do not fail the request")
	require.NoError(t, svc.ApproveJob(ctx, supervisor, job.ID))

	pub.AssertNumberOfCalls(t, "Publish", 4)
	pub.AssertCalled(t, "Publish", mq.EventJobSubmitted, mock.MatchedBy(func(ev mq.Event) bool {
		return ev.ComplaintID == c.ID.String() && ev.JobID == job.ID.String() && ev.Status == "Not Completed"
	}))
	pub.AssertCalled(t, "Publish", mq.EventComplaintDuplicated, mock.MatchedBy(func(ev mq.Event) bool {
		return ev.ComplaintID == c.ID.String() && ev.SuccessorID != "" && ev.Status == "Pending"
	}))
}

var _ repository.Store = (*failingStore)(nil)
