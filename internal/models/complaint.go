package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ComplaintStatus describes the life-cycle state of a complaint.
type ComplaintStatus string

const (
	ComplaintStatusPending            ComplaintStatus = "Pending"
	ComplaintStatusAttended           ComplaintStatus = "Attended"
	ComplaintStatusCompleted          ComplaintStatus = "Completed"
	ComplaintStatusNotCompleted       ComplaintStatus = "Not Completed"
	ComplaintStatusTenantNotAvailable ComplaintStatus = "Tenant Not Available"
)

// IsOutcome reports whether the status may be chosen when submitting a job.
func (s ComplaintStatus) IsOutcome() bool {
	switch s {
	case ComplaintStatusAttended, ComplaintStatusCompleted, ComplaintStatusNotCompleted, ComplaintStatusTenantNotAvailable:
		return true
	}
	return false
}

// Unresolved reports whether a visit with this outcome leaves the issue open,
// which re-opens it as a successor complaint.
func (s ComplaintStatus) Unresolved() bool {
	return s == ComplaintStatusNotCompleted || s == ComplaintStatusTenantNotAvailable
}

// ComplaintCategory is the trade a complaint is routed to.
type ComplaintCategory string

const (
	CategoryElectrical ComplaintCategory = "electrical"
	CategoryPlumbing   ComplaintCategory = "plumbing"
	CategoryAircond    ComplaintCategory = "aircond"
)

// Valid reports whether c is a known category.
func (c ComplaintCategory) Valid() bool {
	switch c {
	case CategoryElectrical, CategoryPlumbing, CategoryAircond:
		return true
	}
	return false
}

// PreferredTimeSlots lists the visit windows a complaint may ask for.
var PreferredTimeSlots = []string{
	"08:00 - 09:00", "09:00 - 10:00", "10:00 - 11:00", "11:00 - 12:00",
	"12:00 - 13:00", "13:00 - 14:00", "14:00 - 15:00", "15:00 - 16:00",
	"16:00 - 17:00", "17:00 - 18:00",
}

// ValidTimeSlot reports whether slot is one of PreferredTimeSlots.
func ValidTimeSlot(slot string) bool {
	for _, s := range PreferredTimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Complaint is a tenant-reported maintenance issue.
type Complaint struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	DateRegistered     datatypes.Date    `gorm:"index" json:"date_registered"`
	BldgName           string            `json:"bldg_name"`
	FlatNo             string            `json:"flat_no"`
	MobileNo           string            `json:"mobile_no"`
	PreferredTime      string            `json:"preferred_time"`
	Category           ComplaintCategory `json:"category"`
	Description        string            `gorm:"type:text" json:"description"`
	Status             ComplaintStatus   `gorm:"index" json:"status"`
	DuplicateGenerated bool              `gorm:"not null;default:false" json:"duplicate_generated"`
	TenantID           *uuid.UUID        `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Tenant             *Tenant           `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ImageURL           string            `json:"image_url,omitempty"`
	Jobs               []Job             `gorm:"foreignKey:ComplaintID" json:"jobs"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// BeforeCreate is a GORM hook that populates the primary key and initial state.
func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ComplaintStatusPending
	}
	return nil
}

// Date truncates t to a calendar date in its own location.
func Date(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}
