package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaterialUsed is one line of the materials consumed on a visit.
type MaterialUsed struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Job records a single maintenance visit against a complaint.
type Job struct {
	ID                 uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID        uuid.UUID                         `gorm:"type:uuid;not null;index" json:"complaint_id"`
	DateAttended       datatypes.Date                    `json:"date_attended"`
	TimeAttended       string                            `json:"time_attended"`
	StaffAttended      pq.StringArray                    `gorm:"type:text[]" json:"staff_attended"`
	JobCardNo          string                            `json:"job_card_no"`
	MaterialsUsed      datatypes.JSONSlice[MaterialUsed] `gorm:"type:jsonb" json:"materials_used"`
	TimeCompleted      *string                           `json:"time_completed"`
	ReasonNotCompleted *string                           `gorm:"type:text" json:"reason_not_completed"`
	Approved           bool                              `gorm:"not null;default:false" json:"approved"`
	CreatedAt          time.Time                         `json:"created_at"`
}

// BeforeCreate is a GORM hook that populates the primary key.
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
