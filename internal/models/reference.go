package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Material is an entry of the material master.
type Material struct {
	Code string `gorm:"primaryKey" json:"code"`
	Name string `gorm:"not null" json:"name"`
}

// Staff is a maintenance worker who can be recorded on a job.
type Staff struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Designation string    `json:"designation,omitempty"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
}

// TableName keeps the singular table name used by the web client.
func (Staff) TableName() string {
	return "staff"
}

// BeforeCreate is a GORM hook that populates the primary key.
func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DefaultMaterials is the material master loaded by the seed step.
var DefaultMaterials = []Material{
	{Code: "A001", Name: "AC Filter"},
	{Code: "A002", Name: "AC Gas R22"},
	{Code: "A003", Name: "AC Capacitor"},
	{Code: "A004", Name: "AC Fan Motor"},
	{Code: "A005", Name: "AC Remote Control"},
	{Code: "E001", Name: "LED Bulb 10W"},
	{Code: "E002", Name: "LED Tube Light 20W"},
	{Code: "E003", Name: "MCB Single Pole"},
	{Code: "E004", Name: "Fan Capacitor"},
	{Code: "E005", Name: "Switch 6A"},
	{Code: "P001", Name: "PVC Pipe 1/2 inch"},
	{Code: "P002", Name: "Ball Valve 1/2 inch"},
	{Code: "P003", Name: "Tank Float Valve"},
	{Code: "P004", Name: "Sink Trap"},
	{Code: "P005", Name: "Water Tap"},
}

// DefaultStaff is the staff roster loaded by the seed step.
var DefaultStaff = []Staff{
	{Name: "Staff A", Active: true},
	{Name: "Staff B", Active: true},
	{Name: "Staff C", Active: true},
}
