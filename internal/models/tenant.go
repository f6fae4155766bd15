package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BuildingName identifies one of the property's towers.
type BuildingName string

const (
	BuildingTowerA BuildingName = "Tower A"
	BuildingTowerB BuildingName = "Tower B"
	BuildingTowerC BuildingName = "Tower C"
)

// Valid reports whether b is a known building.
func (b BuildingName) Valid() bool {
	switch b {
	case BuildingTowerA, BuildingTowerB, BuildingTowerC:
		return true
	}
	return false
}

// Tenant is a resident account. MobileNo doubles as the login identifier.
type Tenant struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	MobileNo     string       `gorm:"uniqueIndex;not null" json:"mobile_no"`
	BuildingName BuildingName `json:"building_name"`
	RoomNo       string       `json:"room_no"`
	PasswordHash string       `gorm:"not null" json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
}

// BeforeCreate is a GORM hook that populates the primary key.
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
