package models

import (
	"time"

	"gorm.io/datatypes"
)

// Medication is a patient's medication as stored. Horarios holds today's
// dose times either as plain strings (older rows) or as {hora,status}
// objects; StatusDate is the day those statuses belong to.
type Medication struct {
	BaseModel
	PatientID     string          `gorm:"size:36;index;not null" json:"patientId"`
	Name          string          `gorm:"size:150;not null" json:"name"`
	Dosage        string          `gorm:"size:100" json:"dosage"`
	Form          string          `gorm:"size:50" json:"form"`
	Frequency     string          `gorm:"size:100" json:"frequency"`
	Horarios      datatypes.JSON  `json:"horarios"`
	StatusDate    *datatypes.Date `json:"statusDate,omitempty"`
	Stock         *int            `json:"stock,omitempty"`
	Active        bool            `gorm:"not null" json:"active"`
	StartDate     *datatypes.Date `json:"startDate,omitempty"`
	EndDate       *datatypes.Date `json:"endDate,omitempty"`
	NextDose      string          `gorm:"size:5" json:"nextDose"`
	RemovedOn     *datatypes.Date `json:"removedOn,omitempty"`
	RemovalReason string          `gorm:"size:20" json:"removalReason,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
}

// DoseLog is the persisted row for one finalized dose. Undo deletes it.
// A dose is logged at most once per day.
type DoseLog struct {
	BaseModel
	MedicationID string         `gorm:"size:36;uniqueIndex:idx_dose_log_once,priority:1;not null" json:"medicationId"`
	PatientID    string         `gorm:"size:36;index;not null" json:"patientId"`
	Day          datatypes.Date `gorm:"index;uniqueIndex:idx_dose_log_once,priority:2;not null" json:"day"`
	Hora         string         `gorm:"size:5;uniqueIndex:idx_dose_log_once,priority:3;not null" json:"hora"`
	Status       string         `gorm:"size:20;not null" json:"status"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}
