package models

import (
	"time"

	"gorm.io/datatypes"
)

// AppointmentCategory separates consultations, exams and activities.
type AppointmentCategory string

const (
	CategoryConsultation AppointmentCategory = "consultation"
	CategoryExam         AppointmentCategory = "exam"
	CategoryActivity     AppointmentCategory = "activity"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusDone      AppointmentStatus = "done"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Recurrence of an activity.
const (
	RecurrenceNone   = "none"
	RecurrenceDaily  = "daily"
	RecurrenceWeekly = "weekly"
)

// Appointment is a consultation, exam or activity. Category decides which of
// the optional fields apply.
type Appointment struct {
	BaseModel
	PatientID   string              `gorm:"size:36;index;not null" json:"patientId"`
	Category    AppointmentCategory `gorm:"size:20;not null" json:"category"`
	Title       string              `gorm:"size:150;not null" json:"title"`
	ScheduledAt time.Time           `gorm:"index;not null" json:"scheduledAt"`
	Status      AppointmentStatus   `gorm:"size:20;default:'scheduled'" json:"status"`
	Location    string              `gorm:"size:255" json:"location,omitempty"`
	Notes       string              `gorm:"type:text" json:"notes,omitempty"`

	// consultation
	Specialty    string `gorm:"size:100" json:"specialty,omitempty"`
	Professional string `gorm:"size:150" json:"professional,omitempty"`

	// exam
	ExamType    string `gorm:"size:100" json:"examType,omitempty"`
	Preparation string `gorm:"type:text" json:"preparation,omitempty"`

	// activity
	DurationMinutes int                      `json:"durationMinutes,omitempty"`
	Recurrence      string                   `gorm:"size:10" json:"recurrence,omitempty"`
	Weekdays        datatypes.JSONSlice[int] `json:"weekdays,omitempty"`

	// StatusDate is the day Status was set. A recurring activity starts
	// every other day scheduled.
	StatusDate    *datatypes.Date `json:"statusDate,omitempty"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	RemovedOn     *datatypes.Date `json:"removedOn,omitempty"`
	RemovalReason string          `gorm:"size:20" json:"removalReason,omitempty"`
}

// Recurring reports whether a is an activity repeating daily or weekly.
func (a Appointment) Recurring() bool {
	return a.Category == CategoryActivity &&
		(a.Recurrence == RecurrenceDaily || a.Recurrence == RecurrenceWeekly)
}
