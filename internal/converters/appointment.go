package converters

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medtrack-server/internal/events"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
)

// AppointmentView is the client-facing shape of an appointment.
type AppointmentView struct {
	ID               string                     `json:"id"`
	PatientID        string                     `json:"patientId"`
	Category         models.AppointmentCategory `json:"category"`
	Title            string                     `json:"title"`
	ScheduledAt      time.Time                  `json:"scheduledAt"`
	Day              string                     `json:"day"`
	Hora             string                     `json:"hora"`
	Status           models.AppointmentStatus   `json:"status"`
	Occurrence       occurrence.Occurrence      `json:"occurrence"`
	Location         string                     `json:"location,omitempty"`
	Notes            string                     `json:"notes,omitempty"`
	Specialty        string                     `json:"specialty,omitempty"`
	Professional     string                     `json:"professional,omitempty"`
	ExamType         string                     `json:"examType,omitempty"`
	Preparation      string                     `json:"preparation,omitempty"`
	DurationMinutes  int                        `json:"durationMinutes,omitempty"`
	Recurrence       string                     `json:"recurrence,omitempty"`
	Weekdays         []int                      `json:"weekdays,omitempty"`
	RemovedFromToday bool                       `json:"removedFromToday"`
	RemovalReason    occurrence.RemovalReason   `json:"removalReason,omitempty"`
}

var appointmentToOccurrence = map[models.AppointmentStatus]occurrence.Status{
	models.StatusScheduled: occurrence.StatusPending,
	models.StatusDone:      occurrence.StatusCompleted,
	models.StatusCancelled: occurrence.StatusExcluded,
}

var occurrenceToAppointment = map[occurrence.Status]models.AppointmentStatus{
	occurrence.StatusPending:   models.StatusScheduled,
	occurrence.StatusCompleted: models.StatusDone,
	occurrence.StatusExcluded:  models.StatusCancelled,
}

// AppointmentItem builds the tracked state of rec. An appointment has a
// single occurrence at its scheduled time, read in now's location. A
// recurring activity has one occurrence per day, so a status stored for an
// earlier day reads as pending.
func AppointmentItem(rec models.Appointment, now time.Time) (occurrence.Item, error) {
	if rec.ID == "" || rec.ScheduledAt.IsZero() {
		return occurrence.Item{}, fmt.Errorf("%w: appointment without id or date", ErrMalformedRecord)
	}
	status, ok := appointmentToOccurrence[rec.Status]
	if !ok {
		return occurrence.Item{}, fmt.Errorf("%w: appointment %s has status %q", ErrMalformedRecord, rec.ID, rec.Status)
	}
	switch rec.Category {
	case models.CategoryConsultation, models.CategoryExam, models.CategoryActivity:
	default:
		return occurrence.Item{}, fmt.Errorf("%w: appointment %s has category %q", ErrMalformedRecord, rec.ID, rec.Category)
	}

	completedAt := rec.CompletedAt
	if rec.Recurring() && !models.SameDay(rec.StatusDate, now) {
		status = occurrence.StatusPending
		completedAt = nil
	}

	scheduled := rec.ScheduledAt.In(now.Location())
	it := occurrence.Item{
		ID:        rec.ID,
		Type:      events.ItemAppointment,
		PatientID: rec.PatientID,
		Occurrences: []occurrence.Occurrence{{
			Hora:         scheduled.Format("15:04"),
			Status:       status,
			OccurrenceID: rec.ID,
			ScheduledAt:  &scheduled,
			CompletedAt:  completedAt,
		}},
	}
	occurrence.Recompute(&it)
	applyStoredRemoval(&it, rec.RemovedOn, rec.RemovalReason, now)
	return it, nil
}

// NewAppointmentView renders rec with the tracked state it.
func NewAppointmentView(rec models.Appointment, it occurrence.Item) AppointmentView {
	occ := it.Occurrences[0]
	scheduled := rec.ScheduledAt
	if occ.ScheduledAt != nil {
		scheduled = *occ.ScheduledAt
	}
	return AppointmentView{
		ID:               rec.ID,
		PatientID:        rec.PatientID,
		Category:         rec.Category,
		Title:            rec.Title,
		ScheduledAt:      scheduled,
		Day:              scheduled.Format(models.DayLayout),
		Hora:             occ.Hora,
		Status:           occurrenceToAppointment[occ.Status],
		Occurrence:       occ,
		Location:         rec.Location,
		Notes:            rec.Notes,
		Specialty:        rec.Specialty,
		Professional:     rec.Professional,
		ExamType:         rec.ExamType,
		Preparation:      rec.Preparation,
		DurationMinutes:  rec.DurationMinutes,
		Recurrence:       rec.Recurrence,
		Weekdays:         []int(rec.Weekdays),
		RemovedFromToday: it.RemovedFromToday,
		RemovalReason:    it.RemovalReason,
	}
}

// Appointment converts one stored row.
func Appointment(rec models.Appointment, now time.Time) (AppointmentView, error) {
	it, err := AppointmentItem(rec, now)
	if err != nil {
		return AppointmentView{}, err
	}
	return NewAppointmentView(rec, it), nil
}

// Appointments converts rows, skipping and logging unreadable ones.
func Appointments(recs []models.Appointment, now time.Time, logger zerolog.Logger) []AppointmentView {
	out := make([]AppointmentView, 0, len(recs))
	for _, rec := range recs {
		view, err := Appointment(rec, now)
		if err != nil {
			logger.Warn().Err(err).Str("appointment_id", rec.ID).Msg("skipping unreadable appointment")
			continue
		}
		out = append(out, view)
	}
	return out
}

// ApplyAppointmentItem writes the tracked state back onto rec.
func ApplyAppointmentItem(rec *models.Appointment, it occurrence.Item, now time.Time) error {
	if len(it.Occurrences) != 1 {
		return fmt.Errorf("%w: appointment %s needs exactly one occurrence", ErrMalformedRecord, rec.ID)
	}
	occ := it.Occurrences[0]
	status, ok := occurrenceToAppointment[occ.Status]
	if !ok {
		return fmt.Errorf("%w: unknown occurrence status %q", ErrMalformedRecord, occ.Status)
	}
	day := models.Day(now)
	rec.Status = status
	rec.StatusDate = &day
	rec.CompletedAt = occ.CompletedAt
	if it.RemovedFromToday {
		removed := models.Day(now)
		rec.RemovedOn = &removed
		rec.RemovalReason = string(it.RemovalReason)
	} else {
		rec.RemovedOn = nil
		rec.RemovalReason = ""
	}
	return nil
}
