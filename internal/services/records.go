package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"medtrack-server/internal/converters"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
	"medtrack-server/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

// MedicationInput holds the editable fields of a medication.
type MedicationInput struct {
	Name      string
	Dosage    string
	Form      string
	Frequency string
	Horarios  []string
	Stock     *int
	Active    *bool
	StartDate string
	EndDate   string
	Notes     string
}

// AppointmentInput holds the editable fields of an appointment.
type AppointmentInput struct {
	Category        models.AppointmentCategory
	Title           string
	ScheduledAt     time.Time
	Location        string
	Notes           string
	Specialty       string
	Professional    string
	ExamType        string
	Preparation     string
	DurationMinutes int
	Recurrence      string
	Weekdays        []int
}

// RecordService creates, edits and deletes medications and appointments.
type RecordService struct {
	meds     repository.Medications
	appts    repository.Appointments
	tracking *TrackingService
}

func NewRecordService(meds repository.Medications, appts repository.Appointments, tracking *TrackingService) *RecordService {
	return &RecordService{meds: meds, appts: appts, tracking: tracking}
}

func parseDay(s string) (*datatypes.Date, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DayLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	d := datatypes.Date(t)
	return &d, nil
}

func (in MedicationInput) apply(m *models.Medication, now time.Time) error {
	start, err := parseDay(in.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDay(in.EndDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && models.DayKey(end) < models.DayKey(start) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidInput, in.EndDate, in.StartDate)
	}
	horarios, err := converters.HorasToJSON(in.Horarios)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	m.Name = in.Name
	m.Dosage = in.Dosage
	m.Form = in.Form
	m.Frequency = in.Frequency
	m.Horarios = horarios
	today := models.Day(now)
	m.StatusDate = &today
	m.Stock = in.Stock
	if in.Active != nil {
		m.Active = *in.Active
	}
	m.StartDate = start
	m.EndDate = end
	m.Notes = in.Notes
	return nil
}

// CreateMedication stores a new medication for patientID. A medication is
// active unless the input says otherwise.
func (s *RecordService) CreateMedication(ctx context.Context, patientID string, in MedicationInput) (converters.MedicationView, error) {
	now := s.tracking.Now()
	m := models.Medication{PatientID: patientID, Active: true}
	if err := in.apply(&m, now); err != nil {
		return converters.MedicationView{}, err
	}
	it, err := converters.MedicationItem(m, now)
	if err != nil {
		return converters.MedicationView{}, err
	}
	m.NextDose = it.NextDue
	if err := s.meds.Create(ctx, &m); err != nil {
		return converters.MedicationView{}, err
	}
	return converters.Medication(m, now)
}

// UpdateMedication replaces the editable fields of medication id. Dose
// times kept by the edit keep today's status.
func (s *RecordService) UpdateMedication(ctx context.Context, patientID, id string, in MedicationInput) (converters.MedicationView, error) {
	m, err := s.meds.Get(ctx, patientID, id)
	if err != nil {
		return converters.MedicationView{}, err
	}
	now := s.tracking.Now()
	prev, prevErr := converters.MedicationItem(*m, now)
	if err := in.apply(m, now); err != nil {
		return converters.MedicationView{}, err
	}
	if prevErr == nil {
		if err := carryStatuses(m, prev.Occurrences); err != nil {
			return converters.MedicationView{}, err
		}
	}
	it, err := converters.MedicationItem(*m, now)
	if err != nil {
		return converters.MedicationView{}, err
	}
	if it.NextDue != "" {
		// A dose is pending again, so the medication is back on today's list.
		m.RemovedOn = nil
		m.RemovalReason = ""
	}
	m.NextDose = it.NextDue
	if err := s.meds.Save(ctx, m); err != nil {
		return converters.MedicationView{}, err
	}
	return converters.Medication(*m, now)
}

// SetMedicationActive switches a medication on or off without touching its
// schedule.
func (s *RecordService) SetMedicationActive(ctx context.Context, patientID, id string, active bool) (converters.MedicationView, error) {
	m, err := s.meds.Get(ctx, patientID, id)
	if err != nil {
		return converters.MedicationView{}, err
	}
	m.Active = active
	if err := s.meds.Save(ctx, m); err != nil {
		return converters.MedicationView{}, err
	}
	return converters.Medication(*m, s.tracking.Now())
}

func carryStatuses(m *models.Medication, prev []occurrence.Occurrence) error {
	occ, err := converters.DecodeHorarios(m.Horarios)
	if err != nil {
		return err
	}
	kept := occurrence.Item{Occurrences: prev}
	for i := range occ {
		if j := kept.Find(occ[i].Hora); j >= 0 {
			occ[i] = prev[j]
		}
	}
	m.Horarios, err = converters.EncodeHorarios(occ)
	return err
}

func (s *RecordService) DeleteMedication(ctx context.Context, patientID, id string) error {
	return s.meds.Delete(ctx, patientID, id)
}

func (in AppointmentInput) apply(a *models.Appointment) error {
	switch in.Category {
	case models.CategoryConsultation, models.CategoryExam, models.CategoryActivity:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	recurrence := in.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}
	if in.Category != models.CategoryActivity && recurrence != models.RecurrenceNone {
		return fmt.Errorf("%w: only activities can recur", ErrInvalidInput)
	}
	if recurrence == models.RecurrenceWeekly && len(in.Weekdays) == 0 {
		return fmt.Errorf("%w: weekly activities need at least one weekday", ErrInvalidInput)
	}

	a.Category = in.Category
	a.Title = in.Title
	a.ScheduledAt = in.ScheduledAt
	a.Location = in.Location
	a.Notes = in.Notes
	a.Specialty = in.Specialty
	a.Professional = in.Professional
	a.ExamType = in.ExamType
	a.Preparation = in.Preparation
	a.DurationMinutes = in.DurationMinutes
	a.Recurrence = recurrence
	a.Weekdays = datatypes.JSONSlice[int](in.Weekdays)
	return nil
}

// CreateAppointment stores a new scheduled appointment for patientID.
func (s *RecordService) CreateAppointment(ctx context.Context, patientID string, in AppointmentInput) (converters.AppointmentView, error) {
	a := models.Appointment{PatientID: patientID, Status: models.StatusScheduled}
	if err := in.apply(&a); err != nil {
		return converters.AppointmentView{}, err
	}
	if err := s.appts.Create(ctx, &a); err != nil {
		return converters.AppointmentView{}, err
	}
	return converters.Appointment(a, s.tracking.Now())
}

// UpdateAppointment replaces the editable fields of appointment id.
func (s *RecordService) UpdateAppointment(ctx context.Context, patientID, id string, in AppointmentInput) (converters.AppointmentView, error) {
	a, err := s.appts.Get(ctx, patientID, id)
	if err != nil {
		return converters.AppointmentView{}, err
	}
	if err := in.apply(a); err != nil {
		return converters.AppointmentView{}, err
	}
	if err := s.appts.Save(ctx, a); err != nil {
		return converters.AppointmentView{}, err
	}
	return converters.Appointment(*a, s.tracking.Now())
}

// RescheduleAppointment moves appointment id and makes it pending again.
func (s *RecordService) RescheduleAppointment(ctx context.Context, patientID, id string, at time.Time) (converters.AppointmentView, error) {
	a, err := s.appts.Get(ctx, patientID, id)
	if err != nil {
		return converters.AppointmentView{}, err
	}
	a.ScheduledAt = at
	a.Status = models.StatusScheduled
	a.CompletedAt = nil
	a.RemovedOn = nil
	a.RemovalReason = ""
	if err := s.appts.Save(ctx, a); err != nil {
		return converters.AppointmentView{}, err
	}
	return converters.Appointment(*a, s.tracking.Now())
}

func (s *RecordService) DeleteAppointment(ctx context.Context, patientID, id string) error {
	return s.appts.Delete(ctx, patientID, id)
}
