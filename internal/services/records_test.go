package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"medtrack-server/internal/listing"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
)

func TestRecords_CreateMedication(t *testing.T) {
	f := newFixture(t)
	records := NewRecordService(f.meds, f.appts, f.tracking)
	ctx := context.Background()

	view, err := records.CreateMedication(ctx, patientID, MedicationInput{
		Name:     "Metformina",
		Form:     "comprimido",
		Horarios: []string{"20:00", "8:00"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !view.Active || view.NextDose != "08:00" || len(view.Horarios) != 2 {
		t.Errorf("unexpected view %+v", view)
	}
	if f.meds.stored(view.ID).NextDose != "08:00" {
		t.Error("next dose not stored")
	}

	_, err = records.CreateMedication(ctx, patientID, MedicationInput{Name: "X", Horarios: []string{"25:00"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a bad time, got %v", err)
	}
	_, err = records.CreateMedication(ctx, patientID, MedicationInput{Name: "X", StartDate: "2026-03-10", EndDate: "2026-03-01"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for an inverted window, got %v", err)
	}
}

func TestRecords_UpdateMedicationKeepsStatuses(t *testing.T) {
	f := newFixture(t)
	f.addMedication("med-1", 10)
	records := NewRecordService(f.meds, f.appts, f.tracking)
	ctx := context.Background()

	if _, err := f.tracking.CompleteDose(ctx, accountID, patientID, "med-1", "08:00"); err != nil {
		t.Fatal(err)
	}
	view, err := records.UpdateMedication(ctx, patientID, "med-1", MedicationInput{
		Name:     "Losartana 50mg",
		Horarios: []string{"08:00", "14:00"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.Horarios[0].Status != occurrence.StatusCompleted || view.Horarios[1].Hora != "14:00" {
		t.Errorf("unexpected horarios %+v", view.Horarios)
	}
	if view.NextDose != "14:00" {
		t.Errorf("expected next dose 14:00, got %s", view.NextDose)
	}
}

func TestRecords_Appointments(t *testing.T) {
	f := newFixture(t)
	records := NewRecordService(f.meds, f.appts, f.tracking)
	ctx := context.Background()
	at := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)

	view, err := records.CreateAppointment(ctx, patientID, AppointmentInput{
		Category: models.CategoryExam, Title: "Hemograma", ScheduledAt: at, Preparation: "jejum de 8h",
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != models.StatusScheduled || view.Hora != "09:30" || view.Recurrence != models.RecurrenceNone {
		t.Errorf("unexpected view %+v", view)
	}

	if _, err := records.CreateAppointment(ctx, patientID, AppointmentInput{
		Category: models.CategoryConsultation, Title: "X", ScheduledAt: at, Recurrence: models.RecurrenceDaily,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("only activities recur, got %v", err)
	}
	if _, err := records.CreateAppointment(ctx, patientID, AppointmentInput{
		Category: models.CategoryActivity, Title: "Pilates", ScheduledAt: at, Recurrence: models.RecurrenceWeekly,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("weekly needs weekdays, got %v", err)
	}

	if _, err := f.tracking.CancelAppointment(ctx, accountID, patientID, view.ID); err != nil {
		t.Fatal(err)
	}
	moved, err := records.RescheduleAppointment(ctx, patientID, view.ID, at.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if moved.Status != models.StatusScheduled || moved.RemovedFromToday || moved.Day != "2026-03-14" {
		t.Errorf("reschedule must make it pending again, got %+v", moved)
	}

	if err := records.DeleteAppointment(ctx, patientID, view.ID); err != nil {
		t.Fatal(err)
	}
}

func TestReports_DashboardAndAdherence(t *testing.T) {
	f := newFixture(t)
	f.addMedication("med-1", 10)
	f.addAppointment("appt-1")
	reports := NewReportService(f.meds, f.appts, f.tracking, zerolog.Nop())
	ctx := context.Background()

	f.tracking.CompleteDose(ctx, accountID, patientID, "med-1", "08:00")

	d, err := reports.Dashboard(ctx, patientID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Doses.Completed != 1 || d.Doses.Pending != 1 || d.Appointments.Pending != 1 {
		t.Errorf("unexpected dashboard %+v", d)
	}
	if d.NextDose != "20:00" {
		t.Errorf("expected next dose 20:00, got %s", d.NextDose)
	}

	r, err := reports.Adherence(ctx, patientID, "2026-03-10", "2026-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if r.Doses.Planned != 2 || r.Doses.Completed != 1 || r.Doses.Percentage != 50 {
		t.Errorf("unexpected adherence %+v", r.Doses)
	}

	if _, err := reports.Adherence(ctx, patientID, "2026-03-10", "2026-03-01"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecords_UpdateMedicationBringsBackPendingDose(t *testing.T) {
	f := newFixture(t)
	f.addMedication("med-1", 10)
	records := NewRecordService(f.meds, f.appts, f.tracking)
	ctx := context.Background()

	f.tracking.CompleteDose(ctx, accountID, patientID, "med-1", "08:00")
	f.tracking.CompleteDose(ctx, accountID, patientID, "med-1", "20:00")
	if stored := f.meds.stored("med-1"); stored.RemovedOn == nil {
		t.Fatal("a finished medication is removed from today")
	}

	view, err := records.UpdateMedication(ctx, patientID, "med-1", MedicationInput{
		Name:     "Losartana",
		Horarios: []string{"08:00", "20:00", "22:00"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.RemovedFromToday || view.NextDose != "22:00" {
		t.Errorf("a new pending dose must bring the medication back, got %+v", view)
	}
	if stored := f.meds.stored("med-1"); stored.RemovedOn != nil || stored.RemovalReason != "" {
		t.Errorf("stored removal not cleared: %v %q", stored.RemovedOn, stored.RemovalReason)
	}

	today, _ := f.tracking.ListMedications(ctx, patientID, listing.Query{Tab: listing.TabToday})
	if len(today) != 1 {
		t.Errorf("expected the medication on today's list, got %d", len(today))
	}
}
