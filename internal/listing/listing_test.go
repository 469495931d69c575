package listing

import (
	"testing"
	"time"

	"medtrack-server/internal/converters"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
)

// Tuesday.
var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func pending(horas ...string) []occurrence.Occurrence {
	out := make([]occurrence.Occurrence, len(horas))
	for i, h := range horas {
		out[i] = occurrence.Occurrence{Hora: h, Status: occurrence.StatusPending}
	}
	return out
}

func medView(id, name string, active bool, horarios []occurrence.Occurrence) converters.MedicationView {
	return converters.MedicationView{ID: id, Name: name, Active: active, Form: "comprimido", Horarios: horarios}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func medIDs(v []converters.MedicationView) []string {
	return ids(v, func(m converters.MedicationView) string { return m.ID })
}

func apptIDs(v []converters.AppointmentView) []string {
	return ids(v, func(a converters.AppointmentView) string { return a.ID })
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseTab(t *testing.T) {
	if tab, err := ParseTab(""); err != nil || tab != TabToday {
		t.Errorf("empty tab should default to today, got %q %v", tab, err)
	}
	for _, s := range []string{"hoje", "ativas", "todas"} {
		if _, err := ParseTab(s); err != nil {
			t.Errorf("%s: unexpected error %v", s, err)
		}
	}
	if _, err := ParseTab("amanha"); err == nil {
		t.Error("expected error for unknown tab")
	}
}

func TestMedications_TodayNeverIncludesInactive(t *testing.T) {
	views := []converters.MedicationView{
		medView("1", "Losartana", true, pending("08:00")),
		medView("2", "Metformina", false, pending("08:00", "20:00")),
	}
	got := Medications(views, Query{Tab: TabToday}, now)
	if !equal(medIDs(got), []string{"1"}) {
		t.Fatalf("expected only the active medication, got %v", medIDs(got))
	}
}

func TestMedications_TodayRules(t *testing.T) {
	outOfWindow := medView("3", "Amoxicilina", true, pending("08:00"))
	outOfWindow.EndDate = "2026-03-09"
	notStarted := medView("4", "Vitamina D", true, pending("08:00"))
	notStarted.StartDate = "2026-03-11"
	removed := medView("5", "Omeprazol", true, pending("07:00"))
	removed.RemovedFromToday = true
	inWindow := medView("6", "Ibuprofeno", true, pending("12:00"))
	inWindow.StartDate = "2026-03-10"
	inWindow.EndDate = "2026-03-10"

	views := []converters.MedicationView{
		medView("1", "Losartana", true, pending("08:00")),
		medView("2", "Sem horario", true, pending(occurrence.NoTime)),
		outOfWindow, notStarted, removed, inWindow,
	}
	got := Medications(views, Query{Tab: TabToday}, now)
	if !equal(medIDs(got), []string{"6", "1"}) {
		t.Fatalf("unexpected today list %v", medIDs(got))
	}
}

func TestMedications_Tabs(t *testing.T) {
	views := []converters.MedicationView{
		medView("1", "B", true, pending("08:00")),
		medView("2", "A", false, pending("08:00")),
	}
	if got := Medications(views, Query{Tab: TabActive}, now); !equal(medIDs(got), []string{"1"}) {
		t.Errorf("active tab: %v", medIDs(got))
	}
	if got := Medications(views, Query{Tab: TabAll}, now); !equal(medIDs(got), []string{"2", "1"}) {
		t.Errorf("all tab: %v", medIDs(got))
	}
}

func TestMedications_SearchIgnoresCaseAndAccents(t *testing.T) {
	views := []converters.MedicationView{
		medView("1", "Dipirona Sódica", true, pending("08:00")),
		medView("2", "Paracetamol", true, pending("08:00")),
	}
	for _, q := range []string{"dipi", "SODICA", "sódi", "  pirona "} {
		got := Medications(views, Query{Tab: TabAll, Search: q}, now)
		if !equal(medIDs(got), []string{"1"}) {
			t.Errorf("%q: expected match on Dipirona, got %v", q, medIDs(got))
		}
	}
}

func TestMedications_CategoryFilter(t *testing.T) {
	drops := medView("2", "Gotas", true, pending("08:00"))
	drops.Form = "gotas"
	views := []converters.MedicationView{medView("1", "Comp", true, pending("08:00")), drops}

	got := Medications(views, Query{Tab: TabAll, Category: "Gotas"}, now)
	if !equal(medIDs(got), []string{"2"}) {
		t.Errorf("expected drops only, got %v", medIDs(got))
	}
}

func TestMedications_IncompleteFirstThenByName(t *testing.T) {
	done := medView("1", "Atenolol", true, []occurrence.Occurrence{{Hora: "08:00", Status: occurrence.StatusCompleted}})
	done.AllCompleted = true
	views := []converters.MedicationView{
		done,
		medView("2", "Zinco", true, pending("08:00")),
		medView("3", "ácido fólico", true, pending("08:00")),
	}
	got := Medications(views, Query{Tab: TabAll}, now)
	if !equal(medIDs(got), []string{"3", "2", "1"}) {
		t.Errorf("unexpected order %v", medIDs(got))
	}
}

func apptView(id, title, day, hora string, status models.AppointmentStatus) converters.AppointmentView {
	st := map[models.AppointmentStatus]occurrence.Status{
		models.StatusScheduled: occurrence.StatusPending,
		models.StatusDone:      occurrence.StatusCompleted,
		models.StatusCancelled: occurrence.StatusExcluded,
	}[status]
	at, _ := time.Parse("2006-01-02 15:04", day+" "+hora)
	return converters.AppointmentView{
		ID:          id,
		Title:       title,
		Category:    models.CategoryConsultation,
		Day:         day,
		Hora:        hora,
		ScheduledAt: at,
		Status:      status,
		Occurrence:  occurrence.Occurrence{Hora: hora, Status: st},
	}
}

func TestAppointments_TodayAndRecurrence(t *testing.T) {
	daily := apptView("3", "Caminhada", "2026-03-01", "06:30", models.StatusScheduled)
	daily.Category = models.CategoryActivity
	daily.Recurrence = models.RecurrenceDaily

	weeklyTue := apptView("4", "Pilates", "2026-03-03", "18:00", models.StatusScheduled)
	weeklyTue.Category = models.CategoryActivity
	weeklyTue.Recurrence = models.RecurrenceWeekly
	weeklyTue.Weekdays = []int{2, 4}

	weeklyMon := apptView("5", "Natação", "2026-03-02", "07:00", models.StatusScheduled)
	weeklyMon.Category = models.CategoryActivity
	weeklyMon.Recurrence = models.RecurrenceWeekly
	weeklyMon.Weekdays = []int{1}

	future := apptView("6", "Yoga", "2026-03-20", "07:00", models.StatusScheduled)
	future.Category = models.CategoryActivity
	future.Recurrence = models.RecurrenceDaily

	views := []converters.AppointmentView{
		apptView("1", "Cardiologista", "2026-03-10", "14:00", models.StatusScheduled),
		apptView("2", "Dermatologista", "2026-03-11", "10:00", models.StatusScheduled),
		daily, weeklyTue, weeklyMon, future,
	}
	got := Appointments(views, Query{Tab: TabToday}, now)
	if !equal(apptIDs(got), []string{"3", "1", "4"}) {
		t.Fatalf("unexpected today list %v", apptIDs(got))
	}
}

func TestAppointments_FinishedLastThenByTime(t *testing.T) {
	views := []converters.AppointmentView{
		apptView("1", "Exame", "2026-03-10", "07:00", models.StatusDone),
		apptView("2", "Consulta", "2026-03-10", "15:00", models.StatusScheduled),
		apptView("3", "Retorno", "2026-03-10", "09:30", models.StatusScheduled),
		apptView("4", "Fisioterapia", "2026-03-10", "08:00", models.StatusCancelled),
	}
	got := Appointments(views, Query{Tab: TabAll}, now)
	if !equal(apptIDs(got), []string{"3", "2", "1", "4"}) {
		t.Errorf("unexpected order %v", apptIDs(got))
	}
}

func TestAppointments_ActiveTabAndCategory(t *testing.T) {
	exam := apptView("3", "Hemograma", "2026-03-12", "07:00", models.StatusScheduled)
	exam.Category = models.CategoryExam
	views := []converters.AppointmentView{
		apptView("1", "Consulta", "2026-03-10", "15:00", models.StatusDone),
		apptView("2", "Retorno", "2026-03-11", "09:30", models.StatusScheduled),
		exam,
	}
	if got := Appointments(views, Query{Tab: TabActive}, now); !equal(apptIDs(got), []string{"3", "2"}) {
		t.Errorf("active tab: %v", apptIDs(got))
	}
	if got := Appointments(views, Query{Tab: TabAll, Category: "exam"}, now); !equal(apptIDs(got), []string{"3"}) {
		t.Errorf("category filter: %v", apptIDs(got))
	}
	if got := Appointments(views, Query{Tab: TabAll, Search: "RETOR"}, now); !equal(apptIDs(got), []string{"2"}) {
		t.Errorf("search: %v", apptIDs(got))
	}
}
