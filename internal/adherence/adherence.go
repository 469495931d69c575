// Package adherence computes how many planned doses and appointments were
// actually completed over a period, and the counters of today's dashboard.
package adherence

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"medtrack-server/internal/converters"
	"medtrack-server/internal/listing"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
)

var ErrInvalidPeriod = errors.New("period end is before its start")

// Period is an inclusive range of calendar days.
type Period struct {
	From time.Time
	To   time.Time
}

// NewPeriod truncates from and to to days in loc.
func NewPeriod(from, to time.Time, loc *time.Location) (Period, error) {
	p := Period{From: startOfDay(from, loc), To: startOfDay(to, loc)}
	if p.To.Before(p.From) {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// ParsePeriod reads two YYYY-MM-DD days. An empty from means 29 days before
// to; an empty to means today.
func ParsePeriod(from, to string, now time.Time) (Period, error) {
	loc := now.Location()
	end := now
	if to != "" {
		t, err := time.ParseInLocation(models.DayLayout, to, loc)
		if err != nil {
			return Period{}, err
		}
		end = t
	}
	start := end.AddDate(0, 0, -29)
	if from != "" {
		t, err := time.ParseInLocation(models.DayLayout, from, loc)
		if err != nil {
			return Period{}, err
		}
		start = t
	}
	return NewPeriod(start, end, loc)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Summary counts planned and finalized occurrences.
type Summary struct {
	Planned    int     `json:"planned"`
	Completed  int     `json:"completed"`
	Excluded   int     `json:"excluded"`
	Percentage float64 `json:"percentage"`
}

func (s *Summary) add(o Summary) {
	s.Planned += o.Planned
	s.Completed += o.Completed
	s.Excluded += o.Excluded
}

func (s *Summary) finish() {
	s.Percentage = Percentage(s.Completed, s.Planned)
}

// Percentage is completed over planned, rounded to one decimal. Nothing
// planned yields 0.
func Percentage(completed, planned int) float64 {
	if planned <= 0 {
		return 0
	}
	return math.Round(float64(completed)*1000/float64(planned)) / 10
}

// MedicationSummary is the adherence of one medication.
type MedicationSummary struct {
	MedicationID string `json:"medicationId"`
	Name         string `json:"name"`
	Summary
}

// Report is the adherence over a period.
type Report struct {
	From         string              `json:"from"`
	To           string              `json:"to"`
	Medications  []MedicationSummary `json:"medications"`
	Doses        Summary             `json:"doses"`
	Appointments Summary             `json:"appointments"`
}

// Compute builds the report for p. Days after now are not planned yet.
// Medications whose horarios cannot be read are skipped and logged.
func Compute(meds []models.Medication, logs []models.DoseLog, appts []models.Appointment, p Period, now time.Time, logger zerolog.Logger) Report {
	loc := p.From.Location()
	end := p.To
	if today := startOfDay(now, loc); end.After(today) {
		end = today
	}

	report := Report{
		From:        p.From.Format(models.DayLayout),
		To:          p.To.Format(models.DayLayout),
		Medications: make([]MedicationSummary, 0, len(meds)),
	}

	byMed := make(map[string]*MedicationSummary, len(meds))
	for _, m := range meds {
		occ, err := converters.DecodeHorarios(m.Horarios)
		if err != nil {
			logger.Warn().Err(err).Str("medication_id", m.ID).Msg("skipping medication in adherence report")
			continue
		}
		perDay := 0
		for _, o := range occ {
			if o.Real() {
				perDay++
			}
		}
		ms := MedicationSummary{MedicationID: m.ID, Name: m.Name}
		for day := p.From; !day.After(end); day = day.AddDate(0, 0, 1) {
			if inWindow(m, day) {
				ms.Planned += perDay
			}
		}
		report.Medications = append(report.Medications, ms)
	}
	for i := range report.Medications {
		byMed[report.Medications[i].MedicationID] = &report.Medications[i]
	}

	for _, l := range logs {
		ms, ok := byMed[l.MedicationID]
		if !ok {
			continue
		}
		day := time.Time(l.Day)
		if dayKey(day) < report.From || dayKey(day) > report.To {
			continue
		}
		switch occurrence.Status(l.Status) {
		case occurrence.StatusCompleted:
			ms.Completed++
		case occurrence.StatusExcluded:
			ms.Excluded++
		}
	}

	for i := range report.Medications {
		report.Medications[i].finish()
		report.Doses.add(report.Medications[i].Summary)
	}
	report.Doses.finish()
	sort.SliceStable(report.Medications, func(i, j int) bool {
		return listing.Fold(report.Medications[i].Name) < listing.Fold(report.Medications[j].Name)
	})

	lastKey := end.Format(models.DayLayout)
	for _, a := range appts {
		key := a.ScheduledAt.In(loc).Format(models.DayLayout)
		if key < report.From || key > lastKey {
			continue
		}
		report.Appointments.Planned++
		switch a.Status {
		case models.StatusDone:
			report.Appointments.Completed++
		case models.StatusCancelled:
			report.Appointments.Excluded++
		}
	}
	report.Appointments.finish()
	return report
}

func dayKey(t time.Time) string {
	return t.Format(models.DayLayout)
}

// inWindow reports whether m is planned on day: active and within its
// start and end dates.
func inWindow(m models.Medication, day time.Time) bool {
	if !m.Active {
		return false
	}
	key := dayKey(day)
	if m.StartDate != nil && key < models.DayKey(m.StartDate) {
		return false
	}
	if m.EndDate != nil && key > models.DayKey(m.EndDate) {
		return false
	}
	return true
}

// Counters is the state of today's occurrences.
type Counters struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Excluded  int `json:"excluded"`
}

func (c *Counters) count(s occurrence.Status) {
	switch s {
	case occurrence.StatusPending:
		c.Pending++
	case occurrence.StatusCompleted:
		c.Completed++
	case occurrence.StatusExcluded:
		c.Excluded++
	}
}

// Dashboard holds today's counters and what is due next.
type Dashboard struct {
	Doses         Counters `json:"doses"`
	Appointments  Counters `json:"appointments"`
	NextDose      string   `json:"nextDose"`
	NextDoseName  string   `json:"nextDoseName,omitempty"`
	AdherenceRate float64  `json:"adherenceRate"`
}

// Today counts the occurrences of today's medications and appointments.
// Items removed from today still count, so finishing the day keeps its
// totals. Inactive medications never count.
func Today(meds []converters.MedicationView, appts []converters.AppointmentView, now time.Time) Dashboard {
	d := Dashboard{NextDose: occurrence.NoTime}
	for _, m := range meds {
		shown := m
		shown.RemovedFromToday = false
		if !listing.ScheduledToday(shown, now) {
			continue
		}
		for _, o := range m.Horarios {
			if o.Real() {
				d.Doses.count(o.Status)
			}
		}
		if m.NextDose != occurrence.NoTime && (d.NextDose == occurrence.NoTime || m.NextDose < d.NextDose) {
			d.NextDose = m.NextDose
			d.NextDoseName = m.Name
		}
	}
	for _, a := range appts {
		shown := a
		shown.RemovedFromToday = false
		if listing.OccursToday(shown, now) {
			d.Appointments.count(a.Occurrence.Status)
		}
	}
	d.AdherenceRate = Percentage(d.Doses.Completed, d.Doses.Pending+d.Doses.Completed+d.Doses.Excluded)
	return d
}
