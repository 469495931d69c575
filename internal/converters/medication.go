package converters

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"medtrack-server/internal/events"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
)

// MedicationView is the client-facing shape of a medication for today.
type MedicationView struct {
	ID               string                   `json:"id"`
	PatientID        string                   `json:"patientId"`
	Name             string                   `json:"name"`
	Dosage           string                   `json:"dosage"`
	Form             string                   `json:"form"`
	Frequency        string                   `json:"frequency"`
	Horarios         []occurrence.Occurrence  `json:"horarios"`
	NextDose         string                   `json:"nextDose"`
	AllCompleted     bool                     `json:"allCompleted"`
	Stock            *int                     `json:"stock,omitempty"`
	Active           bool                     `json:"active"`
	StartDate        string                   `json:"startDate,omitempty"`
	EndDate          string                   `json:"endDate,omitempty"`
	RemovedFromToday bool                     `json:"removedFromToday"`
	RemovalReason    occurrence.RemovalReason `json:"removalReason,omitempty"`
	Notes            string                   `json:"notes,omitempty"`
}

// MedicationItem builds the tracked state of rec for the day of now.
// Statuses stored for an earlier day are reset to pending.
func MedicationItem(rec models.Medication, now time.Time) (occurrence.Item, error) {
	if rec.ID == "" || rec.Name == "" {
		return occurrence.Item{}, fmt.Errorf("%w: medication without id or name", ErrMalformedRecord)
	}
	occ, err := DecodeHorarios(rec.Horarios)
	if err != nil {
		return occurrence.Item{}, fmt.Errorf("medication %s: %w", rec.ID, err)
	}

	if !models.SameDay(rec.StatusDate, now) {
		for i := range occ {
			occ[i].Status = occurrence.StatusPending
			occ[i].OccurrenceID = ""
			occ[i].CompletedAt = nil
		}
	}

	it := occurrence.Item{
		ID:          rec.ID,
		Type:        events.ItemMedication,
		PatientID:   rec.PatientID,
		Occurrences: occ,
	}
	if rec.Stock != nil {
		it.TracksStock = true
		it.Stock = *rec.Stock
	}
	occurrence.Recompute(&it)
	applyStoredRemoval(&it, rec.RemovedOn, rec.RemovalReason, now)
	return it, nil
}

// applyStoredRemoval replaces the derived removal marker with the stored
// one: an item restored today stays visible even when nothing is pending.
func applyStoredRemoval(it *occurrence.Item, removedOn *datatypes.Date, reason string, now time.Time) {
	derived := it.RemovalReason
	if !models.SameDay(removedOn, now) {
		it.RemovedFromToday = false
		it.RemovalReason = occurrence.RemovalNone
		return
	}
	it.RemovedFromToday = true
	it.RemovalReason = occurrence.RemovalReason(reason)
	if it.RemovalReason == occurrence.RemovalNone {
		it.RemovalReason = derived
	}
}

// NewMedicationView renders rec with the tracked state it.
func NewMedicationView(rec models.Medication, it occurrence.Item) MedicationView {
	view := MedicationView{
		ID:               rec.ID,
		PatientID:        rec.PatientID,
		Name:             rec.Name,
		Dosage:           rec.Dosage,
		Form:             rec.Form,
		Frequency:        rec.Frequency,
		Horarios:         it.Occurrences,
		NextDose:         it.NextDue,
		AllCompleted:     it.AllCompleted,
		Active:           rec.Active,
		StartDate:        models.DayKey(rec.StartDate),
		EndDate:          models.DayKey(rec.EndDate),
		RemovedFromToday: it.RemovedFromToday,
		RemovalReason:    it.RemovalReason,
		Notes:            rec.Notes,
	}
	if view.NextDose == "" {
		view.NextDose = occurrence.NoTime
	}
	if it.TracksStock {
		stock := it.Stock
		view.Stock = &stock
	}
	return view
}

// Medication converts one stored row.
func Medication(rec models.Medication, now time.Time) (MedicationView, error) {
	it, err := MedicationItem(rec, now)
	if err != nil {
		return MedicationView{}, err
	}
	return NewMedicationView(rec, it), nil
}

// Medications converts rows, skipping and logging the ones that cannot be
// read so one bad row never hides the rest of the list.
func Medications(recs []models.Medication, now time.Time, logger zerolog.Logger) []MedicationView {
	out := make([]MedicationView, 0, len(recs))
	for _, rec := range recs {
		view, err := Medication(rec, now)
		if err != nil {
			logger.Warn().Err(err).Str("medication_id", rec.ID).Msg("skipping unreadable medication")
			continue
		}
		out = append(out, view)
	}
	return out
}

// ApplyMedicationItem writes the tracked state back onto rec for the day of
// now.
func ApplyMedicationItem(rec *models.Medication, it occurrence.Item, now time.Time) error {
	horarios, err := EncodeHorarios(it.Occurrences)
	if err != nil {
		return err
	}
	day := models.Day(now)
	rec.Horarios = horarios
	rec.StatusDate = &day
	rec.NextDose = it.NextDue
	if it.TracksStock {
		stock := it.Stock
		rec.Stock = &stock
	}
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
