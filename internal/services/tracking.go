// Package services coordinates the occurrence trackers, the converters and
// the repositories behind the HTTP handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"medtrack-server/internal/converters"
	"medtrack-server/internal/events"
	"medtrack-server/internal/gesture"
	"medtrack-server/internal/listing"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
	"medtrack-server/internal/repository"
)

var (
	ErrNotRemoved = errors.New("item is not removed from today")
	ErrForbidden  = errors.New("access to this patient is not allowed")
)

// DoseOutcome is the result of a dose transition.
type DoseOutcome struct {
	Medication converters.MedicationView `json:"medication"`
	Undo       *occurrence.UndoAction    `json:"undo,omitempty"`
}

// AppointmentOutcome is the result of an appointment transition.
type AppointmentOutcome struct {
	Appointment converters.AppointmentView `json:"appointment"`
	Undo        *occurrence.UndoAction     `json:"undo,omitempty"`
}

// UndoOutcome is the result of an undo. Exactly one of Medication and
// Appointment is set.
type UndoOutcome struct {
	Action      occurrence.UndoAction       `json:"action"`
	Medication  *converters.MedicationView  `json:"medication,omitempty"`
	Appointment *converters.AppointmentView `json:"appointment,omitempty"`
}

// GestureOutcome is what a replayed gesture did.
type GestureOutcome struct {
	Intent      gesture.Intent      `json:"intent"`
	Phase       gesture.Phase       `json:"phase"`
	DeltaX      float64             `json:"deltaX"`
	Medication  *DoseOutcome        `json:"medication,omitempty"`
	Appointment *AppointmentOutcome `json:"appointment,omitempty"`
}

// TrackingService runs completions, removals, undo and restore for
// medications and appointments. Each account gets its own tracker, so its
// undo slot is independent of other accounts.
type TrackingService struct {
	meds     repository.Medications
	appts    repository.Appointments
	registry *occurrence.Registry
	overlay  *occurrence.Overlay
	gestures gesture.Config
	now      func() time.Time
	loc      *time.Location
	logger   zerolog.Logger
}

// TrackingOption configures a TrackingService.
type TrackingOption func(*TrackingService)

// WithNow replaces time.Now. Trackers created by the registry must share
// the same clock.
func WithNow(now func() time.Time) TrackingOption {
	return func(s *TrackingService) { s.now = now }
}

// WithGestureConfig replaces the default gesture thresholds.
func WithGestureConfig(cfg gesture.Config) TrackingOption {
	return func(s *TrackingService) { s.gestures = cfg }
}

func NewTrackingService(
	meds repository.Medications,
	appts repository.Appointments,
	registry *occurrence.Registry,
	loc *time.Location,
	logger zerolog.Logger,
	opts ...TrackingOption,
) *TrackingService {
	if loc == nil {
		loc = time.Local
	}
	s := &TrackingService{
		meds:     meds,
		appts:    appts,
		registry: registry,
		overlay:  occurrence.NewOverlay(),
		gestures: gesture.DefaultConfig(),
		now:      time.Now,
		loc:      loc,
		logger:   logger.With().Str("component", "tracking").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time in the service's location.
func (s *TrackingService) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *TrackingService) medicationView(rec models.Medication, now time.Time) (converters.MedicationView, error) {
	it, err := converters.MedicationItem(rec, now)
	if err != nil {
		return converters.MedicationView{}, err
	}
	return converters.NewMedicationView(rec, s.overlay.Apply(it)), nil
}

func (s *TrackingService) appointmentView(rec models.Appointment, now time.Time) (converters.AppointmentView, error) {
	it, err := converters.AppointmentItem(rec, now)
	if err != nil {
		return converters.AppointmentView{}, err
	}
	return converters.NewAppointmentView(rec, s.overlay.Apply(it)), nil
}

// MedicationViews converts every medication of patientID, skipping and
// logging the unreadable ones.
func (s *TrackingService) MedicationViews(ctx context.Context, patientID string) ([]converters.MedicationView, error) {
	recs, err := s.meds.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	views := make([]converters.MedicationView, 0, len(recs))
	for _, rec := range recs {
		view, err := s.medicationView(rec, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("medication_id", rec.ID).Msg("skipping unreadable medication")
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// AppointmentViews converts every appointment of patientID, skipping and
// logging the unreadable ones.
func (s *TrackingService) AppointmentViews(ctx context.Context, patientID string) ([]converters.AppointmentView, error) {
	recs, err := s.appts.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	views := make([]converters.AppointmentView, 0, len(recs))
	for _, rec := range recs {
		view, err := s.appointmentView(rec, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", rec.ID).Msg("skipping unreadable appointment")
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// ListMedications returns the medications of patientID filtered by q.
func (s *TrackingService) ListMedications(ctx context.Context, patientID string, q listing.Query) ([]converters.MedicationView, error) {
	views, err := s.MedicationViews(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return listing.Medications(views, q, s.Now()), nil
}

// ListAppointments returns the appointments of patientID filtered by q.
func (s *TrackingService) ListAppointments(ctx context.Context, patientID string, q listing.Query) ([]converters.AppointmentView, error) {
	views, err := s.AppointmentViews(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return listing.Appointments(views, q, s.Now()), nil
}

// Medication returns one medication view.
func (s *TrackingService) Medication(ctx context.Context, patientID, id string) (converters.MedicationView, error) {
	rec, err := s.meds.Get(ctx, patientID, id)
	if err != nil {
		return converters.MedicationView{}, err
	}
	return s.medicationView(*rec, s.Now())
}

// Appointment returns one appointment view.
func (s *TrackingService) Appointment(ctx context.Context, patientID, id string) (converters.AppointmentView, error) {
	rec, err := s.appts.Get(ctx, patientID, id)
	if err != nil {
		return converters.AppointmentView{}, err
	}
	return s.appointmentView(*rec, s.Now())
}

// CompleteDose marks the dose of medication id at hora as taken.
func (s *TrackingService) CompleteDose(ctx context.Context, accountID, patientID, id, hora string) (DoseOutcome, error) {
	return s.doseTransition(ctx, accountID, patientID, id, hora, occurrence.ActionComplete)
}

// RemoveDose marks the dose of medication id at hora as skipped.
func (s *TrackingService) RemoveDose(ctx context.Context, accountID, patientID, id, hora string) (DoseOutcome, error) {
	return s.doseTransition(ctx, accountID, patientID, id, hora, occurrence.ActionRemove)
}

func (s *TrackingService) doseTransition(ctx context.Context, accountID, patientID, id, hora string, action occurrence.Action) (DoseOutcome, error) {
	hora, err := converters.NormalizeHora(hora)
	if err != nil {
		return DoseOutcome{}, err
	}
	rec, err := s.meds.Get(ctx, patientID, id)
	if err != nil {
		return DoseOutcome{}, err
	}
	now := s.Now()
	it, err := converters.MedicationItem(*rec, now)
	if err != nil {
		return DoseOutcome{}, err
	}

	tracker := s.registry.For(accountID)
	var next occurrence.Item
	var undo occurrence.UndoAction
	if action == occurrence.ActionComplete {
		next, undo, err = tracker.Complete(it, hora)
	} else {
		next, undo, err = tracker.Remove(it, hora)
	}
	if err != nil {
		return DoseOutcome{}, err
	}

	idx := next.Find(hora)
	occ := &next.Occurrences[idx]
	log := &models.DoseLog{
		MedicationID: rec.ID,
		PatientID:    rec.PatientID,
		Day:          models.Day(now),
		Hora:         hora,
		Status:       string(occ.Status),
		CompletedAt:  occ.CompletedAt,
	}
	log.ID = models.NewID()
	occ.OccurrenceID = log.ID
	s.overlay.Put(next)

	if err := converters.ApplyMedicationItem(rec, next, now); err != nil {
		s.rollback(tracker, undo, next.ID)
		return DoseOutcome{}, err
	}
	if err := s.meds.RecordDose(ctx, rec, log); err != nil {
		s.rollback(tracker, undo, next.ID)
		return DoseOutcome{}, fmt.Errorf("record dose: %w", err)
	}
	tracker.Publish(undo.Event())

	stored, err := converters.MedicationItem(*rec, now)
	if err != nil {
		s.overlay.Discard(next.ID)
		return DoseOutcome{}, err
	}
	stored = s.overlay.Reconcile(stored)

	s.logger.Info().
		Str("account_id", accountID).
		Str("medication_id", rec.ID).
		Str("hora", hora).
		Str("action", string(action)).
		Msg("dose updated")
	return DoseOutcome{Medication: converters.NewMedicationView(*rec, stored), Undo: &undo}, nil
}

// rollback forgets an optimistic transition whose write failed. The
// account's earlier undo, if still live, becomes available again.
func (s *TrackingService) rollback(tracker *occurrence.Tracker, undo occurrence.UndoAction, itemID string) {
	tracker.Rollback(undo)
	s.overlay.Discard(itemID)
}

// CompleteAppointment marks appointment id as done.
func (s *TrackingService) CompleteAppointment(ctx context.Context, accountID, patientID, id string) (AppointmentOutcome, error) {
	return s.appointmentTransition(ctx, accountID, patientID, id, occurrence.ActionComplete)
}

// CancelAppointment marks appointment id as cancelled.
func (s *TrackingService) CancelAppointment(ctx context.Context, accountID, patientID, id string) (AppointmentOutcome, error) {
	return s.appointmentTransition(ctx, accountID, patientID, id, occurrence.ActionRemove)
}

func (s *TrackingService) appointmentTransition(ctx context.Context, accountID, patientID, id string, action occurrence.Action) (AppointmentOutcome, error) {
	rec, err := s.appts.Get(ctx, patientID, id)
	if err != nil {
		return AppointmentOutcome{}, err
	}
	now := s.Now()
	it, err := converters.AppointmentItem(*rec, now)
	if err != nil {
		return AppointmentOutcome{}, err
	}

	tracker := s.registry.For(accountID)
	hora := it.Occurrences[0].Hora
	var next occurrence.Item
	var undo occurrence.UndoAction
	if action == occurrence.ActionComplete {
		next, undo, err = tracker.Complete(it, hora)
	} else {
		next, undo, err = tracker.Remove(it, hora)
	}
	if err != nil {
		return AppointmentOutcome{}, err
	}
	s.overlay.Put(next)

	if err := converters.ApplyAppointmentItem(rec, next, now); err != nil {
		s.rollback(tracker, undo, next.ID)
		return AppointmentOutcome{}, err
	}
	if err := s.appts.Save(ctx, rec); err != nil {
		s.rollback(tracker, undo, next.ID)
		return AppointmentOutcome{}, fmt.Errorf("save appointment: %w", err)
	}
	s.overlay.Discard(next.ID)
	tracker.Publish(undo.Event())

	view, err := converters.Appointment(*rec, now)
	if err != nil {
		return AppointmentOutcome{}, err
	}
	return AppointmentOutcome{Appointment: view, Undo: &undo}, nil
}

// PendingUndo returns the live undo action of accountID.
func (s *TrackingService) PendingUndo(accountID string) (occurrence.UndoAction, bool) {
	return s.registry.For(accountID).Pending()
}

// Undo reverses the live action of accountID. Once the window has passed it
// fails with occurrence.ErrNoPendingUndo and changes nothing. Only the dose
// or appointment the action touched is reverted; when it changed since, the
// undo fails with occurrence.ErrUndoMismatch.
func (s *TrackingService) Undo(ctx context.Context, accountID string) (UndoOutcome, error) {
	tracker := s.registry.For(accountID)
	action, ok := tracker.Pending()
	if !ok {
		return UndoOutcome{}, occurrence.ErrNoPendingUndo
	}
	now := s.Now()

	switch action.ItemType {
	case events.ItemMedication:
		rec, err := s.meds.Get(ctx, action.PatientID, action.ItemID)
		if err != nil {
			return UndoOutcome{}, err
		}
		current, err := converters.MedicationItem(*rec, now)
		if err != nil {
			return UndoOutcome{}, err
		}
		var logID string
		if idx := current.Find(action.Hora); idx >= 0 {
			logID = current.Occurrences[idx].OccurrenceID
		}
		restored, undone, err := tracker.Undo(current)
		if err != nil {
			return UndoOutcome{}, err
		}
		if err := converters.ApplyMedicationItem(rec, restored, now); err != nil {
			return UndoOutcome{}, err
		}
		if err := s.meds.RevertDose(ctx, rec, logID); err != nil {
			return UndoOutcome{}, fmt.Errorf("revert dose: %w", err)
		}
		view := converters.NewMedicationView(*rec, restored)
		return UndoOutcome{Action: undone, Medication: &view}, nil

	case events.ItemAppointment:
		rec, err := s.appts.Get(ctx, action.PatientID, action.ItemID)
		if err != nil {
			return UndoOutcome{}, err
		}
		current, err := converters.AppointmentItem(*rec, now)
		if err != nil {
			return UndoOutcome{}, err
		}
		restored, undone, err := tracker.Undo(current)
		if err != nil {
			return UndoOutcome{}, err
		}
		if err := converters.ApplyAppointmentItem(rec, restored, now); err != nil {
			return UndoOutcome{}, err
		}
		if err := s.appts.Save(ctx, rec); err != nil {
			return UndoOutcome{}, fmt.Errorf("save appointment: %w", err)
		}
		view := converters.NewAppointmentView(*rec, restored)
		return UndoOutcome{Action: undone, Appointment: &view}, nil
	}
	return UndoOutcome{}, fmt.Errorf("unknown item type %q", action.ItemType)
}

// RestoreMedication brings a medication removed from today back into the
// list. It has no time limit.
func (s *TrackingService) RestoreMedication(ctx context.Context, accountID, patientID, id string) (converters.MedicationView, error) {
	rec, err := s.meds.Get(ctx, patientID, id)
	if err != nil {
		return converters.MedicationView{}, err
	}
	now := s.Now()
	it, err := converters.MedicationItem(*rec, now)
	if err != nil {
		return converters.MedicationView{}, err
	}
	tracker := s.registry.For(accountID)
	next, ev, ok := tracker.Restore(it)
	if !ok {
		return converters.MedicationView{}, ErrNotRemoved
	}
	if err := converters.ApplyMedicationItem(rec, next, now); err != nil {
		return converters.MedicationView{}, err
	}
	if err := s.meds.Save(ctx, rec); err != nil {
		return converters.MedicationView{}, err
	}
	tracker.Publish(ev)
	return converters.NewMedicationView(*rec, next), nil
}

// RestoreAppointment brings an appointment removed from today back into the
// list.
func (s *TrackingService) RestoreAppointment(ctx context.Context, accountID, patientID, id string) (converters.AppointmentView, error) {
	rec, err := s.appts.Get(ctx, patientID, id)
	if err != nil {
		return converters.AppointmentView{}, err
	}
	now := s.Now()
	it, err := converters.AppointmentItem(*rec, now)
	if err != nil {
		return converters.AppointmentView{}, err
	}
	tracker := s.registry.For(accountID)
	next, ev, ok := tracker.Restore(it)
	if !ok {
		return converters.AppointmentView{}, ErrNotRemoved
	}
	if err := converters.ApplyAppointmentItem(rec, next, now); err != nil {
		return converters.AppointmentView{}, err
	}
	if err := s.appts.Save(ctx, rec); err != nil {
		return converters.AppointmentView{}, err
	}
	tracker.Publish(ev)
	return converters.NewAppointmentView(*rec, next), nil
}

// DoseGesture replays a pointer trace recorded on the card of one dose and
// applies the intent it produces. A tap resolves to the edit intent after
// the tap debounce.
func (s *TrackingService) DoseGesture(ctx context.Context, accountID, patientID, id, hora string, points []gesture.Point) (GestureOutcome, error) {
	return s.replay(ctx, points, func(action occurrence.Action) (GestureOutcome, error) {
		out, err := s.doseTransition(ctx, accountID, patientID, id, hora, action)
		return GestureOutcome{Medication: &out}, err
	})
}

// AppointmentGesture is DoseGesture for an appointment card.
func (s *TrackingService) AppointmentGesture(ctx context.Context, accountID, patientID, id string, points []gesture.Point) (GestureOutcome, error) {
	return s.replay(ctx, points, func(action occurrence.Action) (GestureOutcome, error) {
		out, err := s.appointmentTransition(ctx, accountID, patientID, id, action)
		return GestureOutcome{Appointment: &out}, err
	})
}

func (s *TrackingService) replay(ctx context.Context, points []gesture.Point, apply func(occurrence.Action) (GestureOutcome, error)) (GestureOutcome, error) {
	res := gesture.Interpret(s.gestures, points)

	var out GestureOutcome
	var err error
	edited := make(chan struct{})
	d := gesture.NewDispatcher(s.gestures.TapDebounce, gesture.Callbacks{
		OnComplete: func() { out, err = apply(occurrence.ActionComplete) },
		OnRemove:   func() { out, err = apply(occurrence.ActionRemove) },
		OnEdit:     func() { close(edited) },
	})
	d.Dispatch(res)

	if res.Intent == gesture.IntentEdit {
		select {
		case <-edited:
		case <-ctx.Done():
			d.Stop()
			return GestureOutcome{}, ctx.Err()
		}
	}
	if err != nil {
		return GestureOutcome{}, err
	}
	out.Intent = res.Intent
	out.Phase = res.Phase
	out.DeltaX = res.DeltaX
	return out, nil
}
