package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"medtrack-server/internal/adherence"
	"medtrack-server/internal/repository"
)

// ReportService builds adherence reports and today's dashboard.
type ReportService struct {
	meds     repository.Medications
	appts    repository.Appointments
	tracking *TrackingService
	logger   zerolog.Logger
}

func NewReportService(meds repository.Medications, appts repository.Appointments, tracking *TrackingService, logger zerolog.Logger) *ReportService {
	return &ReportService{
		meds:     meds,
		appts:    appts,
		tracking: tracking,
		logger:   logger.With().Str("component", "reports").Logger(),
	}
}

// Adherence reports completed over planned occurrences of patientID between
// from and to, both YYYY-MM-DD and optional.
func (s *ReportService) Adherence(ctx context.Context, patientID, from, to string) (adherence.Report, error) {
	now := s.tracking.Now()
	period, err := adherence.ParsePeriod(from, to, now)
	if err != nil {
		return adherence.Report{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	meds, err := s.meds.ListByPatient(ctx, patientID)
	if err != nil {
		return adherence.Report{}, err
	}
	logs, err := s.meds.DoseLogs(ctx, patientID, period.From, period.To)
	if err != nil {
		return adherence.Report{}, err
	}
	appts, err := s.appts.ListByPatient(ctx, patientID)
	if err != nil {
		return adherence.Report{}, err
	}
	return adherence.Compute(meds, logs, appts, period, now, s.logger), nil
}

// Dashboard counts today's doses and appointments of patientID.
func (s *ReportService) Dashboard(ctx context.Context, patientID string) (adherence.Dashboard, error) {
	meds, err := s.tracking.MedicationViews(ctx, patientID)
	if err != nil {
		return adherence.Dashboard{}, err
	}
	appts, err := s.tracking.AppointmentViews(ctx, patientID)
	if err != nil {
		return adherence.Dashboard{}, err
	}
	return adherence.Today(meds, appts, s.tracking.Now()), nil
}
