package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// Medications is what the services need from medication storage.
type Medications interface {
	ListByPatient(ctx context.Context, patientID string) ([]models.Medication, error)
	Get(ctx context.Context, patientID, id string) (*models.Medication, error)
	Create(ctx context.Context, m *models.Medication) error
	Save(ctx context.Context, m *models.Medication) error
	Delete(ctx context.Context, patientID, id string) error

	// RecordDose saves m and creates log in one transaction.
	RecordDose(ctx context.Context, m *models.Medication, log *models.DoseLog) error
	// RevertDose saves m and deletes the dose log logID in one transaction.
	RevertDose(ctx context.Context, m *models.Medication, logID string) error
	DoseLogs(ctx context.Context, patientID string, from, to time.Time) ([]models.DoseLog, error)
}

// MedicationRepository stores medications and their dose logs.
type MedicationRepository struct {
	db *gorm.DB
}

func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

// ListByPatient returns every medication of patientID ordered by name.
func (r *MedicationRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Medication, error) {
	var meds []models.Medication
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("name asc").
		Find(&meds).Error
	return meds, translate(err)
}

func (r *MedicationRepository) Get(ctx context.Context, patientID, id string) (*models.Medication, error) {
	var m models.Medication
	err := r.db.WithContext(ctx).First(&m, "id = ? AND patient_id = ?", id, patientID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *MedicationRepository) Create(ctx context.Context, m *models.Medication) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *MedicationRepository) Save(ctx context.Context, m *models.Medication) error {
	return translate(r.db.WithContext(ctx).Save(m).Error)
}

// Delete removes the medication and its dose logs.
func (r *MedicationRepository) Delete(ctx context.Context, patientID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND patient_id = ?", id, patientID).Delete(&models.Medication{})
		if err := requireRows(res); err != nil {
			return err
		}
		return translate(tx.Where("medication_id = ?", id).Delete(&models.DoseLog{}).Error)
	})
}

func (r *MedicationRepository) RecordDose(ctx context.Context, m *models.Medication, log *models.DoseLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Save(m).Error)
	})
}

func (r *MedicationRepository) RevertDose(ctx context.Context, m *models.Medication, logID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if logID != "" {
			if err := tx.Delete(&models.DoseLog{}, "id = ?", logID).Error; err != nil {
				return translate(err)
			}
		}
		return translate(tx.Save(m).Error)
	})
}

// DoseLogs returns the logs of patientID between from and to, inclusive
// days.
func (r *MedicationRepository) DoseLogs(ctx context.Context, patientID string, from, to time.Time) ([]models.DoseLog, error) {
	var logs []models.DoseLog
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND day BETWEEN ? AND ?", patientID, models.Day(from), models.Day(to)).
		Order("day asc, hora asc").
		Find(&logs).Error
	return logs, translate(err)
}
