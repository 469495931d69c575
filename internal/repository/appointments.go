package repository

import (
	"context"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// Appointments is what the services need from appointment storage.
type Appointments interface {
	ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error)
	Get(ctx context.Context, patientID, id string) (*models.Appointment, error)
	Create(ctx context.Context, a *models.Appointment) error
	Save(ctx context.Context, a *models.Appointment) error
	Delete(ctx context.Context, patientID, id string) error
}

// AppointmentRepository stores consultations, exams and activities.
type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// ListByPatient returns every appointment of patientID, earliest first.
func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("scheduled_at asc").
		Find(&appts).Error
	return appts, translate(err)
}

func (r *AppointmentRepository) Get(ctx context.Context, patientID, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ? AND patient_id = ?", id, patientID).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AppointmentRepository) Create(ctx context.Context, a *models.Appointment) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AppointmentRepository) Save(ctx context.Context, a *models.Appointment) error {
	return translate(r.db.WithContext(ctx).Save(a).Error)
}

func (r *AppointmentRepository) Delete(ctx context.Context, patientID, id string) error {
	return requireRows(r.db.WithContext(ctx).Where("id = ? AND patient_id = ?", id, patientID).Delete(&models.Appointment{}))
}
