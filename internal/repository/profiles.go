package repository

import (
	"context"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// Profiles is what the services need from profile storage.
type Profiles interface {
	ListByPatient(ctx context.Context, patientID string) ([]models.UserProfile, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.UserProfile, error)
	Get(ctx context.Context, id string) (*models.UserProfile, error)
	GetByCode(ctx context.Context, code string) (*models.UserProfile, error)
	Codes(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *models.UserProfile) error
	Save(ctx context.Context, p *models.UserProfile) error
	Delete(ctx context.Context, id string) error
	SetManager(ctx context.Context, patientID, profileID string) error
	HasAccess(ctx context.Context, accountID, patientID string) (bool, error)
}

// ProfileRepository stores the profiles linking people to patient records.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) ListByPatient(ctx context.Context, patientID string) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("is_manager desc, name asc").
		Find(&profiles).Error
	return profiles, translate(err)
}

func (r *ProfileRepository) ListByAccount(ctx context.Context, accountID string) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("name asc").
		Find(&profiles).Error
	return profiles, translate(err)
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProfileRepository) GetByCode(ctx context.Context, code string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Codes returns every profile code in use.
func (r *ProfileRepository) Codes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Model(&models.UserProfile{}).Pluck("code", &codes).Error
	return codes, translate(err)
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.UserProfile) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *ProfileRepository) Save(ctx context.Context, p *models.UserProfile) error {
	return translate(r.db.WithContext(ctx).Save(p).Error)
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	return requireRows(r.db.WithContext(ctx).Delete(&models.UserProfile{}, "id = ?", id))
}

// SetManager makes profileID the only manager of patientID.
func (r *ProfileRepository) SetManager(ctx context.Context, patientID, profileID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.UserProfile{}).
			Where("patient_id = ? AND is_manager = ?", patientID, true).
			Update("is_manager", false).Error
		if err != nil {
			return translate(err)
		}
		return requireRows(tx.Model(&models.UserProfile{}).
			Where("id = ? AND patient_id = ?", profileID, patientID).
			Update("is_manager", true))
	})
}

// HasAccess reports whether accountID holds an active profile on patientID.
func (r *ProfileRepository) HasAccess(ctx context.Context, accountID, patientID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("account_id = ? AND patient_id = ? AND status = ?", accountID, patientID, models.ProfileActive).
		Count(&count).Error
	return count > 0, translate(err)
}
