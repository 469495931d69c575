package repository

import (
	"context"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// Invitations is what the services need from invitation storage.
type Invitations interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	Accept(ctx context.Context, inv *models.Invitation, account *models.User) error
}

// InvitationRepository stores admin invitations.
type InvitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	return translate(r.db.WithContext(ctx).Create(inv).Error)
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).First(&inv, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

// Accept creates account and marks inv accepted in one transaction.
func (r *InvitationRepository) Accept(ctx context.Context, inv *models.Invitation, account *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Save(inv).Error)
	})
}
