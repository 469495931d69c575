package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"medtrack-server/internal/models"
)

// Users is what the services need from account storage.
type Users interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
}

// UserRepository stores accounts and their refresh tokens.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepository) Save(ctx context.Context, u *models.User) error {
	return translate(r.db.WithContext(ctx).Save(u).Error)
}

// StoreRefreshToken records a newly issued refresh token.
func (r *UserRepository) StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	rt := models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return translate(r.db.WithContext(ctx).Create(&rt).Error)
}

// RotateRefreshToken revokes token and stores next in its place. It fails
// with ErrNotFound when token is unknown, expired or already revoked.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID, token, next string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", token, userID, false, time.Now()).
			Update("is_revoked", true)
		if err := requireRows(res); err != nil {
			return err
		}
		rt := models.RefreshToken{UserID: userID, Token: next, ExpiresAt: expiresAt}
		return translate(tx.Create(&rt).Error)
	})
}

// RevokeRefreshToken revokes token and returns the owning user id. An
// unknown or already revoked token yields ErrNotFound.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, token string) (string, error) {
	var rt models.RefreshToken
	db := r.db.WithContext(ctx)
	if err := db.Where("token = ? AND is_revoked = ?", token, false).First(&rt).Error; err != nil {
		return "", translate(err)
	}
	rt.IsRevoked = true
	rt.ExpiresAt = time.Now()
	if err := db.Save(&rt).Error; err != nil {
		return "", translate(err)
	}
	return rt.UserID, nil
}
