package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePatient   Role = "patient"
	RoleCompanion Role = "companion"
	RoleCaregiver Role = "caregiver"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePatient, RoleCompanion, RoleCaregiver:
		return true
	}
	return false
}

// User is a login account. The patient data it sees is chosen by
// ContextPatientID, the "current context".
type User struct {
	BaseModel
	Email            string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password         string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Name             string `gorm:"size:150" json:"name"`
	Phone            string `gorm:"size:20" json:"phone,omitempty"`
	Role             Role   `gorm:"size:20;default:'patient'" json:"role"`
	ContextPatientID string `gorm:"size:36;index" json:"contextPatientId,omitempty"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	Profiles      []UserProfile  `gorm:"foreignKey:AccountID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Role             Role      `json:"role"`
	ContextPatientID string    `json:"contextPatientId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Phone:            u.Phone,
		Role:             u.Role,
		ContextPatientID: u.ContextPatientID,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
