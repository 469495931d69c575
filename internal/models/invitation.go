package models

import "time"

// Invitation lets an admin bring another admin on board by token.
type Invitation struct {
	BaseModel
	Token      string     `gorm:"size:36;uniqueIndex;not null" json:"token"`
	Email      string     `gorm:"size:255;not null" json:"email"`
	Role       Role       `gorm:"size:20;not null" json:"role"`
	InvitedBy  string     `gorm:"size:36" json:"invitedBy"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// Usable reports whether the invitation can still be accepted at now.
func (i *Invitation) Usable(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
