package models

// ProfileStatus is the lifecycle state of a profile.
type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
	ProfilePending  ProfileStatus = "pending"
)

// UserProfile places a person on a patient record: the patient themself, a
// companion, a caregiver or an admin. Code is the 6-character invite code
// others use to link to it. At most one profile per patient is the manager.
type UserProfile struct {
	BaseModel
	PatientID string        `gorm:"size:36;index;not null" json:"patientId"`
	AccountID *string       `gorm:"size:36;index" json:"accountId,omitempty"`
	Name      string        `gorm:"size:150;not null" json:"name"`
	Email     string        `gorm:"size:255" json:"email,omitempty"`
	Phone     string        `gorm:"size:20" json:"phone,omitempty"`
	Code      string        `gorm:"size:6;uniqueIndex;not null" json:"code"`
	Role      Role          `gorm:"size:20;not null" json:"role"`
	Status    ProfileStatus `gorm:"size:20;not null" json:"status"`
	IsManager bool          `gorm:"not null" json:"isManager"`
}
