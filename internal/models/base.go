package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = NewID()
	}
	return nil
}

// NewID returns a new random UUID string.
func NewID() string {
	return uuid.New().String()
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN      string
	LogLevel logger.LogLevel
}

// InitDB opens the MySQL connection and migrates every table.
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	level := config.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	db, err := gorm.Open(mysql.Open(config.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&UserProfile{},
		&Medication{},
		&DoseLog{},
		&Appointment{},
		&Invitation{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// DayLayout is the layout of day keys used across the API.
const DayLayout = "2006-01-02"

// Day truncates t to a calendar date in t's location.
func Day(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
}

// DayKey formats a date column as YYYY-MM-DD. A nil date yields "".
func DayKey(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format(DayLayout)
}

// SameDay reports whether d is the calendar day of t.
func SameDay(d *datatypes.Date, t time.Time) bool {
	return d != nil && DayKey(d) == t.Format(DayLayout)
}
