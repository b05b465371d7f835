package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account. The password reset columns are
// populated by a reset request and cleared atomically when the token is
// consumed; a non-nil token always carries a non-nil expiry.
type User struct {
	ID                     uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username               string     `gorm:"type:text;uniqueIndex;not null" json:"username"`
	Email                  string     `gorm:"type:text;uniqueIndex;not null" json:"email"`
	PasswordHash           string     `gorm:"type:text;not null" json:"-"`
	PasswordResetToken     *string    `gorm:"type:text;uniqueIndex" json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Events              []Event              `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	InboxItems          []InboxItem          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ReminderSettings    []ReminderSetting    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ReminderPreferences []ReminderPreference `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
