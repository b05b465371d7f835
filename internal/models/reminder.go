package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderSetting schedules a notification ahead of an event. EventID is
// nullable: standalone reminders survive deletion of their event.
type ReminderSetting struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	EventID         *uuid.UUID `gorm:"type:uuid;index" json:"event_id,omitempty"`
	ReminderTime    time.Time  `gorm:"not null;index" json:"reminder_time"`
	LeadTimeMinutes int        `gorm:"not null" json:"lead_time_minutes"`
	ReminderType    string     `gorm:"type:text;not null" json:"reminder_type"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User  User   `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
	Event *Event `gorm:"constraint:OnDelete:SET NULL;foreignKey:EventID;references:ID" json:"-"`
}

// ReminderPreference stores a user's preparation time for an event
// category. Categories are normalized to lowercase before storage.
type ReminderPreference struct {
	ID                     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                 uuid.UUID `gorm:"type:uuid;not null;index:idx_pref_user_category,unique" json:"user_id"`
	EventCategory          string    `gorm:"type:text;not null;index:idx_pref_user_category,unique" json:"event_category"`
	PreparationTimeMinutes int       `gorm:"not null" json:"preparation_time_minutes"`
	IsCustom               bool      `gorm:"not null;default:false" json:"is_custom"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
}
