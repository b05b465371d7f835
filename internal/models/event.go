package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event is a scheduled calendar entry owned by a single user.
type Event struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	StartTime   time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time      `gorm:"not null;index" json:"end_time"`
	Category    string         `gorm:"type:text" json:"category,omitempty"`
	IsAllDay    bool           `gorm:"not null;default:false" json:"is_all_day"`
	IsRecurring bool           `gorm:"not null;default:false" json:"is_recurring"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
}
