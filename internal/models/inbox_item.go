package models

import (
	"time"

	"github.com/google/uuid"
)

// Inbox item categories.
const (
	InboxCategoryTodo = "TODO"
	InboxCategoryIdea = "IDEA"
	InboxCategoryNote = "NOTE"
)

// Inbox item statuses.
const (
	InboxStatusPending   = "PENDING"
	InboxStatusScheduled = "SCHEDULED"
	InboxStatusArchived  = "ARCHIVED"
	InboxStatusDone      = "DONE"
)

// Inbox priority bounds; priorities run P1 (highest) through P5.
const (
	InboxPriorityMin = 1
	InboxPriorityMax = 5
)

// ValidInboxCategory reports whether c is a known inbox category.
func ValidInboxCategory(c string) bool {
	switch c {
	case InboxCategoryTodo, InboxCategoryIdea, InboxCategoryNote:
		return true
	}
	return false
}

// ValidInboxStatus reports whether s is a known inbox status.
func ValidInboxStatus(s string) bool {
	switch s {
	case InboxStatusPending, InboxStatusScheduled, InboxStatusArchived, InboxStatusDone:
		return true
	}
	return false
}

// InboxItem is a captured note, idea, or task awaiting triage.
type InboxItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Category  string    `gorm:"type:text;not null" json:"category"`
	Priority  int       `gorm:"not null" json:"priority"`
	Status    string    `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
}
