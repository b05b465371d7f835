package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"flowstated/internal/models"
)

// NormalizeCategory canonicalizes an event category for preference lookup.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// CreateReminder inserts a reminder setting.
func (s *Store) CreateReminder(ctx context.Context, reminder *models.ReminderSetting) error {
	return translate(s.db.WithContext(ctx).Create(reminder).Error)
}

// ReminderByID fetches a reminder owned by userID.
func (s *Store) ReminderByID(ctx context.Context, userID, id uuid.UUID) (*models.ReminderSetting, error) {
	var reminder models.ReminderSetting
	err := s.db.WithContext(ctx).First(&reminder, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reminder, nil
}

// ListReminders returns all of the user's reminders, soonest first.
func (s *Store) ListReminders(ctx context.Context, userID uuid.UUID) ([]models.ReminderSetting, error) {
	var reminders []models.ReminderSetting
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reminder_time asc").
		Find(&reminders).Error
	if err != nil {
		return nil, translate(err)
	}
	return reminders, nil
}

// UpdateReminder persists modified scheduling fields.
func (s *Store) UpdateReminder(ctx context.Context, reminder *models.ReminderSetting) error {
	res := s.db.WithContext(ctx).Model(&models.ReminderSetting{}).
		Where("id = ? AND user_id = ?", reminder.ID, reminder.UserID).
		Updates(map[string]any{
			"reminder_time":     reminder.ReminderTime,
			"lead_time_minutes": reminder.LeadTimeMinutes,
			"reminder_type":     reminder.ReminderType,
			"is_active":         reminder.IsActive,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReminder cancels a reminder by removing its row.
func (s *Store) DeleteReminder(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.ReminderSetting{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DueReminders lists active reminders whose time has arrived.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]models.ReminderSetting, error) {
	var due []models.ReminderSetting
	err := s.db.WithContext(ctx).
		Where("is_active AND reminder_time <= ?", now).
		Order("reminder_time asc").
		Find(&due).Error
	if err != nil {
		return nil, translate(err)
	}
	return due, nil
}

// MarkReminderDelivered deactivates a reminder after delivery so the next
// poll does not pick it up again.
func (s *Store) MarkReminderDelivered(ctx context.Context, id uuid.UUID) error {
	return translate(s.db.WithContext(ctx).Model(&models.ReminderSetting{}).
		Where("id = ?", id).
		Update("is_active", false).Error)
}

// PreferenceFor returns the user's custom preparation-time preference for
// a category, or ErrNotFound when only the configured default applies.
func (s *Store) PreferenceFor(ctx context.Context, userID uuid.UUID, category string) (*models.ReminderPreference, error) {
	var pref models.ReminderPreference
	err := s.db.WithContext(ctx).
		First(&pref, "user_id = ? AND event_category = ?", userID, NormalizeCategory(category)).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pref, nil
}

// ListPreferences returns all of the user's preparation-time preferences.
func (s *Store) ListPreferences(ctx context.Context, userID uuid.UUID) ([]models.ReminderPreference, error) {
	var prefs []models.ReminderPreference
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("event_category asc").
		Find(&prefs).Error
	if err != nil {
		return nil, translate(err)
	}
	return prefs, nil
}

// UpsertPreference creates or replaces the preference for (user, category).
func (s *Store) UpsertPreference(ctx context.Context, userID uuid.UUID, category string, minutes int, isCustom bool) (*models.ReminderPreference, error) {
	pref := models.ReminderPreference{
		UserID:                 userID,
		EventCategory:          NormalizeCategory(category),
		PreparationTimeMinutes: minutes,
		IsCustom:               isCustom,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "event_category"}},
			DoUpdates: clause.AssignmentColumns([]string{"preparation_time_minutes", "is_custom", "updated_at"}),
		}).
		Create(&pref).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pref, nil
}
