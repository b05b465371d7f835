package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowstated/internal/models"
)

// EventFilter narrows ListEvents results. Zero-value fields are ignored.
type EventFilter struct {
	Start    *time.Time
	End      *time.Time
	Category string
}

// CreateEvent inserts an event after verifying it does not overlap any of
// the owner's existing events. The check and the insert share a
// transaction so concurrent creates cannot slip past each other.
func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conflicting, err := hasOverlap(tx, event.UserID, event.StartTime, event.EndTime, nil)
		if err != nil {
			return translate(err)
		}
		if conflicting {
			return ErrConflict
		}
		return translate(tx.Create(event).Error)
	})
}

// EventByID fetches an event owned by userID. Rows owned by other users
// surface as ErrNotFound.
func (s *Store) EventByID(ctx context.Context, userID, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).First(&event, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

// ListEvents returns the user's events, newest range filters applied,
// ordered by start time.
func (s *Store) ListEvents(ctx context.Context, userID uuid.UUID, filter EventFilter) ([]models.Event, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.Start != nil {
		q = q.Where("end_time > ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("start_time < ?", *filter.End)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	var events []models.Event
	if err := q.Order("start_time asc").Find(&events).Error; err != nil {
		return nil, translate(err)
	}
	return events, nil
}

// UpdateEvent persists a modified event, re-checking overlap against all
// other events of the same owner.
func (s *Store) UpdateEvent(ctx context.Context, event *models.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conflicting, err := hasOverlap(tx, event.UserID, event.StartTime, event.EndTime, &event.ID)
		if err != nil {
			return translate(err)
		}
		if conflicting {
			return ErrConflict
		}

		res := tx.Model(&models.Event{}).
			Where("id = ? AND user_id = ?", event.ID, event.UserID).
			Updates(map[string]any{
				"title":        event.Title,
				"description":  event.Description,
				"start_time":   event.StartTime,
				"end_time":     event.EndTime,
				"category":     event.Category,
				"is_all_day":   event.IsAllDay,
				"is_recurring": event.IsRecurring,
				"metadata":     event.Metadata,
			})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteEvent removes an event owned by userID. Attached reminder rows
// keep existing with a nulled event reference (FK ON DELETE SET NULL).
func (s *Store) DeleteEvent(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Event{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// hasOverlap reports whether [start, end) intersects any event of userID,
// optionally excluding one event id (for updates).
func hasOverlap(tx *gorm.DB, userID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (bool, error) {
	q := tx.Model(&models.Event{}).
		Where("user_id = ? AND start_time < ? AND end_time > ?", userID, end, start)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
