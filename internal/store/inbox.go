package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flowstated/internal/models"
)

// InboxFilter narrows ListInboxItems results. Zero-value fields are ignored.
type InboxFilter struct {
	Category    string
	Status      string
	PriorityMin int
	PriorityMax int
}

// CreateInboxItem inserts a new inbox item.
func (s *Store) CreateInboxItem(ctx context.Context, item *models.InboxItem) error {
	return translate(s.db.WithContext(ctx).Create(item).Error)
}

// InboxItemByID fetches an inbox item owned by userID.
func (s *Store) InboxItemByID(ctx context.Context, userID, id uuid.UUID) (*models.InboxItem, error) {
	var item models.InboxItem
	err := s.db.WithContext(ctx).First(&item, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// ListInboxItems returns the user's inbox items with optional filters,
// highest priority first, newest first within a priority.
func (s *Store) ListInboxItems(ctx context.Context, userID uuid.UUID, filter InboxFilter) ([]models.InboxItem, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.PriorityMin > 0 {
		q = q.Where("priority >= ?", filter.PriorityMin)
	}
	if filter.PriorityMax > 0 {
		q = q.Where("priority <= ?", filter.PriorityMax)
	}

	var items []models.InboxItem
	if err := q.Order("priority asc, created_at desc").Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

// UpdateInboxItem persists modified content/category/priority/status.
func (s *Store) UpdateInboxItem(ctx context.Context, item *models.InboxItem) error {
	res := s.db.WithContext(ctx).Model(&models.InboxItem{}).
		Where("id = ? AND user_id = ?", item.ID, item.UserID).
		Updates(map[string]any{
			"content":  item.Content,
			"category": item.Category,
			"priority": item.Priority,
			"status":   item.Status,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInboxItem removes an inbox item owned by userID.
func (s *Store) DeleteInboxItem(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.InboxItem{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkUpdateInboxStatus sets status on all of the user's items among ids
// and returns how many rows changed. Ids owned by other users are skipped.
func (s *Store) BulkUpdateInboxStatus(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.InboxItem{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Update("status", status)
	return res.RowsAffected, translate(res.Error)
}

// ConvertInboxItem creates event from an inbox item and marks the item
// SCHEDULED in a single transaction: either both writes land or neither.
func (s *Store) ConvertInboxItem(ctx context.Context, userID, itemID uuid.UUID, event *models.Event) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.InboxItem
		if err := tx.First(&item, "id = ? AND user_id = ?", itemID, userID).Error; err != nil {
			return translate(err)
		}

		conflicting, err := hasOverlap(tx, userID, event.StartTime, event.EndTime, nil)
		if err != nil {
			return translate(err)
		}
		if conflicting {
			return ErrConflict
		}

		if err := tx.Create(event).Error; err != nil {
			return translate(err)
		}

		return translate(tx.Model(&item).Update("status", models.InboxStatusScheduled).Error)
	})
}
