package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowstated/internal/models"
	"flowstated/internal/store"
)

// memStore backs handler tests without Postgres. It mirrors the SQL
// store's semantics: ownership scoping, overlap rejection, duplicate
// detection, and compare-and-clear reset token consumption. It also
// satisfies auth.UserStore so the same instance can serve the
// authenticator and the reset flow.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	events    map[uuid.UUID]*models.Event
	inbox     map[uuid.UUID]*models.InboxItem
	reminders map[uuid.UUID]*models.ReminderSetting
	prefs     map[uuid.UUID]map[string]*models.ReminderPreference
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]*models.User{},
		events:    map[uuid.UUID]*models.Event{},
		inbox:     map[uuid.UUID]*models.InboxItem{},
		reminders: map[uuid.UUID]*models.ReminderSetting{},
		prefs:     map[uuid.UUID]map[string]*models.ReminderPreference{},
	}
}

func (m *memStore) CreateUser(_ context.Context, username, email, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return nil, store.ErrDuplicate
		}
	}
	u := &models.User{ID: uuid.New(), Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memStore) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UserByUsernameOrEmail(_ context.Context, identifier string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == identifier || strings.EqualFold(u.Email, identifier) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UpdateUserProfile(_ context.Context, id uuid.UUID, username, email *string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID == id {
			continue
		}
		if username != nil && other.Username == *username {
			return nil, store.ErrDuplicate
		}
		if email != nil && strings.EqualFold(other.Email, *email) {
			return nil, store.ErrDuplicate
		}
	}
	if username != nil {
		u.Username = *username
	}
	if email != nil {
		u.Email = *email
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) SetResetToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (m *memStore) ConsumeResetToken(_ context.Context, token, newPasswordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpiresAt != nil && u.PasswordResetExpiresAt.After(now) {
			u.PasswordHash = newPasswordHash
			u.PasswordResetToken = nil
			u.PasswordResetExpiresAt = nil
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) overlaps(userID uuid.UUID, start, end time.Time, exclude *uuid.UUID) bool {
	for _, ev := range m.events {
		if ev.UserID != userID {
			continue
		}
		if exclude != nil && ev.ID == *exclude {
			continue
		}
		if ev.StartTime.Before(end) && ev.EndTime.After(start) {
			return true
		}
	}
	return false
}

func (m *memStore) CreateEvent(_ context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlaps(event.UserID, event.StartTime, event.EndTime, nil) {
		return store.ErrConflict
	}
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m *memStore) EventByID(_ context.Context, userID, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev, ok := m.events[id]; ok && ev.UserID == userID {
		cp := *ev
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListEvents(_ context.Context, userID uuid.UUID, filter store.EventFilter) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, ev := range m.events {
		if ev.UserID != userID {
			continue
		}
		if filter.Start != nil && ev.EndTime.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && ev.StartTime.After(*filter.End) {
			continue
		}
		if filter.Category != "" && ev.Category != filter.Category {
			continue
		}
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memStore) UpdateEvent(_ context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[event.ID]
	if !ok || existing.UserID != event.UserID {
		return store.ErrNotFound
	}
	if m.overlaps(event.UserID, event.StartTime, event.EndTime, &event.ID) {
		return store.ErrConflict
	}
	event.UpdatedAt = time.Now()
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m *memStore) DeleteEvent(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.events, id)
	for _, rem := range m.reminders {
		if rem.EventID != nil && *rem.EventID == id {
			rem.EventID = nil
		}
	}
	return nil
}

func (m *memStore) CreateInboxItem(_ context.Context, item *models.InboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	cp := *item
	m.inbox[item.ID] = &cp
	return nil
}

func (m *memStore) InboxItemByID(_ context.Context, userID, id uuid.UUID) (*models.InboxItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.inbox[id]; ok && item.UserID == userID {
		cp := *item
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListInboxItems(_ context.Context, userID uuid.UUID, filter store.InboxFilter) ([]models.InboxItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InboxItem
	for _, item := range m.inbox {
		if item.UserID != userID {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.PriorityMin > 0 && item.Priority < filter.PriorityMin {
			continue
		}
		if filter.PriorityMax > 0 && item.Priority > filter.PriorityMax {
			continue
		}
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (m *memStore) UpdateInboxItem(_ context.Context, item *models.InboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.inbox[item.ID]
	if !ok || existing.UserID != item.UserID {
		return store.ErrNotFound
	}
	item.UpdatedAt = time.Now()
	cp := *item
	m.inbox[item.ID] = &cp
	return nil
}

func (m *memStore) DeleteInboxItem(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.inbox[id]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.inbox, id)
	return nil
}

func (m *memStore) BulkUpdateInboxStatus(_ context.Context, userID uuid.UUID, ids []uuid.UUID, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, id := range ids {
		if item, ok := m.inbox[id]; ok && item.UserID == userID {
			item.Status = status
			item.UpdatedAt = time.Now()
			updated++
		}
	}
	return updated, nil
}

func (m *memStore) ConvertInboxItem(_ context.Context, userID, itemID uuid.UUID, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.inbox[itemID]
	if !ok || item.UserID != userID {
		return store.ErrNotFound
	}
	if m.overlaps(userID, event.StartTime, event.EndTime, nil) {
		return store.ErrConflict
	}
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	cp := *event
	m.events[event.ID] = &cp
	item.Status = models.InboxStatusScheduled
	item.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) CreateReminder(_ context.Context, reminder *models.ReminderSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reminder.ID = uuid.New()
	reminder.CreatedAt = time.Now()
	reminder.UpdatedAt = reminder.CreatedAt
	cp := *reminder
	m.reminders[reminder.ID] = &cp
	return nil
}

func (m *memStore) ReminderByID(_ context.Context, userID, id uuid.UUID) (*models.ReminderSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rem, ok := m.reminders[id]; ok && rem.UserID == userID {
		cp := *rem
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListReminders(_ context.Context, userID uuid.UUID) ([]models.ReminderSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReminderSetting
	for _, rem := range m.reminders {
		if rem.UserID == userID {
			out = append(out, *rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderTime.Before(out[j].ReminderTime) })
	return out, nil
}

func (m *memStore) UpdateReminder(_ context.Context, reminder *models.ReminderSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.reminders[reminder.ID]
	if !ok || existing.UserID != reminder.UserID {
		return store.ErrNotFound
	}
	reminder.UpdatedAt = time.Now()
	cp := *reminder
	m.reminders[reminder.ID] = &cp
	return nil
}

func (m *memStore) DeleteReminder(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rem, ok := m.reminders[id]
	if !ok || rem.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.reminders, id)
	return nil
}

func (m *memStore) PreferenceFor(_ context.Context, userID uuid.UUID, category string) (*models.ReminderPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pref, ok := m.prefs[userID][store.NormalizeCategory(category)]; ok {
		cp := *pref
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) ListPreferences(_ context.Context, userID uuid.UUID) ([]models.ReminderPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReminderPreference
	for _, pref := range m.prefs[userID] {
		out = append(out, *pref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventCategory < out[j].EventCategory })
	return out, nil
}

func (m *memStore) UpsertPreference(_ context.Context, userID uuid.UUID, category string, minutes int, isCustom bool) (*models.ReminderPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalized := store.NormalizeCategory(category)
	if m.prefs[userID] == nil {
		m.prefs[userID] = map[string]*models.ReminderPreference{}
	}
	pref, ok := m.prefs[userID][normalized]
	if !ok {
		pref = &models.ReminderPreference{ID: uuid.New(), UserID: userID, EventCategory: normalized, CreatedAt: time.Now()}
		m.prefs[userID][normalized] = pref
	}
	pref.PreparationTimeMinutes = minutes
	pref.IsCustom = isCustom
	pref.UpdatedAt = time.Now()
	cp := *pref
	return &cp, nil
}
