package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowstated/internal/models"
	"flowstated/internal/store"
)

// memUserStore is an in-memory UserStore with the same compare-and-clear
// semantics as the gorm implementation.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*models.User)}
}

func (m *memUserStore) add(username, email, passwordHash string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	m.users[u.ID] = u
	return u
}

func (m *memUserStore) get(id uuid.UUID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memUserStore) remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *memUserStore) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
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

func (m *memUserStore) SetResetToken(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
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

func (m *memUserStore) ConsumeResetToken(_ context.Context, token, newPasswordHash string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != token {
			continue
		}
		if u.PasswordResetExpiresAt == nil || !u.PasswordResetExpiresAt.After(now) {
			return false, nil
		}
		u.PasswordHash = newPasswordHash
		u.PasswordResetToken = nil
		u.PasswordResetExpiresAt = nil
		return true, nil
	}
	return false, nil
}

// nopNotifier discards reset notifications, recording the last token.
type nopNotifier struct {
	mu        sync.Mutex
	lastToken string
	sent      int
}

func (n *nopNotifier) SendResetNotification(_ context.Context, _ *models.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastToken = token
	n.sent++
	return nil
}

func (n *nopNotifier) token() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastToken
}
