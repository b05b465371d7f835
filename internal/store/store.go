package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"flowstated/internal/models"
)

// Store is the gorm-backed persistence layer for all flowstate entities.
type Store struct {
	db *gorm.DB
}

// New wraps an open GORM handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the postgres error code for unique_violation.
const uniqueViolation = "23505"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// CreateUser inserts a new user with a pre-hashed password.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// UserByID fetches a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserByEmail fetches a user by email, case-insensitively.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "lower(email) = lower(?)", email).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserByUsernameOrEmail fetches a user matching identifier against either
// the username or the email column. Used by login.
func (s *Store) UserByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		First(&user, "username = ? OR lower(email) = lower(?)", identifier, identifier).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpdateUserProfile updates username and/or email for a user.
func (s *Store) UpdateUserProfile(ctx context.Context, id uuid.UUID, username, email *string) (*models.User, error) {
	updates := map[string]any{}
	if username != nil {
		updates["username"] = *username
	}
	if email != nil {
		updates["email"] = *email
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.UserByID(ctx, id)
}

// SetResetToken stores a reset token and its expiry on the user row,
// replacing any previous one.
func (s *Store) SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"password_reset_token":      token,
			"password_reset_expires_at": expiresAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken performs the compare-and-clear consume: one
// conditional UPDATE replaces the password hash and nulls both reset
// columns only when the token matches and has not expired. The database
// serializes concurrent calls, so at most one reports true.
func (s *Store) ConsumeResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("password_reset_token = ? AND password_reset_expires_at > ?", token, now).
		Updates(map[string]any{
			"password_hash":             newPasswordHash,
			"password_reset_token":      nil,
			"password_reset_expires_at": nil,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}
