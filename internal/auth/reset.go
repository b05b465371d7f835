package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"flowstated/internal/models"
	"flowstated/internal/store"
)

// UserStore is the persistence surface the auth components need. The
// gorm-backed implementation lives in internal/store.
type UserStore interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)

	// SetResetToken stores token and its expiry on the user row.
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error

	// ConsumeResetToken atomically replaces the password hash and clears
	// both reset columns for the user whose unexpired reset token matches.
	// It reports false when no row matched, meaning the token is unknown,
	// expired, or already consumed. Concurrent calls with the same token
	// yield exactly one true.
	ConsumeResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (bool, error)
}

// ResetNotifier dispatches a reset token to the user through an external
// delivery channel.
type ResetNotifier interface {
	SendResetNotification(ctx context.Context, user *models.User, token string) error
}

// LogNotifier writes reset tokens to the log. Development stand-in for a
// mail-backed notifier.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) SendResetNotification(_ context.Context, user *models.User, token string) error {
	n.Logger.Info().
		Str("email", user.Email).
		Str("reset_token", token).
		Msg("password reset requested")
	return nil
}

// ResetFlow issues single-use, time-limited password reset tokens and
// consumes them exactly once.
type ResetFlow struct {
	store    UserStore
	notifier ResetNotifier
	ttl      time.Duration
	now      func() time.Time
}

// NewResetFlow returns a ResetFlow storing tokens via store with the given
// validity window and dispatching them via notifier.
func NewResetFlow(userStore UserStore, notifier ResetNotifier, ttl time.Duration) *ResetFlow {
	return &ResetFlow{store: userStore, notifier: notifier, ttl: ttl, now: time.Now}
}

// RequestReset generates and stores a reset token for the account behind
// email, then dispatches it. An unknown email is not an error: the caller
// observes the same outcome either way, so the endpoint cannot be used to
// enumerate accounts.
func (f *ResetFlow) RequestReset(ctx context.Context, email string) error {
	user, err := f.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token := uuid.NewString()
	expiresAt := f.now().Add(f.ttl)
	if err := f.store.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return err
	}

	return f.notifier.SendResetNotification(ctx, user, token)
}

// ConfirmReset consumes a reset token and installs the new password. The
// password hash replacement and the clearing of both reset columns happen
// in a single conditional update, so a failed confirm leaves the user row
// untouched and a second confirm with the same token fails.
func (f *ResetFlow) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	ok, err := f.store.ConsumeResetToken(ctx, token, hash, f.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}
