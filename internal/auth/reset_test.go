package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResetFlow(t *testing.T) (*ResetFlow, *memUserStore, *nopNotifier) {
	t.Helper()

	users := newMemUserStore()
	notifier := &nopNotifier{}
	return NewResetFlow(users, notifier, time.Hour), users, notifier
}

func TestRequestResetStoresTokenAndNotifies(t *testing.T) {
	t.Parallel()

	flow, users, notifier := newTestResetFlow(t)
	u := users.add("alice", "alice@x.com", "hash")

	require.NoError(t, flow.RequestReset(context.Background(), "alice@x.com"))

	stored := users.get(u.ID)
	require.NotNil(t, stored.PasswordResetToken)
	require.NotNil(t, stored.PasswordResetExpiresAt)
	assert.Equal(t, *stored.PasswordResetToken, notifier.token())
	assert.True(t, stored.PasswordResetExpiresAt.After(time.Now()), "expiry must be in the future")
}

func TestRequestResetUnknownEmailUniform(t *testing.T) {
	t.Parallel()

	flow, users, notifier := newTestResetFlow(t)
	users.add("alice", "alice@x.com", "hash")

	// Unknown and known emails must be observationally identical to the
	// caller: both return nil.
	require.NoError(t, flow.RequestReset(context.Background(), "nobody@x.com"))
	assert.Zero(t, notifier.sent, "no notification for unknown email")

	require.NoError(t, flow.RequestReset(context.Background(), "alice@x.com"))
	assert.Equal(t, 1, notifier.sent)
}

func TestConfirmResetSingleUse(t *testing.T) {
	t.Parallel()

	flow, users, notifier := newTestResetFlow(t)
	u := users.add("alice", "alice@x.com", "old-hash")

	require.NoError(t, flow.RequestReset(context.Background(), "alice@x.com"))
	token := notifier.token()

	require.NoError(t, flow.ConfirmReset(context.Background(), token, "newpw456"))

	stored := users.get(u.ID)
	assert.Nil(t, stored.PasswordResetToken, "token cleared after consume")
	assert.Nil(t, stored.PasswordResetExpiresAt, "expiry cleared after consume")

	ok, err := VerifyPassword("newpw456", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok, "new password must verify")

	// Second confirm with the same token must fail.
	err = flow.ConfirmReset(context.Background(), token, "another-pw")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestConfirmResetExpiredLeavesPasswordUnchanged(t *testing.T) {
	t.Parallel()

	flow, users, notifier := newTestResetFlow(t)
	u := users.add("alice", "alice@x.com", "old-hash")

	base := time.Now()
	flow.now = func() time.Time { return base }
	require.NoError(t, flow.RequestReset(context.Background(), "alice@x.com"))

	// Jump past the validity window.
	flow.now = func() time.Time { return base.Add(2 * time.Hour) }
	err := flow.ConfirmReset(context.Background(), notifier.token(), "newpw456")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	stored := users.get(u.ID)
	assert.Equal(t, "old-hash", stored.PasswordHash, "failed confirm must not mutate the hash")
}

func TestConfirmResetUnknownToken(t *testing.T) {
	t.Parallel()

	flow, _, _ := newTestResetFlow(t)

	err := flow.ConfirmReset(context.Background(), "no-such-token", "pw")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	err = flow.ConfirmReset(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestConfirmResetConcurrentExactlyOnce(t *testing.T) {
	t.Parallel()

	flow, users, notifier := newTestResetFlow(t)
	users.add("alice", "alice@x.com", "old-hash")

	require.NoError(t, flow.RequestReset(context.Background(), "alice@x.com"))
	token := notifier.token()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = flow.ConfirmReset(context.Background(), token, "newpw456")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidResetToken)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent confirm must win")
}
