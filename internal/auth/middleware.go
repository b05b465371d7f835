package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"flowstated/internal/models"
	"flowstated/internal/store"
)

type contextKey struct{}

var userContextKey contextKey

// Authenticator resolves the acting user from a bearer token. It is
// stateless per request: no side effects beyond the user lookup.
type Authenticator struct {
	issuer *TokenIssuer
	store  UserStore
}

// NewAuthenticator returns an Authenticator validating tokens with issuer
// and resolving identities against userStore.
func NewAuthenticator(issuer *TokenIssuer, userStore UserStore) *Authenticator {
	return &Authenticator{issuer: issuer, store: userStore}
}

// Authenticate extracts the bearer token from the Authorization header and
// resolves it to a user. Fails with ErrMissingCredentials when no token is
// presented, ErrTokenExpired/ErrTokenInvalid from validation, and
// ErrUnauthenticated when the subject user no longer exists.
func (a *Authenticator) Authenticate(r *http.Request) (*models.User, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, ErrMissingCredentials
	}
	return a.ResolveToken(r.Context(), raw)
}

// ResolveToken validates a raw token string and loads the subject user.
// Shared by the HTTP middleware and the WebSocket handshake.
func (a *Authenticator) ResolveToken(ctx context.Context, raw string) (*models.User, error) {
	userID, err := a.issuer.Validate(raw)
	if err != nil {
		return nil, err
	}

	user, err := a.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequireUser is chi middleware that rejects unauthenticated requests with
// 401 and injects the resolved user into the request context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.Authenticate(r)
		if err != nil {
			status := http.StatusUnauthorized
			switch {
			case errors.Is(err, ErrMissingCredentials),
				errors.Is(err, ErrTokenExpired),
				errors.Is(err, ErrTokenInvalid),
				errors.Is(err, ErrUnauthenticated):
				// all 401-class
			default:
				status = http.StatusInternalServerError
				err = errors.New("internal server error")
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFrom returns the authenticated user stored in ctx by RequireUser.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
