package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"flowstated/internal/auth"
	"flowstated/internal/config"
	"flowstated/internal/models"
	"flowstated/internal/store"
)

// Store is the persistence surface the HTTP layer depends on.
// *store.Store satisfies it; tests substitute an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	UserByUsernameOrEmail(ctx context.Context, identifier string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, username, email *string) (*models.User, error)

	CreateEvent(ctx context.Context, event *models.Event) error
	EventByID(ctx context.Context, userID, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context, userID uuid.UUID, filter store.EventFilter) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, userID, id uuid.UUID) error

	CreateInboxItem(ctx context.Context, item *models.InboxItem) error
	InboxItemByID(ctx context.Context, userID, id uuid.UUID) (*models.InboxItem, error)
	ListInboxItems(ctx context.Context, userID uuid.UUID, filter store.InboxFilter) ([]models.InboxItem, error)
	UpdateInboxItem(ctx context.Context, item *models.InboxItem) error
	DeleteInboxItem(ctx context.Context, userID, id uuid.UUID) error
	BulkUpdateInboxStatus(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, status string) (int64, error)
	ConvertInboxItem(ctx context.Context, userID, itemID uuid.UUID, event *models.Event) error

	CreateReminder(ctx context.Context, reminder *models.ReminderSetting) error
	ReminderByID(ctx context.Context, userID, id uuid.UUID) (*models.ReminderSetting, error)
	ListReminders(ctx context.Context, userID uuid.UUID) ([]models.ReminderSetting, error)
	UpdateReminder(ctx context.Context, reminder *models.ReminderSetting) error
	DeleteReminder(ctx context.Context, userID, id uuid.UUID) error
	PreferenceFor(ctx context.Context, userID uuid.UUID, category string) (*models.ReminderPreference, error)
	ListPreferences(ctx context.Context, userID uuid.UUID) ([]models.ReminderPreference, error)
	UpsertPreference(ctx context.Context, userID uuid.UUID, category string, minutes int, isCustom bool) (*models.ReminderPreference, error)
}

// API wires dependencies and configuration for the HTTP handlers.
type API struct {
	store    Store
	authn    *auth.Authenticator
	issuer   *auth.TokenIssuer
	reset    *auth.ResetFlow
	notifier *Notifier
	ws       http.Handler
	ready    func(context.Context) error
	config   config.Config
	logger   zerolog.Logger
}

// New initialises the API layer.
func New(st Store, authn *auth.Authenticator, issuer *auth.TokenIssuer, reset *auth.ResetFlow, notifier *Notifier, wsHandler http.Handler, ready func(context.Context) error, cfg config.Config, logger zerolog.Logger) (*API, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if authn == nil || issuer == nil {
		return nil, errors.New("authenticator and token issuer are required")
	}
	if reset == nil {
		return nil, errors.New("reset flow is required")
	}
	if notifier == nil {
		notifier = NewNotifier(nil, nil, logger)
	}
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}

	return &API{
		store:    st,
		authn:    authn,
		issuer:   issuer,
		reset:    reset,
		notifier: notifier,
		ws:       wsHandler,
		ready:    ready,
		config:   cfg,
		logger:   logger.With().Str("component", "api").Logger(),
	}, nil
}

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// respondStoreError maps persistence errors to status codes. Unknown
// errors surface as a generic 500 so internals never leak to clients.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, errors.New("not found"))
	case errors.Is(err, store.ErrDuplicate):
		respondError(w, http.StatusConflict, errors.New("already exists"))
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, errors.New("time slot conflicts with an existing event"))
	default:
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

// currentUser pulls the authenticated user injected by RequireUser.
func currentUser(r *http.Request) *models.User {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		panic("handler reached without authenticated user")
	}
	return user
}

func pathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("valid " + param + " is required")
	}
	return id, nil
}
