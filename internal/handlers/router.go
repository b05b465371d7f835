package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flowstated/internal/version"
)

// Routes constructs the chi router containing all endpoints.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		// Credential endpoints are the brute-force surface.
		r.With(httprate.LimitByIP(20, time.Minute)).Group(func(r chi.Router) {
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
			r.Post("/request-password-reset", a.handleRequestPasswordReset)
			r.Post("/reset-password", a.handleResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.authn.RequireUser)
			r.Get("/me", a.handleMe)
			r.Put("/me", a.handleUpdateMe)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authn.RequireUser)

		r.Route("/events", func(r chi.Router) {
			r.Post("/", a.handleCreateEvent)
			r.Get("/", a.handleListEvents)
			r.Get("/{event_id}", a.handleGetEvent)
			r.Put("/{event_id}", a.handleUpdateEvent)
			r.Delete("/{event_id}", a.handleDeleteEvent)
		})

		r.Route("/inbox", func(r chi.Router) {
			r.Post("/", a.handleCreateInboxItem)
			r.Get("/", a.handleListInboxItems)
			r.Post("/bulk/status", a.handleBulkInboxStatus)
			r.Post("/bulk/archive", a.handleBulkInboxArchive)
			r.Get("/{item_id}", a.handleGetInboxItem)
			r.Put("/{item_id}", a.handleUpdateInboxItem)
			r.Delete("/{item_id}", a.handleDeleteInboxItem)
			r.Post("/{item_id}/convert", a.handleConvertInboxItem)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Post("/", a.handleCreateReminder)
			r.Get("/", a.handleListReminders)
			r.Get("/preferences", a.handleListPreferences)
			r.Put("/preferences", a.handleUpsertPreference)
			r.Get("/{reminder_id}", a.handleGetReminder)
			r.Put("/{reminder_id}", a.handleUpdateReminder)
			r.Delete("/{reminder_id}", a.handleDeleteReminder)
		})
	})

	if a.ws != nil {
		r.Handle("/ws/sync", a.ws)
	}

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": version.Name,
		"version": version.Version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.ready(ctx); err != nil {
		a.logger.Error().Err(err).Msg("readiness check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		a.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
