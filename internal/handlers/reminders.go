package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"flowstated/internal/models"
	"flowstated/internal/store"
)

const defaultReminderType = "notification"

// prepTimeFor resolves a category's preparation minutes: custom user
// preference when present, configured default otherwise.
func (a *API) prepTimeFor(ctx context.Context, userID uuid.UUID, category string) int {
	pref, err := a.store.PreferenceFor(ctx, userID, category)
	if err == nil {
		return pref.PreparationTimeMinutes
	}
	if !errors.Is(err, store.ErrNotFound) {
		a.logger.Warn().Err(err).Str("category", category).Msg("loading reminder preference")
	}
	return a.config.PrepTimeFor(category)
}

func (a *API) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID         *uuid.UUID `json:"event_id"`
		ReminderTime    *time.Time `json:"reminder_time"`
		LeadTimeMinutes *int       `json:"lead_time_minutes"`
		ReminderType    string     `json:"reminder_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.LeadTimeMinutes != nil && *req.LeadTimeMinutes < 0 {
		respondError(w, http.StatusBadRequest, errors.New("lead_time_minutes must not be negative"))
		return
	}
	if req.ReminderType == "" {
		req.ReminderType = defaultReminderType
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	reminder := &models.ReminderSetting{
		UserID:       userID,
		EventID:      req.EventID,
		ReminderType: req.ReminderType,
		IsActive:     true,
	}

	switch {
	case req.EventID != nil:
		event, err := a.store.EventByID(ctx, userID, *req.EventID)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		// Lead time falls back to the user's preparation time for the
		// event's category, then to the configured defaults.
		lead := 0
		if req.LeadTimeMinutes != nil {
			lead = *req.LeadTimeMinutes
		} else {
			lead = a.prepTimeFor(ctx, userID, event.Category)
		}

		reminder.LeadTimeMinutes = lead
		reminder.ReminderTime = event.StartTime.Add(-time.Duration(lead) * time.Minute)

	case req.ReminderTime != nil:
		reminder.ReminderTime = *req.ReminderTime
		if req.LeadTimeMinutes != nil {
			reminder.LeadTimeMinutes = *req.LeadTimeMinutes
		}

	default:
		respondError(w, http.StatusBadRequest, errors.New("event_id or reminder_time is required"))
		return
	}

	if err := a.store.CreateReminder(ctx, reminder); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, reminder)
}

func (a *API) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reminder_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	reminder, err := a.store.ReminderByID(ctx, currentUser(r).ID, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminder)
}

func (a *API) handleListReminders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	reminders, err := a.store.ListReminders(ctx, currentUser(r).ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminders)
}

func (a *API) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reminder_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		ReminderTime    *time.Time `json:"reminder_time"`
		LeadTimeMinutes *int       `json:"lead_time_minutes"`
		ReminderType    *string    `json:"reminder_type"`
		IsActive        *bool      `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.LeadTimeMinutes != nil && *req.LeadTimeMinutes < 0 {
		respondError(w, http.StatusBadRequest, errors.New("lead_time_minutes must not be negative"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	reminder, err := a.store.ReminderByID(ctx, userID, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if req.ReminderTime != nil {
		reminder.ReminderTime = *req.ReminderTime
	}
	if req.LeadTimeMinutes != nil {
		reminder.LeadTimeMinutes = *req.LeadTimeMinutes
	}
	if req.ReminderType != nil {
		reminder.ReminderType = *req.ReminderType
	}
	if req.IsActive != nil {
		reminder.IsActive = *req.IsActive
	}

	if err := a.store.UpdateReminder(ctx, reminder); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminder)
}

func (a *API) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "reminder_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.DeleteReminder(ctx, currentUser(r).ID, id); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPreferences returns the configured defaults overlaid with
// the user's custom rows.
func (a *API) handleListPreferences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	prefs, err := a.store.ListPreferences(ctx, currentUser(r).ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	merged := map[string]any{}
	for category, minutes := range a.config.DefaultPrepTimes {
		merged[category] = map[string]any{
			"preparation_time_minutes": minutes,
			"is_custom":                false,
		}
	}
	for _, pref := range prefs {
		merged[pref.EventCategory] = map[string]any{
			"preparation_time_minutes": pref.PreparationTimeMinutes,
			"is_custom":                pref.IsCustom,
		}
	}

	respondJSON(w, http.StatusOK, merged)
}

func (a *API) handleUpsertPreference(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventCategory          string `json:"event_category"`
		PreparationTimeMinutes int    `json:"preparation_time_minutes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if store.NormalizeCategory(req.EventCategory) == "" {
		respondError(w, http.StatusBadRequest, errors.New("event_category is required"))
		return
	}
	if req.PreparationTimeMinutes < 0 {
		respondError(w, http.StatusBadRequest, errors.New("preparation_time_minutes must not be negative"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	pref, err := a.store.UpsertPreference(ctx, currentUser(r).ID, req.EventCategory, req.PreparationTimeMinutes, true)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pref)
}
