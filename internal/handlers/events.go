package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/datatypes"

	"flowstated/internal/models"
	"flowstated/internal/store"
	"flowstated/internal/ws"
)

type eventRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Category    string          `json:"category"`
	IsAllDay    bool            `json:"is_all_day"`
	IsRecurring bool            `json:"is_recurring"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (req *eventRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return errors.New("title is required")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return errors.New("start_time and end_time are required")
	}
	if !req.EndTime.After(req.StartTime) {
		return errors.New("end_time must be after start_time")
	}
	return nil
}

// normalizeAllDay pins an all-day event to the full calendar day in the
// timestamps' own locations.
func normalizeAllDay(start, end time.Time) (time.Time, time.Time) {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	e := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999000, end.Location())
	return s, e
}

func (req *eventRequest) toModel() *models.Event {
	start, end := req.StartTime, req.EndTime
	if req.IsAllDay {
		start, end = normalizeAllDay(start, end)
	}
	return &models.Event{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   start,
		EndTime:     end,
		Category:    req.Category,
		IsAllDay:    req.IsAllDay,
		IsRecurring: req.IsRecurring,
		Metadata:    datatypes.JSON(req.Metadata),
	}
}

func (a *API) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	event := req.toModel()
	event.UserID = currentUser(r).ID

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.CreateEvent(ctx, event); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(event.UserID, ws.TypeEventUpdate, event)
	respondJSON(w, http.StatusCreated, event)
}

func (a *API) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	event, err := a.store.EventByID(ctx, currentUser(r).ID, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	events, err := a.store.ListEvents(ctx, currentUser(r).ID, filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func eventFilterFromQuery(r *http.Request) (store.EventFilter, error) {
	var filter store.EventFilter

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errors.New("start_date must be YYYY-MM-DD")
		}
		filter.Start = &day
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errors.New("end_date must be YYYY-MM-DD")
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		filter.End = &end
	}
	filter.Category = r.URL.Query().Get("category")

	return filter, nil
}

func (a *API) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Title       *string         `json:"title"`
		Description *string         `json:"description"`
		StartTime   *time.Time      `json:"start_time"`
		EndTime     *time.Time      `json:"end_time"`
		Category    *string         `json:"category"`
		IsAllDay    *bool           `json:"is_all_day"`
		IsRecurring *bool           `json:"is_recurring"`
		Metadata    json.RawMessage `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	event, err := a.store.EventByID(ctx, userID, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if req.Title != nil {
		event.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if req.Category != nil {
		event.Category = *req.Category
	}
	if req.IsAllDay != nil {
		event.IsAllDay = *req.IsAllDay
	}
	if req.IsRecurring != nil {
		event.IsRecurring = *req.IsRecurring
	}
	if req.Metadata != nil {
		event.Metadata = datatypes.JSON(req.Metadata)
	}

	if event.Title == "" {
		respondError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}
	if !event.EndTime.After(event.StartTime) {
		respondError(w, http.StatusBadRequest, errors.New("end_time must be after start_time"))
		return
	}
	if event.IsAllDay {
		event.StartTime, event.EndTime = normalizeAllDay(event.StartTime, event.EndTime)
	}

	if err := a.store.UpdateEvent(ctx, event); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(userID, ws.TypeEventUpdate, event)
	respondJSON(w, http.StatusOK, event)
}

func (a *API) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "event_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	if err := a.store.DeleteEvent(ctx, userID, id); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(userID, ws.TypeEventUpdate, map[string]any{"id": id, "deleted": true})
	w.WriteHeader(http.StatusNoContent)
}
