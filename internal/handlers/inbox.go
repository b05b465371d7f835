package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"flowstated/internal/models"
	"flowstated/internal/store"
	"flowstated/internal/ws"
)

type inboxItemRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Priority int    `json:"priority"`
	Status   string `json:"status"`
}

func (req *inboxItemRequest) validate() error {
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return errors.New("content is required")
	}
	req.Category = strings.ToUpper(strings.TrimSpace(req.Category))
	if !models.ValidInboxCategory(req.Category) {
		return fmt.Errorf("category must be one of %s, %s, %s",
			models.InboxCategoryTodo, models.InboxCategoryIdea, models.InboxCategoryNote)
	}
	if req.Priority < models.InboxPriorityMin || req.Priority > models.InboxPriorityMax {
		return fmt.Errorf("priority must be between %d and %d", models.InboxPriorityMin, models.InboxPriorityMax)
	}
	if req.Status == "" {
		req.Status = models.InboxStatusPending
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if !models.ValidInboxStatus(req.Status) {
		return errors.New("unknown status")
	}
	return nil
}

func (a *API) handleCreateInboxItem(w http.ResponseWriter, r *http.Request) {
	var req inboxItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	item := &models.InboxItem{
		UserID:   currentUser(r).ID,
		Content:  req.Content,
		Category: req.Category,
		Priority: req.Priority,
		Status:   req.Status,
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.store.CreateInboxItem(ctx, item); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(item.UserID, ws.TypeInboxUpdate, item)
	respondJSON(w, http.StatusCreated, item)
}

func (a *API) handleGetInboxItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	item, err := a.store.InboxItemByID(ctx, currentUser(r).ID, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (a *API) handleListInboxItems(w http.ResponseWriter, r *http.Request) {
	filter, err := inboxFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	items, err := a.store.ListInboxItems(ctx, currentUser(r).ID, filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func inboxFilterFromQuery(r *http.Request) (store.InboxFilter, error) {
	var filter store.InboxFilter

	filter.Category = strings.ToUpper(r.URL.Query().Get("category"))
	filter.Status = strings.ToUpper(r.URL.Query().Get("status"))

	parsePriority := func(key string) (int, error) {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < models.InboxPriorityMin || v > models.InboxPriorityMax {
			return 0, fmt.Errorf("%s must be an integer between %d and %d", key, models.InboxPriorityMin, models.InboxPriorityMax)
		}
		return v, nil
	}

	var err error
	if filter.PriorityMin, err = parsePriority("priority_min"); err != nil {
		return filter, err
	}
	if filter.PriorityMax, err = parsePriority("priority_max"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (a *API) handleUpdateInboxItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Content  *string `json:"content"`
		Category *string `json:"category"`
		Priority *int    `json:"priority"`
		Status   *string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	item, err := a.store.InboxItemByID(ctx, userID, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if req.Content != nil {
		item.Content = strings.TrimSpace(*req.Content)
	}
	if req.Category != nil {
		item.Category = strings.ToUpper(strings.TrimSpace(*req.Category))
	}
	if req.Priority != nil {
		item.Priority = *req.Priority
	}
	if req.Status != nil {
		item.Status = strings.ToUpper(strings.TrimSpace(*req.Status))
	}

	check := inboxItemRequest{Content: item.Content, Category: item.Category, Priority: item.Priority, Status: item.Status}
	if err := check.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.store.UpdateInboxItem(ctx, item); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(userID, ws.TypeInboxUpdate, item)
	respondJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteInboxItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	if err := a.store.DeleteInboxItem(ctx, userID, id); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(userID, ws.TypeInboxUpdate, map[string]any{"id": id, "deleted": true})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleBulkInboxStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []uuid.UUID `json:"item_ids"`
		Status  string      `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.ItemIDs) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("item_ids is required"))
		return
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if !models.ValidInboxStatus(req.Status) {
		respondError(w, http.StatusBadRequest, errors.New("unknown status"))
		return
	}

	a.bulkStatus(w, r, req.ItemIDs, req.Status)
}

func (a *API) handleBulkInboxArchive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []uuid.UUID `json:"item_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.ItemIDs) == 0 {
		respondError(w, http.StatusBadRequest, errors.New("item_ids is required"))
		return
	}

	a.bulkStatus(w, r, req.ItemIDs, models.InboxStatusArchived)
}

func (a *API) bulkStatus(w http.ResponseWriter, r *http.Request, ids []uuid.UUID, status string) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	updated, err := a.store.BulkUpdateInboxStatus(ctx, userID, ids, status)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(userID, ws.TypeInboxUpdate, map[string]any{"status": status, "updated_count": updated})
	respondJSON(w, http.StatusOK, map[string]any{"updated_count": updated})
}

func (a *API) handleConvertInboxItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "item_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		StartTime        time.Time       `json:"start_time"`
		EndTime          time.Time       `json:"end_time"`
		EventTitle       *string         `json:"event_title"`
		EventDescription *string         `json:"event_description"`
		EventCategory    string          `json:"event_category"`
		IsAllDay         bool            `json:"is_all_day"`
		IsRecurring      bool            `json:"is_recurring"`
		EventMetadata    json.RawMessage `json:"event_metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.EndTime.After(req.StartTime) {
		respondError(w, http.StatusBadRequest, errors.New("start_time and end_time are required, end after start"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	userID := currentUser(r).ID
	item, err := a.store.InboxItemByID(ctx, userID, itemID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	event := convertedEvent(item, req.StartTime, req.EndTime, req.EventTitle, req.EventDescription,
		req.EventCategory, req.IsAllDay, req.IsRecurring, req.EventMetadata)
	event.UserID = userID

	if err := a.store.ConvertInboxItem(ctx, userID, itemID, event); err != nil {
		respondStoreError(w, err)
		return
	}

	a.notifier.Notify(userID, ws.TypeEventUpdate, event)
	a.notifier.Notify(userID, ws.TypeInboxUpdate, map[string]any{"id": itemID, "status": models.InboxStatusScheduled})
	respondJSON(w, http.StatusCreated, event)
}

const maxConvertedTitleLen = 255

// convertedEvent derives an event from an inbox item, with explicit
// fields taking precedence over values carried from the item.
func convertedEvent(item *models.InboxItem, start, end time.Time, title, description *string,
	category string, isAllDay, isRecurring bool, metadata json.RawMessage) *models.Event {

	content := strings.TrimSpace(item.Content)

	eventTitle := content
	if title != nil {
		eventTitle = strings.TrimSpace(*title)
	}
	if len(eventTitle) > maxConvertedTitleLen {
		eventTitle = eventTitle[:maxConvertedTitleLen]
	}

	eventDescription := ""
	if description != nil {
		eventDescription = *description
	} else if len(content) <= maxConvertedTitleLen {
		eventDescription = content
	}

	eventCategory := category
	if eventCategory == "" {
		eventCategory = item.Category
	}

	meta := map[string]any{}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &meta)
	}
	meta["converted_from_inbox_item_id"] = item.ID.String()
	metaRaw, _ := json.Marshal(meta)

	if isAllDay {
		start, end = normalizeAllDay(start, end)
	}

	return &models.Event{
		Title:       eventTitle,
		Description: eventDescription,
		StartTime:   start,
		EndTime:     end,
		Category:    eventCategory,
		IsAllDay:    isAllDay,
		IsRecurring: isRecurring,
		Metadata:    datatypes.JSON(metaRaw),
	}
}
