package ws

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks live sessions per user and fans notifications out to them.
// The registry is the only cross-connection shared state; every mutation
// happens under one mutex so concurrent connects, disconnects, and
// broadcasts cannot lose updates.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]map[*Session]struct{}
	logger   zerolog.Logger
}

// NewHub returns an empty session registry.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[*Session]struct{}),
		logger:   logger.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *Hub) add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[s.UserID] == nil {
		h.sessions[s.UserID] = make(map[*Session]struct{})
	}
	h.sessions[s.UserID][s] = struct{}{}
	activeSessions.Inc()
	h.logger.Info().
		Stringer("user_id", s.UserID).
		Int("connections", len(h.sessions[s.UserID])).
		Msg("session added")
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.sessions[s.UserID]
	if !ok {
		return
	}
	if _, ok := conns[s]; !ok {
		return
	}
	delete(conns, s)
	if len(conns) == 0 {
		delete(h.sessions, s.UserID)
	}
	activeSessions.Dec()
	h.logger.Info().
		Stringer("user_id", s.UserID).
		Int("connections", len(conns)).
		Msg("session removed")
}

// Broadcast delivers msg to every live session of userID and returns the
// number of sessions reached. Delivery is best-effort: there is no outbox
// and no replay for clients that are not connected.
func (h *Hub) Broadcast(userID uuid.UUID, msg Message) int {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Send(msg); err == nil {
			delivered++
		}
	}
	if delivered > 0 {
		broadcasts.Add(float64(delivered))
	}
	return delivered
}

// UserSessionCount returns how many live sessions userID has.
func (h *Hub) UserSessionCount(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[userID])
}

// Total returns the number of live sessions across all users.
func (h *Hub) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0
	for _, conns := range h.sessions {
		total += len(conns)
	}
	return total
}

// Shutdown closes every session with the server_shutdown reason.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var all []*Session
	for _, conns := range h.sessions {
		for s := range conns {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.close(ReasonServerShutdown, websocket.CloseGoingAway)
	}
}
