package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"flowstated/internal/auth"
	"flowstated/internal/models"
)

// Handler upgrades /ws/sync requests into hub-registered sessions. The
// bearer token travels in the "token" query parameter; it is validated
// with the same rules as the REST middleware before a session exists.
type Handler struct {
	hub      *Hub
	authn    *auth.Authenticator
	upgrader websocket.Upgrader

	pingInterval time.Duration
	pongTimeout  time.Duration

	logger zerolog.Logger
}

// NewHandler wires a WebSocket handshake handler to hub and authn.
func NewHandler(hub *Hub, authn *auth.Authenticator, pingInterval, pongTimeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:   hub,
		authn: authn,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens at the CORS layer in front.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
		logger:       logger.With().Str("component", "ws_handler").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, authErr := h.resolveUser(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.logger.Debug().Err(err).Msg("upgrade failed")
		return
	}

	if authErr != nil {
		// Reject with a close code; no session is ever created.
		msg := websocket.FormatCloseMessage(closeCodeAuthFailed, string(ReasonAuthFailed))
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
		sessionCloses.WithLabelValues(string(ReasonAuthFailed)).Inc()
		h.logger.Warn().Err(authErr).Msg("websocket auth failed")
		return
	}

	s := newSession(conn, user.ID, h.hub, h.pingInterval, h.pongTimeout, h.logger)
	h.hub.add(s)
	s.start()
}

func (h *Handler) resolveUser(r *http.Request) (*models.User, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil, auth.ErrMissingCredentials
	}
	return h.authn.ResolveToken(r.Context(), token)
}
