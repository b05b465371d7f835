package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State is the lifecycle position of a session.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateAlive
	StateAwaitingPong
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateAlive:
		return "alive"
	case StateAwaitingPong:
		return "awaiting_pong"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const writeTimeout = 10 * time.Second

// Session is one authenticated WebSocket connection. All mutable state is
// owned by the session's own goroutines; the hub only holds a handle for
// broadcast fan-out.
type Session struct {
	ID     string
	UserID uuid.UUID

	conn *websocket.Conn
	hub  *Hub

	pingInterval time.Duration
	pongTimeout  time.Duration

	state    atomic.Int32
	lastPong atomic.Int64 // unix nanos

	writeMu   sync.Mutex
	pongCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	reason    atomic.Value // CloseReason

	logger zerolog.Logger
}

func generateSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

func newSession(conn *websocket.Conn, userID uuid.UUID, hub *Hub, pingInterval, pongTimeout time.Duration, logger zerolog.Logger) *Session {
	s := &Session{
		ID:           generateSessionID(),
		UserID:       userID,
		conn:         conn,
		hub:          hub,
		pingInterval: pingInterval,
		pongTimeout:  pongTimeout,
		pongCh:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	s.logger = logger.With().Str("session_id", s.ID).Stringer("user_id", userID).Logger()
	s.state.Store(int32(StateAuthenticated))
	s.lastPong.Store(time.Now().UnixNano())
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// CloseReason returns the recorded close classification, or "" while the
// session is still open.
func (s *Session) CloseReason() CloseReason {
	if r, ok := s.reason.Load().(CloseReason); ok {
		return r
	}
	return ""
}

// LastPong returns when the client last answered a heartbeat.
func (s *Session) LastPong() time.Time {
	return time.Unix(0, s.lastPong.Load())
}

// Done is closed when the session has fully shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// start transitions the session to alive and launches its loops.
func (s *Session) start() {
	s.state.Store(int32(StateAlive))
	go s.readLoop()
	go s.heartbeatLoop()
}

// Send delivers a message to the client. Best-effort: a write failure
// closes the session.
func (s *Session) Send(msg Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.State() == StateClosed {
		return websocket.ErrCloseSent
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug().Err(err).Msg("write failed")
		go s.close(ReasonClientDisconnect, websocket.CloseAbnormalClosure)
		return err
	}
	return nil
}

// readLoop consumes client frames until disconnect, answering pings and
// recording pongs.
func (s *Session) readLoop() {
	defer s.close(ReasonClientDisconnect, websocket.CloseNormalClosure)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = s.Send(errorMessage("invalid_message"))
			continue
		}

		switch msg.Type {
		case TypePing:
			_ = s.Send(Message{Type: TypePong})

		case TypePong:
			s.lastPong.Store(time.Now().UnixNano())
			s.state.CompareAndSwap(int32(StateAwaitingPong), int32(StateAlive))
			select {
			case s.pongCh <- struct{}{}:
			default:
			}

		case TypeEventUpdate, TypeInboxUpdate:
			ack, _ := NewMessage(TypeAck, map[string]string{
				"received_type": msg.Type,
				"status":        "ok",
			})
			_ = s.Send(ack)

		default:
			_ = s.Send(errorMessage("unknown_type"))
		}
	}
}

// heartbeatLoop pings the client at the configured interval and enforces
// the pong deadline. A single missed deadline is terminal: the session is
// closed, not retried.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Send(Message{Type: TypePing}); err != nil {
				return
			}
			s.state.CompareAndSwap(int32(StateAlive), int32(StateAwaitingPong))

			deadline := time.NewTimer(s.pongTimeout)
			select {
			case <-s.pongCh:
				deadline.Stop()
			case <-deadline.C:
				s.logger.Warn().Msg("pong deadline missed, closing session")
				s.close(ReasonHeartbeatTimeout, closeCodeHeartbeatTimeout)
				return
			case <-s.done:
				deadline.Stop()
				return
			}

		case <-s.done:
			return
		}
	}
}

// close tears the session down exactly once: records the reason, notifies
// the client, releases the connection, and deregisters from the hub.
func (s *Session) close(reason CloseReason, code int) {
	s.closeOnce.Do(func() {
		s.reason.Store(reason)
		s.state.Store(int32(StateClosed))

		s.writeMu.Lock()
		msg := websocket.FormatCloseMessage(code, string(reason))
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = s.conn.WriteMessage(websocket.CloseMessage, msg)
		_ = s.conn.Close()
		s.writeMu.Unlock()

		close(s.done)
		s.hub.remove(s)
		sessionCloses.WithLabelValues(string(reason)).Inc()
		s.logger.Info().Str("reason", string(reason)).Msg("session closed")
	})
}
