package ws

import "encoding/json"

// Message is the JSON text frame exchanged on the sync socket.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message types.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeEventUpdate = "event_update"
	TypeInboxUpdate = "inbox_update"
	TypeReminder    = "reminder"
	TypeAck         = "ack"
	TypeError       = "error"
)

// NewMessage builds a Message with payload marshalled to JSON.
func NewMessage(msgType string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: data}, nil
}

func errorMessage(detail string) Message {
	msg, _ := NewMessage(TypeError, map[string]string{"detail": detail})
	return msg
}

// CloseReason classifies why a session ended. Observable via
// Session.CloseReason and the session close counter metric.
type CloseReason string

const (
	ReasonAuthFailed       CloseReason = "auth_failed"
	ReasonHeartbeatTimeout CloseReason = "heartbeat_timeout"
	ReasonClientDisconnect CloseReason = "client_disconnect"
	ReasonServerShutdown   CloseReason = "server_shutdown"
)

// Close codes sent to clients. 1008 (policy violation) rejects failed
// authentication, 4000 is the private-range code for a missed heartbeat.
const (
	closeCodeAuthFailed       = 1008
	closeCodeHeartbeatTimeout = 4000
)
