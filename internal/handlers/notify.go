package handlers

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"flowstated/internal/bus"
	"flowstated/internal/ws"
)

// Broadcaster pushes a frame to a user's live local sessions.
type Broadcaster interface {
	Broadcast(userID uuid.UUID, msg ws.Message) int
}

// Publisher fans a notification out to other instances.
type Publisher interface {
	Publish(subj string, v any) error
}

// Notifier delivers change notifications to the owner's sessions:
// locally through the hub, and cross-instance through NATS. Delivery is
// best-effort; a failed notification never fails the request.
type Notifier struct {
	hub    Broadcaster
	bus    Publisher
	logger zerolog.Logger
}

func NewNotifier(hub Broadcaster, publisher Publisher, logger zerolog.Logger) *Notifier {
	return &Notifier{
		hub:    hub,
		bus:    publisher,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// Notify pushes a typed payload to every session the user has open.
func (n *Notifier) Notify(userID uuid.UUID, msgType string, payload any) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		n.logger.Error().Err(err).Str("type", msgType).Msg("encoding notification")
		return
	}

	if n.hub != nil {
		n.hub.Broadcast(userID, msg)
	}

	if n.bus != nil {
		update := bus.Update{Origin: bus.InstanceID, UserID: userID.String(), Type: msgType, Payload: msg.Payload}
		if err := n.bus.Publish(bus.SubjectUpdates, update); err != nil {
			n.logger.Warn().Err(err).Str("type", msgType).Msg("publishing notification")
		}
	}
}
