package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// InstanceID identifies this process on the bus for the lifetime of the
// process. Updates published here carry it as their origin.
var InstanceID = uuid.NewString()

// SubjectUpdates carries cross-instance session notifications. Every
// instance subscribes; each delivers to the sessions it holds locally.
const SubjectUpdates = "flowstated.updates"

// Update is the fan-out envelope: which user to notify and the frame to
// push to their sessions. Origin names the publishing instance so
// subscribers can skip updates they already delivered locally.
type Update struct {
	Origin  string          `json:"origin,omitempty"`
	UserID  string          `json:"user_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bus wraps a NATS connection for best-effort pub/sub between instances.
// A nil Bus is valid and publishes nowhere: single-instance deployments
// run without NATS.
type Bus struct {
	conn *nats.Conn
}

// Connect dials the provided NATS endpoint.
func Connect(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Bus{conn: nc}, nil
}

// Close drains and shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to the given subject.
// Delivery is at-most-once; there is no replay for offline subscribers.
func (b *Bus) Publish(subj string, v any) error {
	if b == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.conn.Publish(subj, data)
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe invokes fn for each message on the given subject until ctx is
// cancelled or the returned Closer is closed.
func (b *Bus) Subscribe(ctx context.Context, subj string, fn func(data []byte)) (io.Closer, error) {
	if b == nil {
		return nopCloser{}, nil
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	sub, err := b.conn.Subscribe(subj, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
