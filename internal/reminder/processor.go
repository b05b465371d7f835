package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"flowstated/internal/bus"
	"flowstated/internal/models"
	"flowstated/internal/ws"
)

var remindersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "flowstated_reminders_processed_total",
	Help: "Reminders picked up by the delivery poller, by outcome.",
}, []string{"outcome"})

// Store is the slice of the persistence layer the processor needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time) ([]models.ReminderSetting, error)
	MarkReminderDelivered(ctx context.Context, id uuid.UUID) error
}

// Broadcaster pushes a frame to a user's live sessions.
type Broadcaster interface {
	Broadcast(userID uuid.UUID, msg ws.Message) int
}

// Publisher fans a notification out to other instances.
type Publisher interface {
	Publish(subj string, v any) error
}

// Processor polls for due reminders and delivers them to live sessions.
// Delivery is best-effort: a reminder is marked delivered once processed,
// whether or not the user had a session open.
type Processor struct {
	store    Store
	hub      Broadcaster
	bus      Publisher
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewProcessor(store Store, hub Broadcaster, publisher Publisher, interval time.Duration, logger zerolog.Logger) *Processor {
	return &Processor{
		store:    store,
		hub:      hub,
		bus:      publisher,
		interval: interval,
		logger:   logger.With().Str("component", "reminder_processor").Logger(),
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("reminder processor started")
	for {
		select {
		case <-ticker.C:
			p.processDue(ctx)
		case <-ctx.Done():
			p.logger.Info().Msg("reminder processor stopped")
			return
		}
	}
}

func (p *Processor) processDue(ctx context.Context) {
	due, err := p.store.DueReminders(ctx, p.now())
	if err != nil {
		p.logger.Error().Err(err).Msg("querying due reminders")
		return
	}

	for _, r := range due {
		if err := p.deliver(ctx, r); err != nil {
			remindersProcessed.WithLabelValues("error").Inc()
			p.logger.Error().Err(err).Stringer("reminder_id", r.ID).Msg("delivering reminder")
			continue
		}
		remindersProcessed.WithLabelValues("delivered").Inc()
	}
}

func (p *Processor) deliver(ctx context.Context, r models.ReminderSetting) error {
	payload := map[string]any{
		"reminder_id":       r.ID,
		"reminder_time":     r.ReminderTime,
		"lead_time_minutes": r.LeadTimeMinutes,
		"reminder_type":     r.ReminderType,
	}
	if r.EventID != nil {
		payload["event_id"] = *r.EventID
	}

	msg, err := ws.NewMessage(ws.TypeReminder, payload)
	if err != nil {
		return err
	}

	delivered := p.hub.Broadcast(r.UserID, msg)
	p.logger.Debug().Stringer("reminder_id", r.ID).Int("sessions", delivered).Msg("reminder broadcast")

	if p.bus != nil {
		update := bus.Update{Origin: bus.InstanceID, UserID: r.UserID.String(), Type: ws.TypeReminder, Payload: msg.Payload}
		if err := p.bus.Publish(bus.SubjectUpdates, update); err != nil {
			p.logger.Warn().Err(err).Msg("publishing reminder update")
		}
	}

	return p.store.MarkReminderDelivered(ctx, r.ID)
}
