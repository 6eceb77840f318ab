// AngelaMos | 2026
// events.go

// Package events carries the engine's outward notifications. Emission
// is best effort and always happens after the owning transaction has
// committed; a lost event never implies lost state.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TypePlanCreated      = "plan.created"
	TypePlanUpdated      = "plan.updated"
	TypePlanDeactivated  = "plan.deactivated"
	TypeFundsContributed = "funds.contributed"
	TypeFundsReclaimed   = "funds.reclaimed"
	TypeTargetReached    = "target.reached"
	TypePaymentSent      = "payment.sent"
	TypePaymentsComplete = "payments.completed"
)

type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	HolderID   string         `json:"holder_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func New(eventType, holderID string, payload map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		HolderID:   holderID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Publisher delivers an event to whoever listens. Implementations
// swallow and log their own failures.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) Publisher {
	if channel == "" {
		channel = "nestfund.events"
	}
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("marshal event", "type", event.Type, "error", err)
		return
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		slog.Warn("publish event",
			"type", event.Type,
			"holder_id", event.HolderID,
			"error", err,
		)
	}
}

type logPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) Publisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, event Event) {
	p.logger.Info("event",
		"id", event.ID,
		"type", event.Type,
		"holder_id", event.HolderID,
		"payload", event.Payload,
	)
}

type multiPublisher struct {
	publishers []Publisher
}

func Multi(publishers ...Publisher) Publisher {
	return &multiPublisher{publishers: publishers}
}

func (p *multiPublisher) Publish(ctx context.Context, event Event) {
	for _, pub := range p.publishers {
		pub.Publish(ctx, event)
	}
}
