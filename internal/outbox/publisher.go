package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/events"
)

// Publisher delivers a claimed outbox event to the message bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// JetStreamPublisher publishes events to NATS JetStream under
// league.events.<league_id>.<event_type>, retrying transient failures
// with exponential backoff.
type JetStreamPublisher struct {
	js            jetstream.JetStream
	subjectPrefix string
	maxElapsed    time.Duration
}

func NewJetStreamPublisher(js jetstream.JetStream, subjectPrefix string) *JetStreamPublisher {
	return &JetStreamPublisher{
		js:            js,
		subjectPrefix: subjectPrefix,
		maxElapsed:    15 * time.Second,
	}
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event Event) error {
	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, event.LeagueID, event.EventType)

	envelope := events.DomainEvent{
		EventID:   event.ID.String(),
		LeagueID:  event.LeagueID.String(),
		EventType: event.EventType,
		Timestamp: event.CreatedAt,
		Payload:   json.RawMessage(event.Payload),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.maxElapsed

	publish := func() error {
		_, err := p.js.Publish(ctx, subject, data)
		return err
	}

	if err := backoff.Retry(publish, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID.String()).
		Msg("published outbox event")
	return nil
}
