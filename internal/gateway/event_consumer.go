package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/events"
	"github.com/fantacontratti/backend/internal/natsutil"
)

// ConsumerConfig holds the JetStream consumer settings.
type ConsumerConfig struct {
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultConsumerConfig returns the gateway's consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		StreamName:    natsutil.StreamName,
		ConsumerName:  "league-gateway",
		SubjectFilter: natsutil.SubjectPrefix + ".>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
	}
}

// EventConsumer reads league events off JetStream and hands them to the
// connection manager for fan-out.
type EventConsumer struct {
	manager  *ConnectionManager
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ConsumerConfig
}

// NewEventConsumer binds a durable consumer on the league event stream.
func NewEventConsumer(ctx context.Context, manager *ConnectionManager, js jetstream.JetStream, config ConsumerConfig) (*EventConsumer, error) {
	stream, err := js.Stream(ctx, config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          config.ConsumerName,
		Durable:       config.ConsumerName,
		Description:   "League gateway WebSocket consumer",
		FilterSubject: config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    config.MaxDeliver,
		AckWait:       config.AckWait,
		MaxAckPending: config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	return &EventConsumer{
		manager:  manager,
		js:       js,
		consumer: consumer,
		config:   config,
	}, nil
}

// Start consumes events until the context ends.
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.StreamName).
		Msg("starting gateway event consumer")

	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.processMessage(msg); err != nil {
			log.Error().
				Err(err).
				Str("subject", msg.Subject()).
				Msg("failed to process message")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	<-ctx.Done()
	consumeCtx.Stop()
	log.Info().Msg("gateway event consumer shutting down")
	return nil
}

func (ec *EventConsumer) processMessage(msg jetstream.Msg) error {
	var event events.DomainEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	leagueID, err := uuid.Parse(event.LeagueID)
	if err != nil {
		return fmt.Errorf("parse league ID: %w", err)
	}

	ec.manager.BroadcastToLeague(leagueID, &WireEvent{
		ID:        event.EventID,
		LeagueID:  event.LeagueID,
		Type:      event.EventType,
		Timestamp: event.Timestamp,
		Data:      event.Payload,
	})

	log.Debug().
		Str("event_id", event.EventID).
		Str("league_id", event.LeagueID).
		Str("event_type", event.EventType).
		Msg("event handed to fan-out")
	return nil
}
