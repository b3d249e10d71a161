package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // channel the outbox trigger notifies
	FallbackInterval time.Duration // how often to poll for missed events
	BatchSize        int32
	PingInterval     time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel:    "fc_outbox_events",
		FallbackInterval: 30 * time.Second,
		BatchSize:        100,
		PingInterval:     90 * time.Second,
	}
}

// RelayRepository defines what the relay needs from the outbox repository.
type RelayRepository interface {
	ClaimAndSend(ctx context.Context, limit int32, send func(Event) error) (int, error)
}

// Relay drains the outbox into the message bus. It wakes on Postgres
// NOTIFY for low latency and falls back to polling for anything missed.
type Relay struct {
	repo      RelayRepository
	listener  *pq.Listener
	publisher Publisher
	cfg       RelayConfig
}

func NewRelay(repo RelayRepository, publisher Publisher, cfg RelayConfig) (*Relay, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("outbox listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for outbox notifications")

	return &Relay{
		repo:      repo,
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

// Start runs the relay loop until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	fallback := time.NewTicker(r.cfg.FallbackInterval)
	defer fallback.Stop()
	ping := time.NewTicker(r.cfg.PingInterval)
	defer ping.Stop()

	// Drain whatever accumulated while the relay was down.
	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay shutting down")
			return r.listener.Close()
		case <-r.listener.Notify:
			r.drain(ctx)
		case <-fallback.C:
			r.drain(ctx)
		case <-ping.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("outbox listener ping failed")
			}
		}
	}
}

// drain claims and publishes batches until the outbox is empty.
func (r *Relay) drain(ctx context.Context) {
	for {
		sent, err := r.repo.ClaimAndSend(ctx, r.cfg.BatchSize, func(ev Event) error {
			return r.publisher.Publish(ctx, ev)
		})
		if err != nil {
			log.Error().Err(err).Msg("outbox drain failed")
			return
		}
		if sent > 0 {
			log.Debug().Int("count", sent).Msg("relayed outbox events")
		}
		if sent < int(r.cfg.BatchSize) {
			return
		}
	}
}
