package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/gateway"
	"github.com/fantacontratti/backend/internal/natsutil"
	"github.com/fantacontratti/backend/internal/outbox"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, dbCfg, err := setupDatabase(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	nc, js, err := natsutil.Connect(config.NATS.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer nc.Close()
	if err := natsutil.EnsureStream(ctx, js); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure event stream")
	}

	services := setupServices(pool, js, clockwork.NewRealClock())

	// Outbox relay: DB outbox table -> JetStream.
	relayCfg := outbox.DefaultRelayConfig()
	relayCfg.DatabaseURL = dbCfg.DSN()
	relay, err := outbox.NewRelay(
		services.OutboxRepo,
		outbox.NewJetStreamPublisher(js, natsutil.SubjectPrefix),
		relayCfg,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox relay")
	}

	// Gateway consumer: JetStream -> WebSocket fan-out.
	consumer, err := gateway.NewEventConsumer(ctx, services.ConnectionManager, js, gateway.DefaultConsumerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway consumer")
	}

	go services.ConnectionManager.Start(ctx)
	go func() {
		if err := relay.Start(ctx); err != nil {
			log.Error().Err(err).Msg("outbox relay stopped")
		}
	}()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway consumer stopped")
		}
	}()
	go func() {
		if err := services.Orchestrator.Run(ctx); err != nil {
			log.Error().Err(err).Msg("orchestrator stopped")
		}
	}()

	server := setupServer(config, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
