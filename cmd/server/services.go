package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fantacontratti/backend/internal/auction"
	"github.com/fantacontratti/backend/internal/gateway"
	"github.com/fantacontratti/backend/internal/leagues"
	"github.com/fantacontratti/backend/internal/movements"
	"github.com/fantacontratti/backend/internal/orchestrator"
	"github.com/fantacontratti/backend/internal/outbox"
	"github.com/fantacontratti/backend/internal/players"
	"github.com/fantacontratti/backend/internal/prizes"
	"github.com/fantacontratti/backend/internal/roster"
	"github.com/fantacontratti/backend/internal/svincolati"
	"github.com/fantacontratti/backend/internal/trades"
	"github.com/fantacontratti/backend/internal/users"
	"github.com/fantacontratti/backend/internal/watchlist"
)

// Services holds every wired component of the backend.
type Services struct {
	UsersApp *users.App

	Users      *users.Service
	Leagues    *leagues.Service
	Players    *players.Service
	Roster     *roster.Service
	Watchlist  *watchlist.Service
	Trades     *trades.Service
	Movements  *movements.Service
	Prizes     *prizes.Service
	Svincolati *svincolati.Service
	Auction    *auction.Service

	OutboxRepo *outbox.Repository

	ConnectionManager *gateway.ConnectionManager
	WebSocketHandler  *gateway.WebSocketHandler
	Orchestrator      *orchestrator.Orchestrator
}

// setupServices wires repositories, apps and services together: the
// leagues app serves as the membership source for every other domain,
// the outbox app as the event sink, and the orchestrator as the shared
// deadline scheduler.
func setupServices(pool *pgxpool.Pool, js jetstream.JetStream, clock clockwork.Clock) *Services {
	usersApp := users.NewApp(users.NewRepository(pool))
	leaguesApp := leagues.NewApp(leagues.NewRepository(pool))
	outboxRepo := outbox.NewRepository(pool)
	outboxApp := outbox.NewApp(outboxRepo)

	playersApp := players.NewApp(players.NewRepository(pool))
	rosterRepo := roster.NewRepository(pool)
	rosterApp := roster.NewApp(rosterRepo, leaguesApp)
	watchlistApp := watchlist.NewApp(watchlist.NewRepository(pool), leaguesApp)
	tradesApp := trades.NewApp(trades.NewRepository(pool), leaguesApp, outboxApp)
	movementsApp := movements.NewApp(movements.NewRepository(pool), leaguesApp)
	prizesApp := prizes.NewApp(prizes.NewRepository(pool), leaguesApp, outboxApp)

	svincolatiApp := svincolati.NewApp(svincolati.NewRepository(pool), leaguesApp, rosterRepo, outboxApp, clock)
	auctionApp := auction.NewApp(auction.NewRepository(pool), leaguesApp, rosterRepo, outboxApp, clock)

	orch := orchestrator.New(clock,
		orchestrator.NamedSource{Name: "svincolati", Source: svincolatiApp},
		orchestrator.NamedSource{Name: "auction", Source: auctionApp},
	)
	svincolatiApp.SetScheduler(orch)
	auctionApp.SetScheduler(orch)

	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	wsHandler := gateway.NewWebSocketHandler(manager, usersApp, leaguesApp)
	wsHandler.RegisterSnapshot("Svincolati", gateway.SnapshotFunc(
		func(ctx context.Context, leagueID, userID uuid.UUID) (any, error) {
			state, err := svincolatiApp.GetState(ctx, leagueID, userID)
			if errors.Is(err, svincolati.ErrNoSession) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return state, nil
		}))
	wsHandler.RegisterSnapshot("Auction", gateway.SnapshotFunc(
		func(ctx context.Context, leagueID, userID uuid.UUID) (any, error) {
			state, err := auctionApp.GetState(ctx, leagueID, userID)
			if errors.Is(err, auction.ErrNoSession) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return state, nil
		}))

	return &Services{
		UsersApp: usersApp,

		Users:      users.NewService(usersApp),
		Leagues:    leagues.NewService(leaguesApp),
		Players:    players.NewService(playersApp),
		Roster:     roster.NewService(rosterApp),
		Watchlist:  watchlist.NewService(watchlistApp),
		Trades:     trades.NewService(tradesApp),
		Movements:  movements.NewService(movementsApp),
		Prizes:     prizes.NewService(prizesApp),
		Svincolati: svincolati.NewService(svincolatiApp),
		Auction:    auction.NewService(auctionApp),

		OutboxRepo: outboxRepo,

		ConnectionManager: manager,
		WebSocketHandler:  wsHandler,
		Orchestrator:      orch,
	}
}
