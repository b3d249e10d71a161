package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/fantacontratti/backend/internal/httpx"
)

func setupServer(config *Config, services *Services) *http.Server {
	r := chi.NewRouter()
	r.Use(httpx.RequestLogger)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: config.CORS.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint authenticates via token query parameter.
	r.Get("/ws", services.WebSocketHandler.HandleLeagueConnection)
	r.Get("/ws/stats", services.WebSocketHandler.HandleStats)

	r.Route("/api", func(api chi.Router) {
		services.Users.RegisterPublicRoutes(api)

		api.Group(func(authed chi.Router) {
			authed.Use(httpx.Auth(services.UsersApp))
			services.Users.RegisterRoutes(authed)
			services.Leagues.RegisterRoutes(authed)
			services.Players.RegisterRoutes(authed)
			services.Roster.RegisterRoutes(authed)
			services.Watchlist.RegisterRoutes(authed)
			services.Trades.RegisterRoutes(authed)
			services.Movements.RegisterRoutes(authed)
			services.Prizes.RegisterRoutes(authed)
			services.Svincolati.RegisterRoutes(authed)
			services.Auction.RegisterRoutes(authed)
		})
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Server.Port),
		Handler: c.Handler(r),
	}
}
