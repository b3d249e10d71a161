package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/dbconfig"
	"github.com/fantacontratti/backend/internal/players"
)

// Loads the Serie A player catalog from a JSON file (the listone
// export) into fc_players. Safe to rerun: entries upsert on name+team.
func main() {
	path := flag.String("file", "assets/listone.json", "path to the player catalog JSON")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	ctx := context.Background()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("failed to read catalog")
	}
	var catalog []players.UpsertPlayerRequest
	if err := json.Unmarshal(data, &catalog); err != nil {
		log.Fatal().Err(err).Msg("failed to parse catalog")
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	app := players.NewApp(players.NewRepository(pool))

	seeded := 0
	for _, req := range catalog {
		if _, err := app.UpsertPlayer(ctx, req); err != nil {
			log.Error().Err(err).Str("player", req.Name).Msg("skipping player")
			continue
		}
		seeded++
	}

	log.Info().Int("seeded", seeded).Int("total", len(catalog)).Msg("player catalog loaded")
}
