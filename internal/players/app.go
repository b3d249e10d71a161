package players

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/models"
)

var ErrInvalidPlayer = errors.New("invalid player data")

// PlayersRepository defines what the app layer needs from the repository.
type PlayersRepository interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error)
	ListPlayers(ctx context.Context, filter ListFilter) ([]models.Player, error)
	ListFreeAgents(ctx context.Context, leagueID uuid.UUID, filter ListFilter) ([]models.Player, error)
	UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error)
}

// App handles player catalog business logic.
type App struct {
	repo PlayersRepository
}

func NewApp(repo PlayersRepository) *App {
	return &App{repo: repo}
}

func (a *App) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	return a.repo.GetPlayer(ctx, id)
}

func (a *App) ListPlayers(ctx context.Context, filter ListFilter) ([]models.Player, error) {
	if filter.Role != "" && !models.ValidPlayerRole(filter.Role) {
		return nil, ErrInvalidPlayer
	}
	return a.repo.ListPlayers(ctx, filter)
}

func (a *App) ListFreeAgents(ctx context.Context, leagueID uuid.UUID, filter ListFilter) ([]models.Player, error) {
	if filter.Role != "" && !models.ValidPlayerRole(filter.Role) {
		return nil, ErrInvalidPlayer
	}
	return a.repo.ListFreeAgents(ctx, leagueID, filter)
}

// UpsertPlayer loads or refreshes one catalog entry (seed tool).
func (a *App) UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error) {
	if strings.TrimSpace(req.Name) == "" || !models.ValidPlayerRole(req.Role) || req.Quotation < 1 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlayer, req.Name)
	}
	return a.repo.UpsertPlayer(ctx, req)
}
