package movements

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/models"
)

var ErrNotMember = errors.New("not a league member")

const defaultListLimit = 100

// MovementsRepository defines what the app layer needs from the repository.
type MovementsRepository interface {
	ListByLeague(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Movement, error)
	ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]models.Movement, error)
}

// Memberships resolves league membership; implemented by the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
}

// App handles ledger queries. Writes happen inside the domain
// transactions that produce them, never through this app.
type App struct {
	repo    MovementsRepository
	members Memberships
}

func NewApp(repo MovementsRepository, members Memberships) *App {
	return &App{repo: repo, members: members}
}

func (a *App) ListByLeague(ctx context.Context, leagueID, userID uuid.UUID, limit int) ([]models.Movement, error) {
	if _, err := a.members.GetMemberForUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return a.repo.ListByLeague(ctx, leagueID, limit)
}

func (a *App) ListByMember(ctx context.Context, leagueID, userID, memberID uuid.UUID, limit int) ([]models.Movement, error) {
	if _, err := a.members.GetMemberForUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return a.repo.ListByMember(ctx, memberID, limit)
}
