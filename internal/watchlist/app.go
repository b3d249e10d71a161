package watchlist

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/models"
)

var (
	ErrNotMember = errors.New("not a league member")
	ErrDuplicate = errors.New("player already on watchlist")
	ErrNotFound  = errors.New("watchlist entry not found")
)

// WatchlistRepository defines what the app layer needs from the repository.
type WatchlistRepository interface {
	AddEntry(ctx context.Context, leagueID, memberID, playerID uuid.UUID, priority int, note *string) (*models.WatchlistEntry, error)
	RemoveEntry(ctx context.Context, memberID, playerID uuid.UUID) (bool, error)
	ListEntries(ctx context.Context, memberID uuid.UUID) ([]models.WatchlistEntry, error)
}

// Memberships resolves league membership; implemented by the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
}

// App handles watchlist business logic.
type App struct {
	repo    WatchlistRepository
	members Memberships
}

func NewApp(repo WatchlistRepository, members Memberships) *App {
	return &App{repo: repo, members: members}
}

// Add puts a player on the caller's watchlist. Duplicate adds are
// rejected by the unique index and surfaced as ErrDuplicate.
func (a *App) Add(ctx context.Context, leagueID, userID, playerID uuid.UUID, priority int, note *string) (*models.WatchlistEntry, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}

	entry, err := a.repo.AddEntry(ctx, leagueID, member.ID, playerID, priority, note)
	if err != nil {
		return nil, ErrDuplicate
	}
	return entry, nil
}

// Remove drops a player from the caller's watchlist.
func (a *App) Remove(ctx context.Context, leagueID, userID, playerID uuid.UUID) error {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return ErrNotMember
	}

	removed, err := a.repo.RemoveEntry(ctx, member.ID, playerID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// List returns the caller's watchlist ordered by priority.
func (a *App) List(ctx context.Context, leagueID, userID uuid.UUID) ([]models.WatchlistEntry, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	return a.repo.ListEntries(ctx, member.ID)
}
