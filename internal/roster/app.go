package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/models"
)

var (
	ErrNotOwner      = errors.New("contract belongs to another member")
	ErrNotMember     = errors.New("not a league member")
	ErrMaxSeasons    = errors.New("contract already at maximum duration")
	ErrQuotaExceeded = errors.New("roster quota exceeded")
)

// maxContractSeasons caps renewals; a classic keeper-league three-year deal.
const maxContractSeasons = 3

// RosterRepository defines what the app layer needs from the repository.
type RosterRepository interface {
	GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetRoster(ctx context.Context, memberID uuid.UUID) ([]models.RosterEntry, error)
	UpdateContract(ctx context.Context, id uuid.UUID, salary, seasons int) (*models.Contract, error)
	ReleaseContract(ctx context.Context, id uuid.UUID, refund int, note string) (*models.Contract, error)
}

// Memberships resolves league membership; implemented by the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
}

// App handles contract business logic.
type App struct {
	repo    RosterRepository
	members Memberships
}

func NewApp(repo RosterRepository, members Memberships) *App {
	return &App{repo: repo, members: members}
}

// GetRoster lists a member's roster; any league member may look.
func (a *App) GetRoster(ctx context.Context, leagueID, userID, memberID uuid.UUID) ([]models.RosterEntry, error) {
	if _, err := a.members.GetMemberForUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	return a.repo.GetRoster(ctx, memberID)
}

// RenewContract extends a contract one season and raises the salary by
// ten percent, minimum one credit. Only the owner (or an admin) may renew.
func (a *App) RenewContract(ctx context.Context, userID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := a.authorize(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Seasons >= maxContractSeasons {
		return nil, ErrMaxSeasons
	}

	raise := contract.Salary / 10
	if raise < 1 {
		raise = 1
	}

	renewed, err := a.repo.UpdateContract(ctx, contractID, contract.Salary+raise, contract.Seasons+1)
	if err != nil {
		return nil, fmt.Errorf("failed to renew contract: %w", err)
	}

	log.Info().
		Str("contract_id", contractID.String()).
		Int("salary", renewed.Salary).
		Int("seasons", renewed.Seasons).
		Msg("contract renewed")
	return renewed, nil
}

// ReleaseContract releases the player back to the free-agent pool and
// refunds half the salary.
func (a *App) ReleaseContract(ctx context.Context, userID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := a.authorize(ctx, userID, contractID)
	if err != nil {
		return nil, err
	}

	refund := contract.Salary / 2
	released, err := a.repo.ReleaseContract(ctx, contractID, refund, "Svincolo giocatore")
	if err != nil {
		return nil, fmt.Errorf("failed to release contract: %w", err)
	}

	log.Info().
		Str("contract_id", contractID.String()).
		Int("refund", refund).
		Msg("contract released")
	return released, nil
}

// authorize loads the contract and checks the caller owns it or is an
// admin of its league.
func (a *App) authorize(ctx context.Context, userID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := a.repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("contract not found: %w", err)
	}

	member, err := a.members.GetMemberForUser(ctx, contract.LeagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	if member.ID != contract.MemberID && member.Role != models.MemberRoleAdmin {
		return nil, ErrNotOwner
	}
	return contract, nil
}
