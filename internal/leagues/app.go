package leagues

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/models"
)

var (
	ErrNotAdmin           = errors.New("not a league admin")
	ErrNotMember          = errors.New("not a league member")
	ErrAlreadyMember      = errors.New("already a league member")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInsufficientBudget = errors.New("insufficient budget")
)

// LeaguesRepository defines what the app layer needs from the repository.
type LeaguesRepository interface {
	CreateLeague(ctx context.Context, req CreateLeagueRequest, adminUserID uuid.UUID, inviteCode string, settings models.LeagueSettings) (*models.League, error)
	GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error)
	GetLeagueByInviteCode(ctx context.Context, code string) (*models.League, error)
	GetLeaguesByUser(ctx context.Context, userID uuid.UUID) ([]models.League, error)
	UpdateLeagueSettings(ctx context.Context, id uuid.UUID, settings models.LeagueSettings) (*models.League, error)
	DeleteLeague(ctx context.Context, id uuid.UUID) error
	CreateMember(ctx context.Context, leagueID, userID uuid.UUID, teamName string, budget int) (*models.LeagueMember, error)
	GetMember(ctx context.Context, id uuid.UUID) (*models.LeagueMember, error)
	GetMemberByUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
	GetMembersByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.LeagueMember, error)
	AdjustMemberBudget(ctx context.Context, memberID uuid.UUID, amount int, movementType models.MovementType, note string) (*models.LeagueMember, error)
}

// App handles league business logic.
type App struct {
	repo LeaguesRepository
}

func NewApp(repo LeaguesRepository) *App {
	return &App{repo: repo}
}

// CreateLeague creates a league; the creator becomes its admin member
// with the starting budget.
func (a *App) CreateLeague(ctx context.Context, userID uuid.UUID, req CreateLeagueRequest) (*models.League, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.TeamName) == "" {
		return nil, ErrInvalidRequest
	}

	settings := models.DefaultLeagueSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if settings.StartingBudget <= 0 || settings.MinBidIncrement <= 0 {
		return nil, ErrInvalidRequest
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	league, err := a.repo.CreateLeague(ctx, req, userID, code, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create league: %w", err)
	}

	log.Info().
		Str("league_id", league.ID.String()).
		Str("name", league.Name).
		Msg("league created")
	return league, nil
}

// GetLeague retrieves a league, requiring the caller to be a member.
func (a *App) GetLeague(ctx context.Context, leagueID, userID uuid.UUID) (*models.League, error) {
	if _, err := a.repo.GetMemberByUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	return a.repo.GetLeague(ctx, leagueID)
}

// GetLeaguesByUser lists the caller's leagues.
func (a *App) GetLeaguesByUser(ctx context.Context, userID uuid.UUID) ([]models.League, error) {
	return a.repo.GetLeaguesByUser(ctx, userID)
}

// JoinLeague adds the user to the league matching the invite code.
func (a *App) JoinLeague(ctx context.Context, userID uuid.UUID, req JoinLeagueRequest) (*models.LeagueMember, error) {
	if strings.TrimSpace(req.TeamName) == "" {
		return nil, ErrInvalidRequest
	}

	league, err := a.repo.GetLeagueByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(req.InviteCode)))
	if err != nil {
		return nil, fmt.Errorf("league not found: %w", err)
	}
	if _, err := a.repo.GetMemberByUser(ctx, league.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	}

	member, err := a.repo.CreateMember(ctx, league.ID, userID, req.TeamName, league.Settings.StartingBudget)
	if err != nil {
		return nil, fmt.Errorf("failed to join league: %w", err)
	}

	log.Info().
		Str("league_id", league.ID.String()).
		Str("member_id", member.ID.String()).
		Msg("member joined league")
	return member, nil
}

// UpdateSettings replaces the league settings (admin only).
func (a *App) UpdateSettings(ctx context.Context, leagueID, userID uuid.UUID, req UpdateSettingsRequest) (*models.League, error) {
	if err := a.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, err
	}
	if req.Settings.StartingBudget <= 0 || req.Settings.MinBidIncrement <= 0 {
		return nil, ErrInvalidRequest
	}
	return a.repo.UpdateLeagueSettings(ctx, leagueID, req.Settings)
}

// DeleteLeague removes the league and everything under it (admin only).
func (a *App) DeleteLeague(ctx context.Context, leagueID, userID uuid.UUID) error {
	if err := a.RequireAdmin(ctx, leagueID, userID); err != nil {
		return err
	}
	return a.repo.DeleteLeague(ctx, leagueID)
}

// GetMembers lists the league's members.
func (a *App) GetMembers(ctx context.Context, leagueID, userID uuid.UUID) ([]models.LeagueMember, error) {
	if _, err := a.repo.GetMemberByUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	return a.repo.GetMembersByLeague(ctx, leagueID)
}

// AdjustMemberBudget applies an admin budget correction with its movement.
func (a *App) AdjustMemberBudget(ctx context.Context, leagueID, adminUserID, memberID uuid.UUID, req AdjustBudgetRequest) (*models.LeagueMember, error) {
	if err := a.RequireAdmin(ctx, leagueID, adminUserID); err != nil {
		return nil, err
	}
	member, err := a.repo.GetMember(ctx, memberID)
	if err != nil || member.LeagueID != leagueID {
		return nil, ErrNotMember
	}
	return a.repo.AdjustMemberBudget(ctx, memberID, req.Amount, models.MovementTypeAdminAdjust, req.Note)
}

// GetMemberForUser resolves the caller's membership in a league. Other
// domains use this for membership and admin checks.
func (a *App) GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error) {
	member, err := a.repo.GetMemberByUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	return member, nil
}

// GetLeagueSettings returns the settings without a membership check;
// session modules snapshot them at creation time.
func (a *App) GetLeagueSettings(ctx context.Context, leagueID uuid.UUID) (models.LeagueSettings, error) {
	league, err := a.repo.GetLeague(ctx, leagueID)
	if err != nil {
		return models.LeagueSettings{}, err
	}
	return league.Settings, nil
}

// ListMembers returns the full roster without a membership check;
// session modules use it when building turn orders.
func (a *App) ListMembers(ctx context.Context, leagueID uuid.UUID) ([]models.LeagueMember, error) {
	return a.repo.GetMembersByLeague(ctx, leagueID)
}

// RequireAdmin verifies the user is an admin member of the league.
func (a *App) RequireAdmin(ctx context.Context, leagueID, userID uuid.UUID) error {
	member, err := a.repo.GetMemberByUser(ctx, leagueID, userID)
	if err != nil {
		return ErrNotMember
	}
	if member.Role != models.MemberRoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

const inviteCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateInviteCode() (string, error) {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCharset))))
		if err != nil {
			return "", err
		}
		code[i] = inviteCharset[n.Int64()]
	}
	return string(code), nil
}
