package prizes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/events"
	"github.com/fantacontratti/backend/internal/models"
)

var (
	ErrNotAdmin       = errors.New("not a league admin")
	ErrNotMember      = errors.New("not a league member")
	ErrInvalidRequest = errors.New("invalid prize")
)

// PrizesRepository defines what the app layer needs from the repository.
type PrizesRepository interface {
	CreatePrize(ctx context.Context, leagueID uuid.UUID, name, description string, amount int) (*models.Prize, error)
	GetPrize(ctx context.Context, id uuid.UUID) (*models.Prize, error)
	ListPrizes(ctx context.Context, leagueID uuid.UUID) ([]models.Prize, error)
	DeletePrize(ctx context.Context, id uuid.UUID) error
	AwardPrize(ctx context.Context, prizeID, memberID uuid.UUID, emit func(tx pgx.Tx, prize *models.Prize) error) (*models.Prize, error)
}

// Memberships checks roles; implemented by the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
	RequireAdmin(ctx context.Context, leagueID, userID uuid.UUID) error
}

// Outbox appends domain events transactionally.
type Outbox interface {
	EmitTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, eventType string, payload any) error
}

// App handles prize business logic.
type App struct {
	repo    PrizesRepository
	members Memberships
	outbox  Outbox
}

func NewApp(repo PrizesRepository, members Memberships, outbox Outbox) *App {
	return &App{repo: repo, members: members, outbox: outbox}
}

func (a *App) CreatePrize(ctx context.Context, leagueID, userID uuid.UUID, name, description string, amount int) (*models.Prize, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	if strings.TrimSpace(name) == "" || amount <= 0 {
		return nil, ErrInvalidRequest
	}
	return a.repo.CreatePrize(ctx, leagueID, name, description, amount)
}

func (a *App) ListPrizes(ctx context.Context, leagueID, userID uuid.UUID) ([]models.Prize, error) {
	if _, err := a.members.GetMemberForUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	return a.repo.ListPrizes(ctx, leagueID)
}

func (a *App) DeletePrize(ctx context.Context, leagueID, userID, prizeID uuid.UUID) error {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return ErrNotAdmin
	}
	return a.repo.DeletePrize(ctx, prizeID)
}

// AwardPrize credits the winner and announces it to the league.
func (a *App) AwardPrize(ctx context.Context, leagueID, userID, prizeID, memberID uuid.UUID) (*models.Prize, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}

	prize, err := a.repo.AwardPrize(ctx, prizeID, memberID, func(tx pgx.Tx, prize *models.Prize) error {
		return a.outbox.EmitTx(ctx, tx, prize.LeagueID, events.TypePrizeAwarded, events.PrizeAwardedPayload{
			PrizeID:  prize.ID.String(),
			MemberID: memberID.String(),
			Amount:   prize.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("prize_id", prize.ID.String()).
		Str("member_id", memberID.String()).
		Int("amount", prize.Amount).
		Msg("prize awarded")
	return prize, nil
}
