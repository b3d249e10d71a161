package trades

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/events"
	"github.com/fantacontratti/backend/internal/models"
)

var (
	ErrNotMember          = errors.New("not a league member")
	ErrNotYourOffer       = errors.New("offer addressed to another member")
	ErrNotPending         = errors.New("offer is not pending")
	ErrSelfTrade          = errors.New("cannot trade with yourself")
	ErrEmptyTrade         = errors.New("trade moves nothing")
	ErrPlayerNotOwned     = errors.New("player not owned by the offering side")
	ErrInsufficientBudget = errors.New("insufficient budget for trade")
	ErrQuotaExceeded      = errors.New("roster quota exceeded after trade")
)

// TradesRepository defines what the app layer needs from the repository.
type TradesRepository interface {
	CreateTrade(ctx context.Context, offer models.TradeOffer) (*models.TradeOffer, error)
	GetTrade(ctx context.Context, id uuid.UUID) (*models.TradeOffer, error)
	ListForMember(ctx context.Context, memberID uuid.UUID) ([]models.TradeOffer, error)
	CloseTrade(ctx context.Context, id uuid.UUID, status models.TradeStatus) (*models.TradeOffer, error)
	ExecuteTrade(ctx context.Context, tradeID uuid.UUID, emit func(tx pgx.Tx, offer *models.TradeOffer) error) (*models.TradeOffer, error)
}

// Memberships resolves league membership; implemented by the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
}

// Outbox appends domain events.
type Outbox interface {
	EmitTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, eventType string, payload any) error
	Emit(ctx context.Context, leagueID uuid.UUID, eventType string, payload any) error
}

// App handles trade business logic.
type App struct {
	repo    TradesRepository
	members Memberships
	outbox  Outbox
}

func NewApp(repo TradesRepository, members Memberships, outbox Outbox) *App {
	return &App{repo: repo, members: members, outbox: outbox}
}

// Propose creates a PENDING offer toward another member of the league.
func (a *App) Propose(ctx context.Context, leagueID, userID uuid.UUID, req CreateTradeRequest) (*models.TradeOffer, error) {
	from, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	if from.ID == req.ToMemberID {
		return nil, ErrSelfTrade
	}
	if len(req.OfferedPlayerIDs) == 0 && len(req.RequestedPlayerIDs) == 0 &&
		req.OfferedBudget == 0 && req.RequestedBudget == 0 {
		return nil, ErrEmptyTrade
	}
	if req.OfferedBudget < 0 || req.RequestedBudget < 0 {
		return nil, ErrEmptyTrade
	}

	offer, err := a.repo.CreateTrade(ctx, models.TradeOffer{
		LeagueID:           leagueID,
		FromMemberID:       from.ID,
		ToMemberID:         req.ToMemberID,
		OfferedPlayerIDs:   req.OfferedPlayerIDs,
		RequestedPlayerIDs: req.RequestedPlayerIDs,
		OfferedBudget:      req.OfferedBudget,
		RequestedBudget:    req.RequestedBudget,
	})
	if err != nil {
		return nil, err
	}

	if err := a.outbox.Emit(ctx, leagueID, events.TypeTradeProposed, events.TradeProposedPayload{
		TradeID:      offer.ID.String(),
		FromMemberID: offer.FromMemberID.String(),
		ToMemberID:   offer.ToMemberID.String(),
	}); err != nil {
		log.Error().Err(err).Str("trade_id", offer.ID.String()).Msg("failed to emit TradeProposed")
	}

	return offer, nil
}

// List returns every offer involving the caller.
func (a *App) List(ctx context.Context, leagueID, userID uuid.UUID) ([]models.TradeOffer, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	return a.repo.ListForMember(ctx, member.ID)
}

// Accept executes a pending offer; only the recipient may accept.
func (a *App) Accept(ctx context.Context, leagueID, userID, tradeID uuid.UUID) (*models.TradeOffer, error) {
	if _, err := a.authorize(ctx, leagueID, userID, tradeID, roleRecipient); err != nil {
		return nil, err
	}

	offer, err := a.repo.ExecuteTrade(ctx, tradeID, func(tx pgx.Tx, offer *models.TradeOffer) error {
		return a.outbox.EmitTx(ctx, tx, offer.LeagueID, events.TypeTradeResolved, events.TradeResolvedPayload{
			TradeID: offer.ID.String(),
			Status:  string(offer.Status),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("trade_id", tradeID.String()).Msg("trade executed")
	return offer, nil
}

// Reject closes a pending offer; only the recipient may reject.
func (a *App) Reject(ctx context.Context, leagueID, userID, tradeID uuid.UUID) (*models.TradeOffer, error) {
	return a.close(ctx, leagueID, userID, tradeID, roleRecipient, models.TradeStatusRejected)
}

// Cancel withdraws a pending offer; only the proposer may cancel.
func (a *App) Cancel(ctx context.Context, leagueID, userID, tradeID uuid.UUID) (*models.TradeOffer, error) {
	return a.close(ctx, leagueID, userID, tradeID, roleProposer, models.TradeStatusCancelled)
}

// Counter closes the pending offer as COUNTERED and opens a new PENDING
// offer flowing the other way, linked to the original.
func (a *App) Counter(ctx context.Context, leagueID, userID, tradeID uuid.UUID, req CreateTradeRequest) (*models.TradeOffer, error) {
	original, err := a.authorize(ctx, leagueID, userID, tradeID, roleRecipient)
	if err != nil {
		return nil, err
	}

	if _, err := a.repo.CloseTrade(ctx, tradeID, models.TradeStatusCountered); err != nil {
		return nil, err
	}

	counter, err := a.repo.CreateTrade(ctx, models.TradeOffer{
		LeagueID:           leagueID,
		FromMemberID:       original.ToMemberID,
		ToMemberID:         original.FromMemberID,
		OfferedPlayerIDs:   req.OfferedPlayerIDs,
		RequestedPlayerIDs: req.RequestedPlayerIDs,
		OfferedBudget:      req.OfferedBudget,
		RequestedBudget:    req.RequestedBudget,
		CounterOfID:        &original.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := a.outbox.Emit(ctx, leagueID, events.TypeTradeProposed, events.TradeProposedPayload{
		TradeID:      counter.ID.String(),
		FromMemberID: counter.FromMemberID.String(),
		ToMemberID:   counter.ToMemberID.String(),
	}); err != nil {
		log.Error().Err(err).Str("trade_id", counter.ID.String()).Msg("failed to emit TradeProposed")
	}

	return counter, nil
}

type offerRole int

const (
	roleProposer offerRole = iota
	roleRecipient
)

func (a *App) close(ctx context.Context, leagueID, userID, tradeID uuid.UUID, role offerRole, status models.TradeStatus) (*models.TradeOffer, error) {
	if _, err := a.authorize(ctx, leagueID, userID, tradeID, role); err != nil {
		return nil, err
	}

	offer, err := a.repo.CloseTrade(ctx, tradeID, status)
	if err != nil {
		return nil, err
	}

	if err := a.outbox.Emit(ctx, leagueID, events.TypeTradeResolved, events.TradeResolvedPayload{
		TradeID: offer.ID.String(),
		Status:  string(offer.Status),
	}); err != nil {
		log.Error().Err(err).Str("trade_id", offer.ID.String()).Msg("failed to emit TradeResolved")
	}
	return offer, nil
}

// authorize loads the offer and checks the caller holds the given role on it.
func (a *App) authorize(ctx context.Context, leagueID, userID, tradeID uuid.UUID, role offerRole) (*models.TradeOffer, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}

	offer, err := a.repo.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("trade offer not found: %w", err)
	}
	if offer.LeagueID != leagueID {
		return nil, fmt.Errorf("trade offer not found in league")
	}
	if offer.Status != models.TradeStatusPending {
		return nil, ErrNotPending
	}

	expected := offer.FromMemberID
	if role == roleRecipient {
		expected = offer.ToMemberID
	}
	if member.ID != expected {
		return nil, ErrNotYourOffer
	}
	return offer, nil
}
