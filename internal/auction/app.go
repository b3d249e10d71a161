package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/events"
	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/roster"
)

var (
	ErrNotAdmin           = errors.New("not a league admin")
	ErrNotMember          = errors.New("not a league member")
	ErrSessionExists      = errors.New("league already has an active auction")
	ErrNoSession          = errors.New("no active auction")
	ErrWrongStatus        = errors.New("auction status does not allow this")
	ErrLotOpen            = errors.New("a lot is already open")
	ErrNoLotOpen          = errors.New("no lot is open")
	ErrPlayerTaken        = errors.New("player already under contract")
	ErrInvalidBid         = errors.New("bid does not beat the running bid")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrQuotaExceeded      = errors.New("no roster slot left for this role")
)

// AuctionRepository defines what the app layer needs from the repository.
type AuctionRepository interface {
	CreateSession(ctx context.Context, session models.AuctionSession) (*models.AuctionSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.AuctionSession, error)
	GetActiveSessionForLeague(ctx context.Context, leagueID uuid.UUID) (*models.AuctionSession, error)
	ListClosedLots(ctx context.Context, sessionID uuid.UUID) ([]models.AuctionLot, error)
	GetLot(ctx context.Context, id uuid.UUID) (*models.AuctionLot, error)
	Mutate(ctx context.Context, sessionID uuid.UUID, fn func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error) (*models.AuctionSession, error)
	InsertLotTx(ctx context.Context, tx pgx.Tx, sessionID, playerID uuid.UUID, openingBid int, openedAt time.Time) (*models.AuctionLot, error)
	GetFreePlayerTx(ctx context.Context, tx pgx.Tx, leagueID, playerID uuid.UUID) (*models.Player, error)
	GetPlayerTx(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*models.Player, error)
	GetMemberBudgetTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (int, error)
	DebitBudgetTx(ctx context.Context, tx pgx.Tx, leagueID, memberID, playerID uuid.UUID, amount int, note string) error
	FetchDueSessions(ctx context.Context, now time.Time) ([]models.AuctionSession, error)
	NextDeadline(ctx context.Context) (*time.Time, error)
}

// Memberships resolves membership, roles and settings; implemented by
// the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
	RequireAdmin(ctx context.Context, leagueID, userID uuid.UUID) error
	GetLeagueSettings(ctx context.Context, leagueID uuid.UUID) (models.LeagueSettings, error)
}

// Contracts records acquisitions transactionally; implemented by the
// roster repository.
type Contracts interface {
	InsertContractTx(ctx context.Context, tx pgx.Tx, nc roster.NewContract) (*models.Contract, error)
	CountActiveByRoleTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (roster.RosterCounts, error)
}

// Outbox appends domain events transactionally.
type Outbox interface {
	EmitTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, eventType string, payload any) error
}

// Scheduler is nudged whenever a deadline moves.
type Scheduler interface {
	Wake()
}

type noopScheduler struct{}

func (noopScheduler) Wake() {}

// App drives the admin-run live auction.
type App struct {
	repo      AuctionRepository
	members   Memberships
	contracts Contracts
	outbox    Outbox
	clock     clockwork.Clock
	scheduler Scheduler
}

func NewApp(repo AuctionRepository, members Memberships, contracts Contracts, outbox Outbox, clock clockwork.Clock) *App {
	return &App{
		repo:      repo,
		members:   members,
		contracts: contracts,
		outbox:    outbox,
		clock:     clock,
		scheduler: noopScheduler{},
	}
}

// SetScheduler wires the orchestrator in after construction.
func (a *App) SetScheduler(s Scheduler) {
	a.scheduler = s
}

// CreateSession snapshots the lot timer and increment from the league settings.
func (a *App) CreateSession(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	if _, err := a.repo.GetActiveSessionForLeague(ctx, leagueID); err == nil {
		return nil, ErrSessionExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	settings, err := a.members.GetLeagueSettings(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	session, err := a.repo.CreateSession(ctx, models.AuctionSession{
		LeagueID: leagueID,
		Status:   models.SessionStatusNotStarted,
		Settings: models.AuctionSettings{
			LotTimeSec:      settings.LotTimeSec,
			MinBidIncrement: settings.MinBidIncrement,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("league_id", leagueID.String()).
		Msg("auction session created")
	return session, nil
}

// GetState returns the snapshot served on GET and on WebSocket join.
func (a *App) GetState(ctx context.Context, leagueID, userID uuid.UUID) (*SessionState, error) {
	if _, err := a.members.GetMemberForUser(ctx, leagueID, userID); err != nil {
		return nil, ErrNotMember
	}
	session, err := a.activeSession(ctx, leagueID)
	if err != nil {
		return nil, err
	}

	state := &SessionState{Session: *session}
	if session.CurrentLotID != nil {
		lot, err := a.repo.GetLot(ctx, *session.CurrentLotID)
		if err != nil {
			return nil, err
		}
		state.CurrentLot = lot
	}
	closed, err := a.repo.ListClosedLots(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	state.ClosedLots = closed
	return state, nil
}

// Start moves a created auction to IN_PROGRESS.
func (a *App) Start(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusNotStarted {
			return ErrWrongStatus
		}
		now := a.clock.Now()
		s.Status = models.SessionStatusInProgress
		s.StartedAt = &now

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionStarted, events.SessionStartedPayload{
			SessionID:   s.ID.String(),
			SessionKind: "auction",
			StartedAt:   now,
		})
	})
}

// OpenLot puts a free agent on the block. Admin only; one lot at a time.
func (a *App) OpenLot(ctx context.Context, leagueID, userID uuid.UUID, req OpenLotRequest) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress {
			return ErrWrongStatus
		}
		if lot != nil {
			return ErrLotOpen
		}

		player, err := a.repo.GetFreePlayerTx(ctx, tx, leagueID, req.PlayerID)
		if err != nil {
			return err
		}
		// Omitted opening bid falls back to the player's quotation.
		opening := req.OpeningBid
		if opening == 0 {
			opening = player.Quotation
		}
		if opening < 1 {
			return ErrInvalidBid
		}

		now := a.clock.Now()
		newLot, err := a.repo.InsertLotTx(ctx, tx, s.ID, player.ID, opening, now)
		if err != nil {
			return err
		}
		s.CurrentLotID = &newLot.ID
		deadline := now.Add(time.Duration(s.Settings.LotTimeSec) * time.Second)
		s.NextDeadline = &deadline

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeLotOpened, events.LotOpenedPayload{
			SessionID:  s.ID.String(),
			LotID:      newLot.ID.String(),
			PlayerID:   player.ID.String(),
			PlayerName: player.Name,
			OpeningBid: opening,
			TimeoutAt:  deadline,
		})
	})
}

// Bid raises the running bid on the open lot. The first bid must reach
// the opening bid; later bids must clear the increment. Every accepted
// bid restarts the lot timer.
func (a *App) Bid(ctx context.Context, leagueID, userID uuid.UUID, req BidRequest) (*models.AuctionSession, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	leagueSettings, err := a.members.GetLeagueSettings(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress {
			return ErrWrongStatus
		}
		if lot == nil || lot.Status != models.LotStatusOpen {
			return ErrNoLotOpen
		}
		if lot.HighestBidder != nil && *lot.HighestBidder == member.ID {
			return ErrInvalidBid
		}
		minBid := lot.OpeningBid
		if lot.HighestBidder != nil {
			minBid = lot.HighestBid + s.Settings.MinBidIncrement
		}
		if req.Amount < minBid {
			return ErrInvalidBid
		}

		player, err := a.repo.GetPlayerTx(ctx, tx, lot.PlayerID)
		if err != nil {
			return err
		}
		if err := a.checkAffordable(ctx, tx, member.ID, player.Role, req.Amount, leagueSettings); err != nil {
			return err
		}

		bidderID := member.ID
		lot.HighestBid = req.Amount
		lot.HighestBidder = &bidderID
		lot.BidCount++
		deadline := a.clock.Now().Add(time.Duration(s.Settings.LotTimeSec) * time.Second)
		s.NextDeadline = &deadline

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeBidPlaced, events.BidPlacedPayload{
			SessionID: s.ID.String(),
			PlayerID:  lot.PlayerID.String(),
			BidderID:  member.ID.String(),
			Amount:    req.Amount,
			BidCount:  lot.BidCount,
			TimeoutAt: deadline,
		})
	})
}

// Pause freezes the auction; the lot timer restarts from scratch on resume.
func (a *App) Pause(ctx context.Context, leagueID, userID uuid.UUID, reason string) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress {
			return ErrWrongStatus
		}
		now := a.clock.Now()
		s.Status = models.SessionStatusPaused
		s.NextDeadline = nil

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionPaused, events.SessionPausedPayload{
			SessionID: s.ID.String(),
			PausedAt:  now,
			Reason:    reason,
		})
	})
}

// Resume restarts a paused auction; an open lot gets a fresh timer.
func (a *App) Resume(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusPaused {
			return ErrWrongStatus
		}
		now := a.clock.Now()
		s.Status = models.SessionStatusInProgress
		if lot != nil && lot.Status == models.LotStatusOpen {
			deadline := now.Add(time.Duration(s.Settings.LotTimeSec) * time.Second)
			s.NextDeadline = &deadline
		}

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionResumed, events.SessionResumedPayload{
			SessionID: s.ID.String(),
			ResumedAt: now,
		})
	})
}

// CloseLot settles the open lot before the timer runs out. Admin only.
func (a *App) CloseLot(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress {
			return ErrWrongStatus
		}
		if lot == nil || lot.Status != models.LotStatusOpen {
			return ErrNoLotOpen
		}
		return a.settleLot(ctx, tx, s, lot)
	})
}

// VoidLot discards the open lot without assignment. Admin only.
func (a *App) VoidLot(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress {
			return ErrWrongStatus
		}
		if lot == nil || lot.Status != models.LotStatusOpen {
			return ErrNoLotOpen
		}
		now := a.clock.Now()
		lot.Status = models.LotStatusVoided
		lot.ClosedAt = &now
		s.CurrentLotID = nil
		s.NextDeadline = nil

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeLotClosed, events.LotClosedPayload{
			SessionID: s.ID.String(),
			LotID:     lot.ID.String(),
			PlayerID:  lot.PlayerID.String(),
			Status:    string(models.LotStatusVoided),
		})
	})
}

// Complete ends the auction. Admin only; no lot may be open.
func (a *App) Complete(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress {
			return ErrWrongStatus
		}
		if lot != nil && lot.Status == models.LotStatusOpen {
			return ErrLotOpen
		}
		now := a.clock.Now()
		s.Status = models.SessionStatusCompleted
		s.NextDeadline = nil
		s.CompletedAt = &now

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionCompleted, events.SessionCompletedPayload{
			SessionID:   s.ID.String(),
			CompletedAt: now,
		})
	})
}

// Cancel aborts the auction; an open lot is voided. Contracts stand.
func (a *App) Cancel(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		now := a.clock.Now()
		if lot != nil && lot.Status == models.LotStatusOpen {
			lot.Status = models.LotStatusVoided
			lot.ClosedAt = &now
		}
		s.Status = models.SessionStatusCancelled
		s.CurrentLotID = nil
		s.NextDeadline = nil
		s.CompletedAt = &now

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionCancelled, events.SessionCompletedPayload{
			SessionID:   s.ID.String(),
			CompletedAt: now,
		})
	})
}

// HandleDeadline settles the open lot of one due session. Called by the
// orchestrator; a stale wakeup is a no-op.
func (a *App) HandleDeadline(ctx context.Context, sessionID uuid.UUID) error {
	_, err := a.repo.Mutate(ctx, sessionID, func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
		if s.Status != models.SessionStatusInProgress || s.NextDeadline == nil {
			return nil
		}
		if s.NextDeadline.After(a.clock.Now()) {
			return nil
		}
		if lot == nil || lot.Status != models.LotStatusOpen {
			s.NextDeadline = nil
			return nil
		}
		return a.settleLot(ctx, tx, s, lot)
	})
	if err != nil {
		return err
	}
	a.scheduler.Wake()
	return nil
}

// NextDeadline reports the soonest pending lot timeout for the scheduler.
func (a *App) NextDeadline(ctx context.Context) (*time.Time, error) {
	return a.repo.NextDeadline(ctx)
}

// DueSessionIDs lists auctions whose lot timer has already passed.
func (a *App) DueSessionIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	sessions, err := a.repo.FetchDueSessions(ctx, now)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids, nil
}

func (a *App) activeSession(ctx context.Context, leagueID uuid.UUID) (*models.AuctionSession, error) {
	session, err := a.repo.GetActiveSessionForLeague(ctx, leagueID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active auction: %w", err)
	}
	return session, nil
}

func (a *App) mutateActive(ctx context.Context, leagueID uuid.UUID, fn func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error) (*models.AuctionSession, error) {
	session, err := a.activeSession(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	mutated, err := a.repo.Mutate(ctx, session.ID, fn)
	if err != nil {
		return nil, err
	}
	a.scheduler.Wake()
	return mutated, nil
}

// checkAffordable verifies budget and the role quota for a prospective bid.
func (a *App) checkAffordable(ctx context.Context, tx pgx.Tx, memberID uuid.UUID, role models.PlayerRole, amount int, settings models.LeagueSettings) error {
	budget, err := a.repo.GetMemberBudgetTx(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if budget < amount {
		return ErrInsufficientBudget
	}
	counts, err := a.contracts.CountActiveByRoleTx(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if counts.Count(role) >= settings.RosterSlots(role) {
		return ErrQuotaExceeded
	}
	return nil
}

// settleLot closes the lot: SOLD to the highest bidder with contract,
// debit and ledger movement, or UNSOLD when nobody bid. A winner whose
// budget dropped below the bid in the meantime (trades and admin
// adjustments run outside the session lock) voids the lot instead.
func (a *App) settleLot(ctx context.Context, tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error {
	now := a.clock.Now()
	lot.ClosedAt = &now
	s.CurrentLotID = nil
	s.NextDeadline = nil

	if lot.HighestBidder == nil {
		lot.Status = models.LotStatusUnsold
		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeLotClosed, events.LotClosedPayload{
			SessionID: s.ID.String(),
			LotID:     lot.ID.String(),
			PlayerID:  lot.PlayerID.String(),
			Status:    string(models.LotStatusUnsold),
		})
	}

	winnerID := *lot.HighestBidder
	price := lot.HighestBid

	player, err := a.repo.GetPlayerTx(ctx, tx, lot.PlayerID)
	if err != nil {
		return err
	}
	budget, err := a.repo.GetMemberBudgetTx(ctx, tx, winnerID)
	if err != nil {
		return err
	}
	if budget < price {
		lot.Status = models.LotStatusVoided
		log.Warn().
			Str("session_id", s.ID.String()).
			Str("lot_id", lot.ID.String()).
			Str("winner_id", winnerID.String()).
			Int("price", price).
			Int("budget", budget).
			Msg("winning bidder can no longer pay, lot voided")
		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeLotClosed, events.LotClosedPayload{
			SessionID: s.ID.String(),
			LotID:     lot.ID.String(),
			PlayerID:  lot.PlayerID.String(),
			Status:    string(models.LotStatusVoided),
		})
	}
	lot.Status = models.LotStatusSold

	if _, err := a.contracts.InsertContractTx(ctx, tx, roster.NewContract{
		LeagueID: s.LeagueID,
		MemberID: winnerID,
		PlayerID: player.ID,
		Salary:   price,
		Seasons:  1,
		Origin:   models.ContractOriginAuction,
	}); err != nil {
		return err
	}
	note := fmt.Sprintf("Acquisto all'asta: %s", player.Name)
	if err := a.repo.DebitBudgetTx(ctx, tx, s.LeagueID, winnerID, player.ID, price, note); err != nil {
		return err
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Str("lot_id", lot.ID.String()).
		Str("winner_id", winnerID.String()).
		Int("price", price).
		Msg("lot sold")

	return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeLotClosed, events.LotClosedPayload{
		SessionID: s.ID.String(),
		LotID:     lot.ID.String(),
		PlayerID:  lot.PlayerID.String(),
		Status:    string(models.LotStatusSold),
		WinnerID:  &winnerID,
		Price:     price,
	})
}
