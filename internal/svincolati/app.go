package svincolati

import (
	"context"
	"errors"
	"fmt"
	"sort"
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
	ErrSessionExists      = errors.New("league already has an active session")
	ErrNoSession          = errors.New("no active session")
	ErrWrongStatus        = errors.New("session status does not allow this")
	ErrWrongPhase         = errors.New("session phase does not allow this")
	ErrNotYourTurn        = errors.New("not your turn to nominate")
	ErrMemberDone         = errors.New("member has finished the session")
	ErrPlayerTaken        = errors.New("player already under contract")
	ErrInvalidBid         = errors.New("bid does not beat the running bid")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrQuotaExceeded      = errors.New("no roster slot left for this role")
)

// A member is marked done after this many consecutive passed turns.
const defaultMaxPasses = 2

// SvincolatiRepository defines what the app layer needs from the repository.
type SvincolatiRepository interface {
	CreateSession(ctx context.Context, session models.SvincolatiSession) (*models.SvincolatiSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.SvincolatiSession, error)
	GetActiveSessionForLeague(ctx context.Context, leagueID uuid.UUID) (*models.SvincolatiSession, error)
	ListMemberStates(ctx context.Context, sessionID uuid.UUID) ([]models.SvincolatiMemberState, error)
	Mutate(ctx context.Context, sessionID uuid.UUID, fn func(tx pgx.Tx, s *models.SvincolatiSession, states map[uuid.UUID]*models.SvincolatiMemberState) error) (*models.SvincolatiSession, error)
	GetFreePlayerTx(ctx context.Context, tx pgx.Tx, leagueID, playerID uuid.UUID) (*models.Player, error)
	GetPlayerTx(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*models.Player, error)
	GetMemberBudgetTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (int, error)
	CountFreePlayersTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID) (int, error)
	DebitBudgetTx(ctx context.Context, tx pgx.Tx, leagueID, memberID, playerID uuid.UUID, amount int, movementType models.MovementType, note string) error
	FetchDueSessions(ctx context.Context, now time.Time) ([]models.SvincolatiSession, error)
	NextDeadline(ctx context.Context) (*time.Time, error)
}

// Memberships resolves membership, roles and settings; implemented by
// the leagues app.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
	RequireAdmin(ctx context.Context, leagueID, userID uuid.UUID) error
	ListMembers(ctx context.Context, leagueID uuid.UUID) ([]models.LeagueMember, error)
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

// Scheduler is nudged whenever a deadline moves; implemented by the
// orchestrator. The default no-op keeps the app usable in tests.
type Scheduler interface {
	Wake()
}

type noopScheduler struct{}

func (noopScheduler) Wake() {}

// App drives the svincolati turn-based free-agent draft.
type App struct {
	repo      SvincolatiRepository
	members   Memberships
	contracts Contracts
	outbox    Outbox
	clock     clockwork.Clock
	scheduler Scheduler
}

func NewApp(repo SvincolatiRepository, members Memberships, contracts Contracts, outbox Outbox, clock clockwork.Clock) *App {
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

// CreateSession snapshots the league settings and freezes the turn
// order: richest budget first, earliest join breaking ties.
func (a *App) CreateSession(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
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
	membersList, err := a.members.ListMembers(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if len(membersList) == 0 {
		return nil, ErrNotMember
	}

	sort.SliceStable(membersList, func(i, j int) bool {
		if membersList[i].Budget != membersList[j].Budget {
			return membersList[i].Budget > membersList[j].Budget
		}
		return membersList[i].JoinedAt.Before(membersList[j].JoinedAt)
	})
	turnOrder := make([]uuid.UUID, len(membersList))
	for i, m := range membersList {
		turnOrder[i] = m.ID
	}

	session, err := a.repo.CreateSession(ctx, models.SvincolatiSession{
		LeagueID: leagueID,
		Status:   models.SessionStatusNotStarted,
		Phase:    models.PhaseWaitingReady,
		Settings: models.SvincolatiSettings{
			NominationTimeSec: settings.NominationTimeSec,
			BidTimeSec:        settings.BidTimeSec,
			AckTimeSec:        settings.AckTimeSec,
			MinBidIncrement:   settings.MinBidIncrement,
			MaxPasses:         defaultMaxPasses,
		},
		TurnOrder: turnOrder,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID.String()).
		Str("league_id", leagueID.String()).
		Int("members", len(turnOrder)).
		Msg("svincolati session created")
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
	states, err := a.repo.ListMemberStates(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	sortByTurnOrder(states, session.TurnOrder)

	state := &SessionState{Session: *session, MemberStates: states}
	if current, ok := session.CurrentTurnMember(); ok && session.Status == models.SessionStatusInProgress {
		state.CurrentTurnMember = &current
	}
	return state, nil
}

// Start moves a created session to IN_PROGRESS, waiting on the ready barrier.
func (a *App) Start(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if s.Status != models.SessionStatusNotStarted {
			return ErrWrongStatus
		}
		now := a.clock.Now()
		s.Status = models.SessionStatusInProgress
		s.Phase = models.PhaseWaitingReady
		s.StartedAt = &now

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionStarted, events.SessionStartedPayload{
			SessionID:   s.ID.String(),
			SessionKind: "svincolati",
			StartedAt:   now,
			TurnOrder:   s.TurnOrder,
		})
	})
}

// Ready marks the caller ready. When the last active member checks in,
// the first turn opens.
func (a *App) Ready(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseWaitingReady); err != nil {
			return err
		}
		st, ok := states[member.ID]
		if !ok {
			return ErrNotMember
		}
		st.Ready = true

		ready, required := barrierCounts(states, func(st *models.SvincolatiMemberState) bool { return st.Ready })
		if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeMemberReady, events.MemberReadyPayload{
			SessionID:  s.ID.String(),
			MemberID:   member.ID.String(),
			ReadyCount: ready,
			Required:   required,
		}); err != nil {
			return err
		}

		if ready == required {
			return a.beginTurn(ctx, tx, s, states, s.TurnIndex)
		}
		return nil
	})
}

// Nominate puts a free agent on the block. The nominator opens the
// bidding at their own bid and their pass streak resets.
func (a *App) Nominate(ctx context.Context, leagueID, userID uuid.UUID, req NominateRequest) (*models.SvincolatiSession, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	leagueSettings, err := a.members.GetLeagueSettings(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseNomination); err != nil {
			return err
		}
		current, ok := s.CurrentTurnMember()
		if !ok || current != member.ID {
			return ErrNotYourTurn
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
		if err := a.checkAffordable(ctx, tx, member.ID, player.Role, opening, leagueSettings); err != nil {
			return err
		}

		now := a.clock.Now()
		bidderID := member.ID
		s.Nomination = &models.Nomination{
			PlayerID:      player.ID,
			NominatedBy:   member.ID,
			OpeningBid:    opening,
			HighestBid:    opening,
			HighestBidder: &bidderID,
			OpenedAt:      now,
		}
		s.Phase = models.PhaseBidding
		deadline := now.Add(time.Duration(s.Settings.BidTimeSec) * time.Second)
		s.NextDeadline = &deadline
		states[member.ID].Passes = 0

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypePlayerNominated, events.PlayerNominatedPayload{
			SessionID:   s.ID.String(),
			PlayerID:    player.ID.String(),
			PlayerName:  player.Name,
			NominatedBy: member.ID.String(),
			OpeningBid:  opening,
			TimeoutAt:   deadline,
		})
	})
}

// Bid raises the running bid. Every accepted bid restarts the bid timer.
func (a *App) Bid(ctx context.Context, leagueID, userID uuid.UUID, req BidRequest) (*models.SvincolatiSession, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	leagueSettings, err := a.members.GetLeagueSettings(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseBidding); err != nil {
			return err
		}
		st, ok := states[member.ID]
		if !ok {
			return ErrNotMember
		}
		if st.Done {
			return ErrMemberDone
		}
		nom := s.Nomination
		if nom.HighestBidder != nil && *nom.HighestBidder == member.ID {
			return ErrInvalidBid
		}
		if req.Amount < nom.HighestBid+s.Settings.MinBidIncrement {
			return ErrInvalidBid
		}

		player, err := a.repo.GetPlayerTx(ctx, tx, nom.PlayerID)
		if err != nil {
			return err
		}
		if err := a.checkAffordable(ctx, tx, member.ID, player.Role, req.Amount, leagueSettings); err != nil {
			return err
		}

		bidderID := member.ID
		nom.HighestBid = req.Amount
		nom.HighestBidder = &bidderID
		nom.BidCount++
		deadline := a.clock.Now().Add(time.Duration(s.Settings.BidTimeSec) * time.Second)
		s.NextDeadline = &deadline

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeBidPlaced, events.BidPlacedPayload{
			SessionID: s.ID.String(),
			PlayerID:  nom.PlayerID.String(),
			BidderID:  member.ID.String(),
			Amount:    req.Amount,
			BidCount:  nom.BidCount,
			TimeoutAt: deadline,
		})
	})
}

// Pass skips the caller's nomination turn. Reaching the pass limit
// marks the member done for the rest of the session.
func (a *App) Pass(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseNomination); err != nil {
			return err
		}
		current, ok := s.CurrentTurnMember()
		if !ok || current != member.ID {
			return ErrNotYourTurn
		}
		return a.pass(ctx, tx, s, states, member.ID, false)
	})
}

// Ack confirms the turn outcome. When the last active member acks,
// the next turn opens.
func (a *App) Ack(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	member, err := a.members.GetMemberForUser(ctx, leagueID, userID)
	if err != nil {
		return nil, ErrNotMember
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseAck); err != nil {
			return err
		}
		st, ok := states[member.ID]
		if !ok {
			return ErrNotMember
		}
		st.Acked = true

		acked, required := barrierCounts(states, func(st *models.SvincolatiMemberState) bool { return st.Acked })
		if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeMemberAcked, events.MemberAckedPayload{
			SessionID: s.ID.String(),
			MemberID:  member.ID.String(),
			AckCount:  acked,
			Required:  required,
		}); err != nil {
			return err
		}

		if acked == required {
			return a.advanceTurn(ctx, tx, s, states)
		}
		return nil
	})
}

// Pause freezes the session; timers restart from scratch on resume.
func (a *App) Pause(ctx context.Context, leagueID, userID uuid.UUID, reason string) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
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

// Resume restarts a paused session with a fresh timer for the current phase.
func (a *App) Resume(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if s.Status != models.SessionStatusPaused {
			return ErrWrongStatus
		}
		now := a.clock.Now()
		s.Status = models.SessionStatusInProgress
		if secs := phaseTimeout(s); secs > 0 {
			deadline := now.Add(time.Duration(secs) * time.Second)
			s.NextDeadline = &deadline
		}

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionResumed, events.SessionResumedPayload{
			SessionID: s.ID.String(),
			ResumedAt: now,
		})
	})
}

// ForceReady marks the stragglers ready on their behalf and opens the
// first turn.
func (a *App) ForceReady(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseWaitingReady); err != nil {
			return err
		}
		for _, memberID := range s.TurnOrder {
			st, ok := states[memberID]
			if !ok || st.Ready {
				continue
			}
			st.Ready = true
			ready, required := barrierCounts(states, func(st *models.SvincolatiMemberState) bool { return st.Ready })
			if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeMemberReady, events.MemberReadyPayload{
				SessionID:  s.ID.String(),
				MemberID:   memberID.String(),
				ReadyCount: ready,
				Required:   required,
				Forced:     true,
			}); err != nil {
				return err
			}
		}
		return a.beginTurn(ctx, tx, s, states, s.TurnIndex)
	})
}

// ForceAck acks on behalf of the stragglers and opens the next turn.
func (a *App) ForceAck(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseAck); err != nil {
			return err
		}
		for _, memberID := range s.TurnOrder {
			st, ok := states[memberID]
			if !ok || st.Done || st.Acked {
				continue
			}
			st.Acked = true
			acked, required := barrierCounts(states, func(st *models.SvincolatiMemberState) bool { return st.Acked })
			if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeMemberAcked, events.MemberAckedPayload{
				SessionID: s.ID.String(),
				MemberID:  memberID.String(),
				AckCount:  acked,
				Required:  required,
				Forced:    true,
			}); err != nil {
				return err
			}
		}
		return a.advanceTurn(ctx, tx, s, states)
	})
}

// ForceAdvance passes the current nominator's turn on their behalf.
func (a *App) ForceAdvance(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if err := requirePhase(s, models.PhaseNomination); err != nil {
			return err
		}
		current, ok := s.CurrentTurnMember()
		if !ok {
			return ErrWrongPhase
		}
		return a.pass(ctx, tx, s, states, current, true)
	})
}

// Cancel aborts the session. Contracts already assigned stand.
func (a *App) Cancel(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error) {
	if err := a.members.RequireAdmin(ctx, leagueID, userID); err != nil {
		return nil, ErrNotAdmin
	}
	return a.mutateActive(ctx, leagueID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		now := a.clock.Now()
		s.Status = models.SessionStatusCancelled
		s.NextDeadline = nil
		s.CompletedAt = &now

		return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionCancelled, events.SessionCompletedPayload{
			SessionID:   s.ID.String(),
			CompletedAt: now,
		})
	})
}

// HandleDeadline fires the timeout action for one due session: auto-pass
// on nomination, resolution on bidding, forced advance on ack. Called by
// the orchestrator; a stale wakeup is a no-op.
func (a *App) HandleDeadline(ctx context.Context, sessionID uuid.UUID) error {
	_, err := a.repo.Mutate(ctx, sessionID, func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
		if s.Status != models.SessionStatusInProgress || s.NextDeadline == nil {
			return nil
		}
		if s.NextDeadline.After(a.clock.Now()) {
			return nil
		}

		switch s.Phase {
		case models.PhaseNomination:
			current, ok := s.CurrentTurnMember()
			if !ok {
				return nil
			}
			return a.pass(ctx, tx, s, states, current, true)
		case models.PhaseBidding:
			return a.resolveBidding(ctx, tx, s, states)
		case models.PhaseAck:
			return a.advanceTurn(ctx, tx, s, states)
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.scheduler.Wake()
	return nil
}

// NextDeadline reports the soonest pending timeout for the scheduler.
func (a *App) NextDeadline(ctx context.Context) (*time.Time, error) {
	return a.repo.NextDeadline(ctx)
}

// DueSessionIDs lists sessions whose timeout has already passed.
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

type stateMap = map[uuid.UUID]*models.SvincolatiMemberState

func (a *App) activeSession(ctx context.Context, leagueID uuid.UUID) (*models.SvincolatiSession, error) {
	session, err := a.repo.GetActiveSessionForLeague(ctx, leagueID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return session, nil
}

func (a *App) mutateActive(ctx context.Context, leagueID uuid.UUID, fn func(tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error) (*models.SvincolatiSession, error) {
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

func requirePhase(s *models.SvincolatiSession, phase models.SvincolatiPhase) error {
	if s.Status != models.SessionStatusInProgress {
		return ErrWrongStatus
	}
	if s.Phase != phase {
		return ErrWrongPhase
	}
	return nil
}

// sortByTurnOrder arranges states to match the session's frozen order.
func sortByTurnOrder(states []models.SvincolatiMemberState, order []uuid.UUID) {
	pos := make(map[uuid.UUID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	sort.SliceStable(states, func(i, j int) bool {
		return pos[states[i].MemberID] < pos[states[j].MemberID]
	})
}

// barrierCounts tallies a barrier over members still in the session.
func barrierCounts(states stateMap, hit func(*models.SvincolatiMemberState) bool) (count, required int) {
	for _, st := range states {
		if st.Done {
			continue
		}
		required++
		if hit(st) {
			count++
		}
	}
	return count, required
}

// phaseTimeout returns the timer length in seconds for the current phase.
func phaseTimeout(s *models.SvincolatiSession) int {
	switch s.Phase {
	case models.PhaseNomination:
		return s.Settings.NominationTimeSec
	case models.PhaseBidding:
		return s.Settings.BidTimeSec
	case models.PhaseAck:
		return s.Settings.AckTimeSec
	}
	return 0
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

// beginTurn opens the nomination phase for the first active member at or
// after the given index. Completes the session when nobody is left or
// the free-agent pool is empty.
func (a *App) beginTurn(ctx context.Context, tx pgx.Tx, s *models.SvincolatiSession, states stateMap, fromIndex int) error {
	idx, ok := nextActiveIndex(s, states, fromIndex)
	if !ok {
		return a.complete(ctx, tx, s)
	}
	free, err := a.repo.CountFreePlayersTx(ctx, tx, s.LeagueID)
	if err != nil {
		return err
	}
	if free == 0 {
		return a.complete(ctx, tx, s)
	}

	now := a.clock.Now()
	s.TurnIndex = idx
	s.Phase = models.PhaseNomination
	s.Nomination = nil
	deadline := now.Add(time.Duration(s.Settings.NominationTimeSec) * time.Second)
	s.NextDeadline = &deadline
	for _, st := range states {
		st.Acked = false
	}

	return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeTurnStarted, events.TurnStartedPayload{
		SessionID: s.ID.String(),
		MemberID:  s.TurnOrder[idx].String(),
		TurnIndex: idx,
		StartedAt: now,
		TimeoutAt: deadline,
	})
}

// advanceTurn moves past the current member to the next active one.
func (a *App) advanceTurn(ctx context.Context, tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
	return a.beginTurn(ctx, tx, s, states, s.TurnIndex+1)
}

// nextActiveIndex finds the first not-done member scanning a full cycle
// from fromIndex.
func nextActiveIndex(s *models.SvincolatiSession, states stateMap, fromIndex int) (int, bool) {
	n := len(s.TurnOrder)
	if n == 0 {
		return 0, false
	}
	for i := 0; i < n; i++ {
		idx := (fromIndex + i) % n
		if st, ok := states[s.TurnOrder[idx]]; ok && !st.Done {
			return idx, true
		}
	}
	return 0, false
}

// pass records a skipped nomination and advances the turn. A member
// reaching the pass limit is done for the session.
func (a *App) pass(ctx context.Context, tx pgx.Tx, s *models.SvincolatiSession, states stateMap, memberID uuid.UUID, byTimeout bool) error {
	st, ok := states[memberID]
	if !ok {
		return ErrNotMember
	}
	st.Passes++
	if st.Passes >= s.Settings.MaxPasses {
		st.Done = true
	}

	if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeTurnPassed, events.TurnPassedPayload{
		SessionID: s.ID.String(),
		MemberID:  memberID.String(),
		ByTimeout: byTimeout,
		Passes:    st.Passes,
		Done:      st.Done,
	}); err != nil {
		return err
	}

	return a.advanceTurn(ctx, tx, s, states)
}

// resolveBidding assigns the nominated player to the highest bidder:
// contract, budget debit and ledger movement commit together, then the
// acknowledge phase opens. A winner whose budget dropped below the bid
// in the meantime (trades and admin adjustments run outside the session
// lock) voids the nomination and the turn advances.
func (a *App) resolveBidding(ctx context.Context, tx pgx.Tx, s *models.SvincolatiSession, states stateMap) error {
	nom := s.Nomination
	if nom == nil || nom.HighestBidder == nil {
		return ErrWrongPhase
	}
	winnerID := *nom.HighestBidder
	price := nom.HighestBid

	player, err := a.repo.GetPlayerTx(ctx, tx, nom.PlayerID)
	if err != nil {
		return err
	}
	budget, err := a.repo.GetMemberBudgetTx(ctx, tx, winnerID)
	if err != nil {
		return err
	}
	if budget < price {
		if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeBiddingClosed, events.BiddingClosedPayload{
			SessionID: s.ID.String(),
			PlayerID:  nom.PlayerID.String(),
			Voided:    true,
		}); err != nil {
			return err
		}
		log.Warn().
			Str("session_id", s.ID.String()).
			Str("winner_id", winnerID.String()).
			Int("price", price).
			Int("budget", budget).
			Msg("winning bidder can no longer pay, nomination voided")
		s.Nomination = nil
		return a.advanceTurn(ctx, tx, s, states)
	}

	if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeBiddingClosed, events.BiddingClosedPayload{
		SessionID: s.ID.String(),
		PlayerID:  nom.PlayerID.String(),
	}); err != nil {
		return err
	}

	if _, err := a.contracts.InsertContractTx(ctx, tx, roster.NewContract{
		LeagueID: s.LeagueID,
		MemberID: winnerID,
		PlayerID: player.ID,
		Salary:   price,
		Seasons:  1,
		Origin:   models.ContractOriginSvincolati,
	}); err != nil {
		return err
	}
	note := fmt.Sprintf("Acquisto svincolato: %s", player.Name)
	if err := a.repo.DebitBudgetTx(ctx, tx, s.LeagueID, winnerID, player.ID, price, models.MovementTypeSvincolatiWin, note); err != nil {
		return err
	}
	if st, ok := states[winnerID]; ok {
		st.Passes = 0
	}

	now := a.clock.Now()
	if err := a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypePlayerAssigned, events.PlayerAssignedPayload{
		SessionID:  s.ID.String(),
		PlayerID:   player.ID.String(),
		PlayerName: player.Name,
		WinnerID:   winnerID.String(),
		Price:      price,
		AssignedAt: now,
	}); err != nil {
		return err
	}

	s.Phase = models.PhaseAck
	deadline := now.Add(time.Duration(s.Settings.AckTimeSec) * time.Second)
	s.NextDeadline = &deadline
	for _, st := range states {
		st.Acked = false
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Str("player_id", player.ID.String()).
		Str("winner_id", winnerID.String()).
		Int("price", price).
		Msg("svincolato assigned")
	return nil
}

// complete closes the session for good.
func (a *App) complete(ctx context.Context, tx pgx.Tx, s *models.SvincolatiSession) error {
	now := a.clock.Now()
	s.Status = models.SessionStatusCompleted
	s.NextDeadline = nil
	s.Nomination = nil
	s.CompletedAt = &now

	return a.outbox.EmitTx(ctx, tx, s.LeagueID, events.TypeSessionCompleted, events.SessionCompletedPayload{
		SessionID:   s.ID.String(),
		CompletedAt: now,
	})
}
