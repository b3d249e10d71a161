package svincolati

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantacontratti/backend/internal/events"
	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/roster"
)

type fakeRepo struct {
	session *models.SvincolatiSession
	states  map[uuid.UUID]*models.SvincolatiMemberState
	players map[uuid.UUID]*models.Player
	taken   map[uuid.UUID]bool
	budgets map[uuid.UUID]int
	debits  []int
}

func (f *fakeRepo) CreateSession(_ context.Context, session models.SvincolatiSession) (*models.SvincolatiSession, error) {
	session.ID = uuid.New()
	f.session = &session
	f.states = make(map[uuid.UUID]*models.SvincolatiMemberState)
	for _, memberID := range session.TurnOrder {
		f.states[memberID] = &models.SvincolatiMemberState{SessionID: session.ID, MemberID: memberID}
	}
	return f.session, nil
}

func (f *fakeRepo) GetSession(_ context.Context, id uuid.UUID) (*models.SvincolatiSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, pgx.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeRepo) GetActiveSessionForLeague(_ context.Context, leagueID uuid.UUID) (*models.SvincolatiSession, error) {
	if f.session == nil || f.session.LeagueID != leagueID {
		return nil, pgx.ErrNoRows
	}
	switch f.session.Status {
	case models.SessionStatusCompleted, models.SessionStatusCancelled:
		return nil, pgx.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeRepo) ListMemberStates(_ context.Context, sessionID uuid.UUID) ([]models.SvincolatiMemberState, error) {
	var out []models.SvincolatiMemberState
	for _, st := range f.states {
		out = append(out, *st)
	}
	return out, nil
}

func (f *fakeRepo) Mutate(_ context.Context, sessionID uuid.UUID, fn func(tx pgx.Tx, s *models.SvincolatiSession, states map[uuid.UUID]*models.SvincolatiMemberState) error) (*models.SvincolatiSession, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, pgx.ErrNoRows
	}
	if err := fn(nil, f.session, f.states); err != nil {
		return nil, err
	}
	return f.session, nil
}

func (f *fakeRepo) GetFreePlayerTx(_ context.Context, _ pgx.Tx, _, playerID uuid.UUID) (*models.Player, error) {
	if f.taken[playerID] {
		return nil, ErrPlayerTaken
	}
	player, ok := f.players[playerID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return player, nil
}

func (f *fakeRepo) GetPlayerTx(_ context.Context, _ pgx.Tx, playerID uuid.UUID) (*models.Player, error) {
	player, ok := f.players[playerID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return player, nil
}

func (f *fakeRepo) GetMemberBudgetTx(_ context.Context, _ pgx.Tx, memberID uuid.UUID) (int, error) {
	return f.budgets[memberID], nil
}

func (f *fakeRepo) CountFreePlayersTx(_ context.Context, _ pgx.Tx, _ uuid.UUID) (int, error) {
	n := 0
	for id := range f.players {
		if !f.taken[id] {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DebitBudgetTx(_ context.Context, _ pgx.Tx, _, memberID, _ uuid.UUID, amount int, _ models.MovementType, _ string) error {
	if f.budgets[memberID] < amount {
		return ErrInsufficientBudget
	}
	f.budgets[memberID] -= amount
	f.debits = append(f.debits, amount)
	return nil
}

func (f *fakeRepo) FetchDueSessions(_ context.Context, now time.Time) ([]models.SvincolatiSession, error) {
	if f.session != nil && f.session.Status == models.SessionStatusInProgress &&
		f.session.NextDeadline != nil && !f.session.NextDeadline.After(now) {
		return []models.SvincolatiSession{*f.session}, nil
	}
	return nil, nil
}

func (f *fakeRepo) NextDeadline(_ context.Context) (*time.Time, error) {
	if f.session == nil || f.session.Status != models.SessionStatusInProgress {
		return nil, nil
	}
	return f.session.NextDeadline, nil
}

type fakeMembers struct {
	adminUserID uuid.UUID
	members     []models.LeagueMember
	settings    models.LeagueSettings
}

func (f *fakeMembers) GetMemberForUser(_ context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error) {
	for i := range f.members {
		if f.members[i].LeagueID == leagueID && f.members[i].UserID == userID {
			m := f.members[i]
			return &m, nil
		}
	}
	return nil, errors.New("member not found")
}

func (f *fakeMembers) RequireAdmin(_ context.Context, _, userID uuid.UUID) error {
	if userID != f.adminUserID {
		return errors.New("not admin")
	}
	return nil
}

func (f *fakeMembers) ListMembers(_ context.Context, leagueID uuid.UUID) ([]models.LeagueMember, error) {
	out := make([]models.LeagueMember, len(f.members))
	copy(out, f.members)
	return out, nil
}

func (f *fakeMembers) GetLeagueSettings(_ context.Context, _ uuid.UUID) (models.LeagueSettings, error) {
	return f.settings, nil
}

type fakeContracts struct {
	inserted []roster.NewContract
	counts   map[uuid.UUID]roster.RosterCounts
	repo     *fakeRepo
}

func (f *fakeContracts) InsertContractTx(_ context.Context, _ pgx.Tx, nc roster.NewContract) (*models.Contract, error) {
	f.inserted = append(f.inserted, nc)
	if f.repo != nil {
		f.repo.taken[nc.PlayerID] = true
	}
	return &models.Contract{ID: uuid.New(), LeagueID: nc.LeagueID, MemberID: nc.MemberID, PlayerID: nc.PlayerID}, nil
}

func (f *fakeContracts) CountActiveByRoleTx(_ context.Context, _ pgx.Tx, memberID uuid.UUID) (roster.RosterCounts, error) {
	return f.counts[memberID], nil
}

type fakeOutbox struct {
	types    []string
	payloads []any
}

func (f *fakeOutbox) EmitTx(_ context.Context, _ pgx.Tx, _ uuid.UUID, eventType string, payload any) error {
	f.types = append(f.types, eventType)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeOutbox) contains(eventType string) bool {
	for _, t := range f.types {
		if t == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	app       *App
	repo      *fakeRepo
	members   *fakeMembers
	contracts *fakeContracts
	outbox    *fakeOutbox
	clock     *clockwork.FakeClock

	leagueID uuid.UUID
	users    []uuid.UUID // user IDs in turn order (budget desc)
	ids      []uuid.UUID // member IDs in turn order
}

// newFixture builds a league of three members with budgets 300/200/100,
// so the frozen turn order matches the slice order.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	leagueID := uuid.New()
	joined := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	budgets := []int{300, 200, 100}
	members := make([]models.LeagueMember, len(budgets))
	users := make([]uuid.UUID, len(budgets))
	ids := make([]uuid.UUID, len(budgets))
	for i, b := range budgets {
		users[i] = uuid.New()
		ids[i] = uuid.New()
		members[i] = models.LeagueMember{
			ID:       ids[i],
			LeagueID: leagueID,
			UserID:   users[i],
			Budget:   b,
			JoinedAt: joined.Add(time.Duration(i) * time.Minute),
		}
	}

	repo := &fakeRepo{
		players: make(map[uuid.UUID]*models.Player),
		taken:   make(map[uuid.UUID]bool),
		budgets: map[uuid.UUID]int{ids[0]: 300, ids[1]: 200, ids[2]: 100},
	}
	// A small bench of free agents so turns can open.
	for _, p := range []*models.Player{
		{ID: uuid.New(), Name: "Di Lorenzo", Team: "Napoli", Role: models.PlayerRoleDefender, Quotation: 15},
		{ID: uuid.New(), Name: "Barella", Team: "Inter", Role: models.PlayerRoleMidfielder, Quotation: 22},
		{ID: uuid.New(), Name: "Kean", Team: "Fiorentina", Role: models.PlayerRoleForward, Quotation: 18},
	} {
		repo.players[p.ID] = p
	}
	fm := &fakeMembers{
		adminUserID: users[0],
		members:     members,
		settings:    models.DefaultLeagueSettings(),
	}
	contracts := &fakeContracts{counts: make(map[uuid.UUID]roster.RosterCounts), repo: repo}
	outbox := &fakeOutbox{}
	clock := clockwork.NewFakeClockAt(joined.Add(time.Hour))

	return &fixture{
		app:       NewApp(repo, fm, contracts, outbox, clock),
		repo:      repo,
		members:   fm,
		contracts: contracts,
		outbox:    outbox,
		clock:     clock,
		leagueID:  leagueID,
		users:     users,
		ids:       ids,
	}
}

func (f *fixture) addFreePlayer(role models.PlayerRole) *models.Player {
	p := &models.Player{ID: uuid.New(), Name: "Osimhen", Team: "Napoli", Role: role, Quotation: 30}
	f.repo.players[p.ID] = p
	return p
}

// startWithAllReady runs create, start and the full ready barrier so the
// first nomination turn is open.
func (f *fixture) startWithAllReady(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Start(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	for _, userID := range f.users {
		_, err = f.app.Ready(ctx, f.leagueID, userID)
		require.NoError(t, err)
	}
	require.Equal(t, models.PhaseNomination, f.repo.session.Phase)
}

func TestCreateSessionFreezesTurnOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	// Budget descending: fixture members already sorted 300/200/100.
	assert.Equal(t, f.ids, session.TurnOrder)
	assert.Equal(t, models.SessionStatusNotStarted, session.Status)
	assert.Equal(t, models.PhaseWaitingReady, session.Phase)
	assert.Equal(t, defaultMaxPasses, session.Settings.MaxPasses)
}

func TestCreateSessionRejectsNonAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.CreateSession(context.Background(), f.leagueID, f.users[1])
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestCreateSessionRejectsSecondActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	_, err = f.app.CreateSession(ctx, f.leagueID, f.users[0])
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestReadyBarrierOpensFirstTurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Start(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	_, err = f.app.Ready(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Ready(ctx, f.leagueID, f.users[1])
	require.NoError(t, err)
	assert.Equal(t, models.PhaseWaitingReady, f.repo.session.Phase)

	_, err = f.app.Ready(ctx, f.leagueID, f.users[2])
	require.NoError(t, err)

	assert.Equal(t, models.PhaseNomination, f.repo.session.Phase)
	assert.Equal(t, 0, f.repo.session.TurnIndex)
	require.NotNil(t, f.repo.session.NextDeadline)
	wantDeadline := f.clock.Now().Add(time.Duration(f.repo.session.Settings.NominationTimeSec) * time.Second)
	assert.Equal(t, wantDeadline, *f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeTurnStarted))
}

func TestNominateOutOfTurnIsRejected(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)

	_, err := f.app.Nominate(context.Background(), f.leagueID, f.users[1], NominateRequest{
		PlayerID:   player.ID,
		OpeningBid: 1,
	})
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestNominateTakenPlayerIsRejected(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	f.repo.taken[player.ID] = true

	_, err := f.app.Nominate(context.Background(), f.leagueID, f.users[0], NominateRequest{
		PlayerID:   player.ID,
		OpeningBid: 1,
	})
	assert.ErrorIs(t, err, ErrPlayerTaken)
}

func TestNominateOpensBidding(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)

	_, err := f.app.Nominate(context.Background(), f.leagueID, f.users[0], NominateRequest{
		PlayerID:   player.ID,
		OpeningBid: 10,
	})
	require.NoError(t, err)

	s := f.repo.session
	assert.Equal(t, models.PhaseBidding, s.Phase)
	require.NotNil(t, s.Nomination)
	assert.Equal(t, player.ID, s.Nomination.PlayerID)
	assert.Equal(t, 10, s.Nomination.HighestBid)
	require.NotNil(t, s.Nomination.HighestBidder)
	assert.Equal(t, f.ids[0], *s.Nomination.HighestBidder)
	assert.True(t, f.outbox.contains(events.TypePlayerNominated))
}

func TestNominateDefaultsOpeningBidToQuotation(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)

	_, err := f.app.Nominate(context.Background(), f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID})
	require.NoError(t, err)
	assert.Equal(t, player.Quotation, f.repo.session.Nomination.OpeningBid)
	assert.Equal(t, player.Quotation, f.repo.session.Nomination.HighestBid)
}

func TestBidValidation(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)

	// The current highest bidder cannot raise their own bid.
	_, err = f.app.Bid(ctx, f.leagueID, f.users[0], BidRequest{Amount: 20})
	assert.ErrorIs(t, err, ErrInvalidBid)

	// Must clear highest + increment.
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidBid)

	// Over budget.
	_, err = f.app.Bid(ctx, f.leagueID, f.users[2], BidRequest{Amount: 150})
	assert.ErrorIs(t, err, ErrInsufficientBudget)

	// No roster slot left for the role.
	f.contracts.counts[f.ids[1]] = roster.RosterCounts{Forwards: f.members.settings.SlotsForwards}
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 11})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestBidRestartsTimer(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)

	f.clock.Advance(20 * time.Second)
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 11})
	require.NoError(t, err)

	s := f.repo.session
	assert.Equal(t, 11, s.Nomination.HighestBid)
	assert.Equal(t, f.ids[1], *s.Nomination.HighestBidder)
	wantDeadline := f.clock.Now().Add(time.Duration(s.Settings.BidTimeSec) * time.Second)
	assert.Equal(t, wantDeadline, *s.NextDeadline)
}

func TestPassLimitMarksDoneAndCompletesSession(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	f.repo.session.Settings.MaxPasses = 1
	ctx := context.Background()

	_, err := f.app.Pass(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	assert.True(t, f.repo.states[f.ids[0]].Done)
	assert.Equal(t, 1, f.repo.session.TurnIndex)

	_, err = f.app.Pass(ctx, f.leagueID, f.users[1])
	require.NoError(t, err)
	_, err = f.app.Pass(ctx, f.leagueID, f.users[2])
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusCompleted, f.repo.session.Status)
	assert.Nil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeSessionCompleted))
}

func TestHandleDeadlineIgnoresStaleWakeup(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)

	// Deadline still in the future: nothing should change.
	err := f.app.HandleDeadline(context.Background(), f.repo.session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseNomination, f.repo.session.Phase)
	assert.Equal(t, 0, f.repo.session.TurnIndex)
}

func TestHandleDeadlineResolvesBidding(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 25})
	require.NoError(t, err)

	f.clock.Advance(time.Duration(f.repo.session.Settings.BidTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))

	require.Len(t, f.contracts.inserted, 1)
	nc := f.contracts.inserted[0]
	assert.Equal(t, f.ids[1], nc.MemberID)
	assert.Equal(t, player.ID, nc.PlayerID)
	assert.Equal(t, 25, nc.Salary)
	assert.Equal(t, models.ContractOriginSvincolati, nc.Origin)

	assert.Equal(t, 175, f.repo.budgets[f.ids[1]])
	assert.Equal(t, models.PhaseAck, f.repo.session.Phase)
	assert.Equal(t, 0, f.repo.states[f.ids[1]].Passes)
	assert.True(t, f.outbox.contains(events.TypePlayerAssigned))
}

func TestAckBarrierAdvancesTurn(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)
	f.clock.Advance(time.Duration(f.repo.session.Settings.BidTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))
	require.Equal(t, models.PhaseAck, f.repo.session.Phase)

	for _, userID := range f.users {
		_, err = f.app.Ack(ctx, f.leagueID, userID)
		require.NoError(t, err)
	}

	assert.Equal(t, models.PhaseNomination, f.repo.session.Phase)
	assert.Equal(t, 1, f.repo.session.TurnIndex)
	assert.Nil(t, f.repo.session.Nomination)
}

func TestPauseAndResumeRestartTimer(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	ctx := context.Background()

	_, err := f.app.Pause(ctx, f.leagueID, f.users[0], "cena")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusPaused, f.repo.session.Status)
	assert.Nil(t, f.repo.session.NextDeadline)

	// Actions are rejected while paused.
	_, err = f.app.Pass(ctx, f.leagueID, f.users[0])
	assert.ErrorIs(t, err, ErrWrongStatus)

	f.clock.Advance(10 * time.Minute)
	_, err = f.app.Resume(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	s := f.repo.session
	assert.Equal(t, models.SessionStatusInProgress, s.Status)
	require.NotNil(t, s.NextDeadline)
	wantDeadline := f.clock.Now().Add(time.Duration(s.Settings.NominationTimeSec) * time.Second)
	assert.Equal(t, wantDeadline, *s.NextDeadline)
}

func TestDeadlineVoidsNominationWhenWinnerCannotPay(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 25})
	require.NoError(t, err)

	// Budget drained outside the session lock (trade, admin adjustment).
	f.repo.budgets[f.ids[1]] = 5

	f.clock.Advance(time.Duration(f.repo.session.Settings.BidTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))

	s := f.repo.session
	assert.Equal(t, models.SessionStatusInProgress, s.Status)
	assert.Equal(t, models.PhaseNomination, s.Phase)
	assert.Equal(t, 1, s.TurnIndex)
	assert.Nil(t, s.Nomination)
	require.NotNil(t, s.NextDeadline)
	assert.True(t, s.NextDeadline.After(f.clock.Now()))

	assert.Empty(t, f.contracts.inserted)
	assert.Equal(t, 5, f.repo.budgets[f.ids[1]])
	assert.False(t, f.outbox.contains(events.TypePlayerAssigned))

	var voided bool
	for _, p := range f.outbox.payloads {
		if bc, ok := p.(events.BiddingClosedPayload); ok && bc.Voided {
			voided = true
		}
	}
	assert.True(t, voided)
}

func TestReadyBarrierCompletesWhenPoolEmpty(t *testing.T) {
	f := newFixture(t)
	for id := range f.repo.players {
		f.repo.taken[id] = true
	}
	ctx := context.Background()

	_, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Start(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	for _, userID := range f.users {
		_, err = f.app.Ready(ctx, f.leagueID, userID)
		require.NoError(t, err)
	}

	assert.Equal(t, models.SessionStatusCompleted, f.repo.session.Status)
	assert.Nil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeSessionCompleted))
}

func TestExhaustedPoolCompletesAfterAck(t *testing.T) {
	f := newFixture(t)
	for id := range f.repo.players {
		f.repo.taken[id] = true
	}
	player := f.addFreePlayer(models.PlayerRoleForward)
	f.startWithAllReady(t)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)
	f.clock.Advance(time.Duration(f.repo.session.Settings.BidTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))
	require.Equal(t, models.PhaseAck, f.repo.session.Phase)

	// The last player just went under contract: the ack barrier must
	// close the session instead of opening an unplayable turn.
	for _, userID := range f.users {
		_, err = f.app.Ack(ctx, f.leagueID, userID)
		require.NoError(t, err)
	}

	assert.Equal(t, models.SessionStatusCompleted, f.repo.session.Status)
	assert.Nil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeSessionCompleted))
}

func TestForceReadyEmitsForcedBarrierEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Start(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Ready(ctx, f.leagueID, f.users[1])
	require.NoError(t, err)

	_, err = f.app.ForceReady(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	require.Equal(t, models.PhaseNomination, f.repo.session.Phase)

	var forced int
	for _, p := range f.outbox.payloads {
		if mr, ok := p.(events.MemberReadyPayload); ok && mr.Forced {
			forced++
		}
	}
	assert.Equal(t, 2, forced)
}

func TestForceAckEmitsForcedBarrierEvents(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)
	player := f.addFreePlayer(models.PlayerRoleForward)
	ctx := context.Background()

	_, err := f.app.Nominate(ctx, f.leagueID, f.users[0], NominateRequest{PlayerID: player.ID, OpeningBid: 10})
	require.NoError(t, err)
	f.clock.Advance(time.Duration(f.repo.session.Settings.BidTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))
	require.Equal(t, models.PhaseAck, f.repo.session.Phase)

	_, err = f.app.Ack(ctx, f.leagueID, f.users[2])
	require.NoError(t, err)
	_, err = f.app.ForceAck(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	assert.Equal(t, models.PhaseNomination, f.repo.session.Phase)
	assert.Equal(t, 1, f.repo.session.TurnIndex)

	var forced int
	for _, p := range f.outbox.payloads {
		if ma, ok := p.(events.MemberAckedPayload); ok && ma.Forced {
			forced++
		}
	}
	assert.Equal(t, 2, forced)
}

func TestGetStateOrdersMemberStatesByTurn(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)

	state, err := f.app.GetState(context.Background(), f.leagueID, f.users[0])
	require.NoError(t, err)
	require.Len(t, state.MemberStates, 3)
	for i, st := range state.MemberStates {
		assert.Equal(t, f.ids[i], st.MemberID)
	}
}

func TestGetStateRequiresMembership(t *testing.T) {
	f := newFixture(t)
	f.startWithAllReady(t)

	_, err := f.app.GetState(context.Background(), f.leagueID, uuid.New())
	assert.ErrorIs(t, err, ErrNotMember)

	state, err := f.app.GetState(context.Background(), f.leagueID, f.users[1])
	require.NoError(t, err)
	require.NotNil(t, state.CurrentTurnMember)
	assert.Equal(t, f.ids[0], *state.CurrentTurnMember)
	assert.Len(t, state.MemberStates, 3)
}
