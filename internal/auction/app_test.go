package auction

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
	session *models.AuctionSession
	lots    map[uuid.UUID]*models.AuctionLot
	players map[uuid.UUID]*models.Player
	taken   map[uuid.UUID]bool
	budgets map[uuid.UUID]int
}

func (f *fakeRepo) CreateSession(_ context.Context, session models.AuctionSession) (*models.AuctionSession, error) {
	session.ID = uuid.New()
	f.session = &session
	return f.session, nil
}

func (f *fakeRepo) GetSession(_ context.Context, id uuid.UUID) (*models.AuctionSession, error) {
	if f.session == nil || f.session.ID != id {
		return nil, pgx.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeRepo) GetActiveSessionForLeague(_ context.Context, leagueID uuid.UUID) (*models.AuctionSession, error) {
	if f.session == nil || f.session.LeagueID != leagueID {
		return nil, pgx.ErrNoRows
	}
	switch f.session.Status {
	case models.SessionStatusCompleted, models.SessionStatusCancelled:
		return nil, pgx.ErrNoRows
	}
	return f.session, nil
}

func (f *fakeRepo) ListClosedLots(_ context.Context, sessionID uuid.UUID) ([]models.AuctionLot, error) {
	var out []models.AuctionLot
	for _, lot := range f.lots {
		if lot.SessionID == sessionID && lot.Status != models.LotStatusOpen {
			out = append(out, *lot)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetLot(_ context.Context, id uuid.UUID) (*models.AuctionLot, error) {
	lot, ok := f.lots[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return lot, nil
}

func (f *fakeRepo) Mutate(_ context.Context, sessionID uuid.UUID, fn func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error) (*models.AuctionSession, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, pgx.ErrNoRows
	}
	var lot *models.AuctionLot
	if f.session.CurrentLotID != nil {
		lot = f.lots[*f.session.CurrentLotID]
	}
	if err := fn(nil, f.session, lot); err != nil {
		return nil, err
	}
	return f.session, nil
}

func (f *fakeRepo) InsertLotTx(_ context.Context, _ pgx.Tx, sessionID, playerID uuid.UUID, openingBid int, openedAt time.Time) (*models.AuctionLot, error) {
	lot := &models.AuctionLot{
		ID:         uuid.New(),
		SessionID:  sessionID,
		PlayerID:   playerID,
		OpeningBid: openingBid,
		Status:     models.LotStatusOpen,
		OpenedAt:   openedAt,
	}
	f.lots[lot.ID] = lot
	return lot, nil
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

func (f *fakeRepo) DebitBudgetTx(_ context.Context, _ pgx.Tx, _, memberID, _ uuid.UUID, amount int, _ string) error {
	if f.budgets[memberID] < amount {
		return ErrInsufficientBudget
	}
	f.budgets[memberID] -= amount
	return nil
}

func (f *fakeRepo) FetchDueSessions(_ context.Context, now time.Time) ([]models.AuctionSession, error) {
	if f.session != nil && f.session.Status == models.SessionStatusInProgress &&
		f.session.NextDeadline != nil && !f.session.NextDeadline.After(now) {
		return []models.AuctionSession{*f.session}, nil
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

func (f *fakeMembers) GetLeagueSettings(_ context.Context, _ uuid.UUID) (models.LeagueSettings, error) {
	return f.settings, nil
}

type fakeContracts struct {
	inserted []roster.NewContract
	counts   map[uuid.UUID]roster.RosterCounts
}

func (f *fakeContracts) InsertContractTx(_ context.Context, _ pgx.Tx, nc roster.NewContract) (*models.Contract, error) {
	f.inserted = append(f.inserted, nc)
	return &models.Contract{ID: uuid.New(), LeagueID: nc.LeagueID, MemberID: nc.MemberID, PlayerID: nc.PlayerID}, nil
}

func (f *fakeContracts) CountActiveByRoleTx(_ context.Context, _ pgx.Tx, memberID uuid.UUID) (roster.RosterCounts, error) {
	return f.counts[memberID], nil
}

type fakeOutbox struct {
	types []string
}

func (f *fakeOutbox) EmitTx(_ context.Context, _ pgx.Tx, _ uuid.UUID, eventType string, _ any) error {
	f.types = append(f.types, eventType)
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
	users    []uuid.UUID
	ids      []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	leagueID := uuid.New()
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	members := make([]models.LeagueMember, len(users))
	budgets := make(map[uuid.UUID]int, len(ids))
	for i := range users {
		members[i] = models.LeagueMember{ID: ids[i], LeagueID: leagueID, UserID: users[i], Budget: 500}
		budgets[ids[i]] = 500
	}

	repo := &fakeRepo{
		lots:    make(map[uuid.UUID]*models.AuctionLot),
		players: make(map[uuid.UUID]*models.Player),
		taken:   make(map[uuid.UUID]bool),
		budgets: budgets,
	}
	fm := &fakeMembers{adminUserID: users[0], members: members, settings: models.DefaultLeagueSettings()}
	contracts := &fakeContracts{counts: make(map[uuid.UUID]roster.RosterCounts)}
	outbox := &fakeOutbox{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 20, 21, 0, 0, 0, time.UTC))

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
	p := &models.Player{ID: uuid.New(), Name: "Lautaro", Team: "Inter", Role: role, Quotation: 34}
	f.repo.players[p.ID] = p
	return p
}

func (f *fixture) started(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.app.CreateSession(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	_, err = f.app.Start(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
}

func (f *fixture) openLot(t *testing.T, openingBid int) *models.Player {
	t.Helper()
	player := f.addFreePlayer(models.PlayerRoleForward)
	_, err := f.app.OpenLot(context.Background(), f.leagueID, f.users[0], OpenLotRequest{
		PlayerID:   player.ID,
		OpeningBid: openingBid,
	})
	require.NoError(t, err)
	return player
}

func TestOpenLotRules(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	ctx := context.Background()
	player := f.addFreePlayer(models.PlayerRoleForward)

	_, err := f.app.OpenLot(ctx, f.leagueID, f.users[1], OpenLotRequest{PlayerID: player.ID, OpeningBid: 1})
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = f.app.OpenLot(ctx, f.leagueID, f.users[0], OpenLotRequest{PlayerID: player.ID, OpeningBid: 1})
	require.NoError(t, err)
	require.NotNil(t, f.repo.session.CurrentLotID)
	require.NotNil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeLotOpened))

	// Only one lot at a time.
	other := f.addFreePlayer(models.PlayerRoleMidfielder)
	_, err = f.app.OpenLot(ctx, f.leagueID, f.users[0], OpenLotRequest{PlayerID: other.ID, OpeningBid: 1})
	assert.ErrorIs(t, err, ErrLotOpen)
}

func TestOpenLotDefaultsOpeningBidToQuotation(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	player := f.addFreePlayer(models.PlayerRoleForward)

	_, err := f.app.OpenLot(context.Background(), f.leagueID, f.users[0], OpenLotRequest{PlayerID: player.ID})
	require.NoError(t, err)

	lot := f.repo.lots[*f.repo.session.CurrentLotID]
	assert.Equal(t, player.Quotation, lot.OpeningBid)
}

func TestFirstBidMustReachOpening(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)
	ctx := context.Background()

	_, err := f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 9})
	assert.ErrorIs(t, err, ErrInvalidBid)

	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 10})
	require.NoError(t, err)

	lot := f.repo.lots[*f.repo.session.CurrentLotID]
	assert.Equal(t, 10, lot.HighestBid)
	assert.Equal(t, f.ids[1], *lot.HighestBidder)
	assert.Equal(t, 1, lot.BidCount)
}

func TestLaterBidsMustClearIncrement(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)
	ctx := context.Background()

	_, err := f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 10})
	require.NoError(t, err)

	// Highest bidder cannot outbid themselves.
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 20})
	assert.ErrorIs(t, err, ErrInvalidBid)

	_, err = f.app.Bid(ctx, f.leagueID, f.users[2], BidRequest{Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidBid)

	_, err = f.app.Bid(ctx, f.leagueID, f.users[2], BidRequest{Amount: 11})
	require.NoError(t, err)
}

func TestDeadlineSettlesSoldLot(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	player := f.openLot(t, 10)
	ctx := context.Background()

	_, err := f.app.Bid(ctx, f.leagueID, f.users[2], BidRequest{Amount: 42})
	require.NoError(t, err)

	f.clock.Advance(time.Duration(f.repo.session.Settings.LotTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))

	require.Len(t, f.contracts.inserted, 1)
	nc := f.contracts.inserted[0]
	assert.Equal(t, f.ids[2], nc.MemberID)
	assert.Equal(t, player.ID, nc.PlayerID)
	assert.Equal(t, 42, nc.Salary)
	assert.Equal(t, models.ContractOriginAuction, nc.Origin)
	assert.Equal(t, 458, f.repo.budgets[f.ids[2]])

	assert.Nil(t, f.repo.session.CurrentLotID)
	assert.Nil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeLotClosed))
}

func TestDeadlineMarksUnbidLotUnsold(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)
	ctx := context.Background()

	lotID := *f.repo.session.CurrentLotID
	f.clock.Advance(time.Duration(f.repo.session.Settings.LotTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))

	assert.Equal(t, models.LotStatusUnsold, f.repo.lots[lotID].Status)
	assert.Empty(t, f.contracts.inserted)
	assert.Nil(t, f.repo.session.CurrentLotID)
}

func TestDeadlineVoidsLotWhenWinnerCannotPay(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)
	ctx := context.Background()

	_, err := f.app.Bid(ctx, f.leagueID, f.users[2], BidRequest{Amount: 42})
	require.NoError(t, err)

	// Budget drained outside the session lock (trade, admin adjustment).
	f.repo.budgets[f.ids[2]] = 7

	lotID := *f.repo.session.CurrentLotID
	f.clock.Advance(time.Duration(f.repo.session.Settings.LotTimeSec+1) * time.Second)
	require.NoError(t, f.app.HandleDeadline(ctx, f.repo.session.ID))

	assert.Equal(t, models.LotStatusVoided, f.repo.lots[lotID].Status)
	assert.Empty(t, f.contracts.inserted)
	assert.Equal(t, 7, f.repo.budgets[f.ids[2]])
	assert.Equal(t, models.SessionStatusInProgress, f.repo.session.Status)
	assert.Nil(t, f.repo.session.CurrentLotID)
	assert.Nil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeLotClosed))
}

func TestPauseAndResumeRestartLotTimer(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)
	ctx := context.Background()

	_, err := f.app.Pause(ctx, f.leagueID, f.users[1], "pausa")
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = f.app.Pause(ctx, f.leagueID, f.users[0], "pausa cena")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusPaused, f.repo.session.Status)
	assert.Nil(t, f.repo.session.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeSessionPaused))

	// Bids are rejected while paused.
	_, err = f.app.Bid(ctx, f.leagueID, f.users[1], BidRequest{Amount: 10})
	assert.ErrorIs(t, err, ErrWrongStatus)

	f.clock.Advance(10 * time.Minute)
	_, err = f.app.Resume(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	s := f.repo.session
	assert.Equal(t, models.SessionStatusInProgress, s.Status)
	require.NotNil(t, s.NextDeadline)
	wantDeadline := f.clock.Now().Add(time.Duration(s.Settings.LotTimeSec) * time.Second)
	assert.Equal(t, wantDeadline, *s.NextDeadline)
	assert.True(t, f.outbox.contains(events.TypeSessionResumed))
}

func TestResumeWithoutOpenLotLeavesTimerClear(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	ctx := context.Background()

	_, err := f.app.Pause(ctx, f.leagueID, f.users[0], "")
	require.NoError(t, err)
	_, err = f.app.Resume(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusInProgress, f.repo.session.Status)
	assert.Nil(t, f.repo.session.NextDeadline)
}

func TestCompleteRequiresNoOpenLot(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)
	ctx := context.Background()

	_, err := f.app.Complete(ctx, f.leagueID, f.users[0])
	assert.ErrorIs(t, err, ErrLotOpen)

	_, err = f.app.VoidLot(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)

	_, err = f.app.Complete(ctx, f.leagueID, f.users[0])
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, f.repo.session.Status)
}

func TestCancelVoidsOpenLot(t *testing.T) {
	f := newFixture(t)
	f.started(t)
	f.openLot(t, 10)

	lotID := *f.repo.session.CurrentLotID
	_, err := f.app.Cancel(context.Background(), f.leagueID, f.users[0])
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusCancelled, f.repo.session.Status)
	assert.Equal(t, models.LotStatusVoided, f.repo.lots[lotID].Status)
	assert.True(t, f.outbox.contains(events.TypeSessionCancelled))
}
