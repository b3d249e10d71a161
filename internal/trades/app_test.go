package trades

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantacontratti/backend/internal/events"
	"github.com/fantacontratti/backend/internal/models"
)

type fakeRepo struct {
	offers map[uuid.UUID]*models.TradeOffer
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{offers: make(map[uuid.UUID]*models.TradeOffer)}
}

func (f *fakeRepo) CreateTrade(_ context.Context, offer models.TradeOffer) (*models.TradeOffer, error) {
	offer.ID = uuid.New()
	offer.Status = models.TradeStatusPending
	f.offers[offer.ID] = &offer
	return &offer, nil
}

func (f *fakeRepo) GetTrade(_ context.Context, id uuid.UUID) (*models.TradeOffer, error) {
	offer, ok := f.offers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *offer
	return &copied, nil
}

func (f *fakeRepo) ListForMember(_ context.Context, memberID uuid.UUID) ([]models.TradeOffer, error) {
	var out []models.TradeOffer
	for _, offer := range f.offers {
		if offer.FromMemberID == memberID || offer.ToMemberID == memberID {
			out = append(out, *offer)
		}
	}
	return out, nil
}

func (f *fakeRepo) CloseTrade(_ context.Context, id uuid.UUID, status models.TradeStatus) (*models.TradeOffer, error) {
	offer, ok := f.offers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	offer.Status = status
	copied := *offer
	return &copied, nil
}

func (f *fakeRepo) ExecuteTrade(_ context.Context, tradeID uuid.UUID, emit func(tx pgx.Tx, offer *models.TradeOffer) error) (*models.TradeOffer, error) {
	offer, ok := f.offers[tradeID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	offer.Status = models.TradeStatusAccepted
	if err := emit(nil, offer); err != nil {
		return nil, err
	}
	copied := *offer
	return &copied, nil
}

type fakeMembers struct {
	members []models.LeagueMember
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

type fakeOutbox struct {
	types []string
}

func (f *fakeOutbox) EmitTx(_ context.Context, _ pgx.Tx, _ uuid.UUID, eventType string, _ any) error {
	f.types = append(f.types, eventType)
	return nil
}

func (f *fakeOutbox) Emit(_ context.Context, _ uuid.UUID, eventType string, _ any) error {
	f.types = append(f.types, eventType)
	return nil
}

type fixture struct {
	app    *App
	repo   *fakeRepo
	outbox *fakeOutbox

	leagueID uuid.UUID
	users    []uuid.UUID
	ids      []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	leagueID := uuid.New()
	users := []uuid.UUID{uuid.New(), uuid.New()}
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	members := make([]models.LeagueMember, len(users))
	for i := range users {
		members[i] = models.LeagueMember{ID: ids[i], LeagueID: leagueID, UserID: users[i], Budget: 500}
	}

	repo := newFakeRepo()
	outbox := &fakeOutbox{}
	return &fixture{
		app:      NewApp(repo, &fakeMembers{members: members}, outbox),
		repo:     repo,
		outbox:   outbox,
		leagueID: leagueID,
		users:    users,
		ids:      ids,
	}
}

func (f *fixture) propose(t *testing.T) *models.TradeOffer {
	t.Helper()
	offer, err := f.app.Propose(context.Background(), f.leagueID, f.users[0], CreateTradeRequest{
		ToMemberID:    f.ids[1],
		OfferedBudget: 20,
	})
	require.NoError(t, err)
	return offer
}

func TestProposeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.app.Propose(ctx, f.leagueID, f.users[0], CreateTradeRequest{ToMemberID: f.ids[0], OfferedBudget: 10})
	assert.ErrorIs(t, err, ErrSelfTrade)

	_, err = f.app.Propose(ctx, f.leagueID, f.users[0], CreateTradeRequest{ToMemberID: f.ids[1]})
	assert.ErrorIs(t, err, ErrEmptyTrade)

	_, err = f.app.Propose(ctx, f.leagueID, f.users[0], CreateTradeRequest{ToMemberID: f.ids[1], OfferedBudget: -5})
	assert.ErrorIs(t, err, ErrEmptyTrade)

	_, err = f.app.Propose(ctx, f.leagueID, uuid.New(), CreateTradeRequest{ToMemberID: f.ids[1], OfferedBudget: 10})
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestProposeEmitsEvent(t *testing.T) {
	f := newFixture(t)

	offer := f.propose(t)
	assert.Equal(t, models.TradeStatusPending, offer.Status)
	assert.Contains(t, f.outbox.types, events.TypeTradeProposed)
}

func TestOnlyRecipientMayAccept(t *testing.T) {
	f := newFixture(t)
	offer := f.propose(t)
	ctx := context.Background()

	_, err := f.app.Accept(ctx, f.leagueID, f.users[0], offer.ID)
	assert.ErrorIs(t, err, ErrNotYourOffer)

	accepted, err := f.app.Accept(ctx, f.leagueID, f.users[1], offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, accepted.Status)
	assert.Contains(t, f.outbox.types, events.TypeTradeResolved)
}

func TestOnlyProposerMayCancel(t *testing.T) {
	f := newFixture(t)
	offer := f.propose(t)
	ctx := context.Background()

	_, err := f.app.Cancel(ctx, f.leagueID, f.users[1], offer.ID)
	assert.ErrorIs(t, err, ErrNotYourOffer)

	cancelled, err := f.app.Cancel(ctx, f.leagueID, f.users[0], offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCancelled, cancelled.Status)
}

func TestClosedOfferCannotBeActedOn(t *testing.T) {
	f := newFixture(t)
	offer := f.propose(t)
	ctx := context.Background()

	_, err := f.app.Reject(ctx, f.leagueID, f.users[1], offer.ID)
	require.NoError(t, err)

	_, err = f.app.Accept(ctx, f.leagueID, f.users[1], offer.ID)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestCounterReversesSides(t *testing.T) {
	f := newFixture(t)
	offer := f.propose(t)

	counter, err := f.app.Counter(context.Background(), f.leagueID, f.users[1], offer.ID, CreateTradeRequest{
		RequestedBudget: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, f.ids[1], counter.FromMemberID)
	assert.Equal(t, f.ids[0], counter.ToMemberID)
	assert.Equal(t, models.TradeStatusPending, counter.Status)
	require.NotNil(t, counter.CounterOfID)
	assert.Equal(t, offer.ID, *counter.CounterOfID)

	original, err := f.repo.GetTrade(context.Background(), offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusCountered, original.Status)
}

func TestListReturnsOffersForCaller(t *testing.T) {
	f := newFixture(t)
	f.propose(t)

	offers, err := f.app.List(context.Background(), f.leagueID, f.users[1])
	require.NoError(t, err)
	assert.Len(t, offers, 1)
}
