package leagues

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fantacontratti/backend/internal/models"
)

type fakeRepo struct {
	leagues map[uuid.UUID]*models.League
	members map[uuid.UUID]*models.LeagueMember
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leagues: make(map[uuid.UUID]*models.League),
		members: make(map[uuid.UUID]*models.LeagueMember),
	}
}

func (f *fakeRepo) CreateLeague(_ context.Context, req CreateLeagueRequest, adminUserID uuid.UUID, inviteCode string, settings models.LeagueSettings) (*models.League, error) {
	league := &models.League{
		ID:         uuid.New(),
		Name:       req.Name,
		Season:     req.Season,
		InviteCode: inviteCode,
		AdminID:    adminUserID,
		Settings:   settings,
		Status:     models.LeagueStatusActive,
	}
	f.leagues[league.ID] = league
	member := &models.LeagueMember{
		ID:       uuid.New(),
		LeagueID: league.ID,
		UserID:   adminUserID,
		TeamName: req.TeamName,
		Role:     models.MemberRoleAdmin,
		Budget:   settings.StartingBudget,
	}
	f.members[member.ID] = member
	return league, nil
}

func (f *fakeRepo) GetLeague(_ context.Context, id uuid.UUID) (*models.League, error) {
	league, ok := f.leagues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return league, nil
}

func (f *fakeRepo) GetLeagueByInviteCode(_ context.Context, code string) (*models.League, error) {
	for _, league := range f.leagues {
		if league.InviteCode == code {
			return league, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRepo) GetLeaguesByUser(_ context.Context, userID uuid.UUID) ([]models.League, error) {
	var out []models.League
	for _, m := range f.members {
		if m.UserID == userID {
			out = append(out, *f.leagues[m.LeagueID])
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateLeagueSettings(_ context.Context, id uuid.UUID, settings models.LeagueSettings) (*models.League, error) {
	league, ok := f.leagues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	league.Settings = settings
	return league, nil
}

func (f *fakeRepo) DeleteLeague(_ context.Context, id uuid.UUID) error {
	delete(f.leagues, id)
	return nil
}

func (f *fakeRepo) CreateMember(_ context.Context, leagueID, userID uuid.UUID, teamName string, budget int) (*models.LeagueMember, error) {
	member := &models.LeagueMember{
		ID:       uuid.New(),
		LeagueID: leagueID,
		UserID:   userID,
		TeamName: teamName,
		Role:     models.MemberRoleManager,
		Budget:   budget,
	}
	f.members[member.ID] = member
	return member, nil
}

func (f *fakeRepo) GetMember(_ context.Context, id uuid.UUID) (*models.LeagueMember, error) {
	member, ok := f.members[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return member, nil
}

func (f *fakeRepo) GetMemberByUser(_ context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error) {
	for _, m := range f.members {
		if m.LeagueID == leagueID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeRepo) GetMembersByLeague(_ context.Context, leagueID uuid.UUID) ([]models.LeagueMember, error) {
	var out []models.LeagueMember
	for _, m := range f.members {
		if m.LeagueID == leagueID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeRepo) AdjustMemberBudget(_ context.Context, memberID uuid.UUID, amount int, _ models.MovementType, _ string) (*models.LeagueMember, error) {
	member, ok := f.members[memberID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if member.Budget+amount < 0 {
		return nil, ErrInsufficientBudget
	}
	member.Budget += amount
	return member, nil
}

func TestCreateLeagueValidation(t *testing.T) {
	app := NewApp(newFakeRepo())
	ctx := context.Background()
	userID := uuid.New()

	_, err := app.CreateLeague(ctx, userID, CreateLeagueRequest{Name: "", TeamName: "Real Sarno"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	bad := models.DefaultLeagueSettings()
	bad.StartingBudget = 0
	_, err = app.CreateLeague(ctx, userID, CreateLeagueRequest{Name: "Lega", TeamName: "Real Sarno", Settings: &bad})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	league, err := app.CreateLeague(ctx, userID, CreateLeagueRequest{Name: "Lega", Season: "2026-27", TeamName: "Real Sarno"})
	require.NoError(t, err)
	assert.Len(t, league.InviteCode, 8)
	assert.Equal(t, models.DefaultLeagueSettings(), league.Settings)
}

func TestCreatorBecomesAdminWithStartingBudget(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)
	userID := uuid.New()

	league, err := app.CreateLeague(context.Background(), userID, CreateLeagueRequest{Name: "Lega", TeamName: "Real Sarno"})
	require.NoError(t, err)

	member, err := app.GetMemberForUser(context.Background(), league.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberRoleAdmin, member.Role)
	assert.Equal(t, league.Settings.StartingBudget, member.Budget)
}

func TestJoinLeague(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)
	ctx := context.Background()
	adminID := uuid.New()

	league, err := app.CreateLeague(ctx, adminID, CreateLeagueRequest{Name: "Lega", TeamName: "Real Sarno"})
	require.NoError(t, err)

	joinerID := uuid.New()
	member, err := app.JoinLeague(ctx, joinerID, JoinLeagueRequest{InviteCode: league.InviteCode, TeamName: "Longobarda"})
	require.NoError(t, err)
	assert.Equal(t, models.MemberRoleManager, member.Role)
	assert.Equal(t, league.Settings.StartingBudget, member.Budget)

	// Invite codes are case-insensitive on input but joining twice fails.
	_, err = app.JoinLeague(ctx, joinerID, JoinLeagueRequest{InviteCode: league.InviteCode, TeamName: "Longobarda"})
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = app.JoinLeague(ctx, uuid.New(), JoinLeagueRequest{InviteCode: "NOPE1234", TeamName: "Atletico"})
	assert.Error(t, err)
}

func TestRequireAdmin(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)
	ctx := context.Background()
	adminID := uuid.New()

	league, err := app.CreateLeague(ctx, adminID, CreateLeagueRequest{Name: "Lega", TeamName: "Real Sarno"})
	require.NoError(t, err)
	managerID := uuid.New()
	_, err = app.JoinLeague(ctx, managerID, JoinLeagueRequest{InviteCode: league.InviteCode, TeamName: "Longobarda"})
	require.NoError(t, err)

	assert.NoError(t, app.RequireAdmin(ctx, league.ID, adminID))
	assert.ErrorIs(t, app.RequireAdmin(ctx, league.ID, managerID), ErrNotAdmin)
	assert.ErrorIs(t, app.RequireAdmin(ctx, league.ID, uuid.New()), ErrNotMember)
}

func TestAdjustMemberBudget(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)
	ctx := context.Background()
	adminID := uuid.New()

	league, err := app.CreateLeague(ctx, adminID, CreateLeagueRequest{Name: "Lega", TeamName: "Real Sarno"})
	require.NoError(t, err)
	managerID := uuid.New()
	member, err := app.JoinLeague(ctx, managerID, JoinLeagueRequest{InviteCode: league.InviteCode, TeamName: "Longobarda"})
	require.NoError(t, err)

	_, err = app.AdjustMemberBudget(ctx, league.ID, managerID, member.ID, AdjustBudgetRequest{Amount: 50})
	assert.ErrorIs(t, err, ErrNotAdmin)

	updated, err := app.AdjustMemberBudget(ctx, league.ID, adminID, member.ID, AdjustBudgetRequest{Amount: -100, Note: "multa"})
	require.NoError(t, err)
	assert.Equal(t, league.Settings.StartingBudget-100, updated.Budget)
}

func TestUpdateSettings(t *testing.T) {
	repo := newFakeRepo()
	app := NewApp(repo)
	ctx := context.Background()
	adminID := uuid.New()

	league, err := app.CreateLeague(ctx, adminID, CreateLeagueRequest{Name: "Lega", TeamName: "Real Sarno"})
	require.NoError(t, err)

	settings := league.Settings
	settings.BidTimeSec = 15
	updated, err := app.UpdateSettings(ctx, league.ID, adminID, UpdateSettingsRequest{Settings: settings})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Settings.BidTimeSec)

	settings.MinBidIncrement = 0
	_, err = app.UpdateSettings(ctx, league.ID, adminID, UpdateSettingsRequest{Settings: settings})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
