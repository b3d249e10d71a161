package leagues

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements league and membership data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leagueColumns = `id, name, season, invite_code, admin_id, settings, status, created_at, updated_at`

func scanLeague(row pgx.Row) (*models.League, error) {
	var l models.League
	var settings []byte
	if err := row.Scan(&l.ID, &l.Name, &l.Season, &l.InviteCode, &l.AdminID, &settings, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settings, &l.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal league settings: %w", err)
	}
	return &l, nil
}

// CreateLeague inserts the league and its admin member in one transaction.
func (r *Repository) CreateLeague(ctx context.Context, req CreateLeagueRequest, adminUserID uuid.UUID, inviteCode string, settings models.LeagueSettings) (*models.League, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal league settings: %w", err)
	}

	var league *models.League
	err = sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO fc_leagues (id, name, season, invite_code, admin_id, settings, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+leagueColumns,
			uuid.New(), req.Name, req.Season, inviteCode, adminUserID, settingsJSON, models.LeagueStatusActive)
		l, err := scanLeague(row)
		if err != nil {
			return fmt.Errorf("failed to create league: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO fc_league_members (id, league_id, user_id, team_name, role, budget)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), l.ID, adminUserID, req.TeamName, models.MemberRoleAdmin, settings.StartingBudget)
		if err != nil {
			return fmt.Errorf("failed to create admin member: %w", err)
		}

		league = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return league, nil
}

func (r *Repository) GetLeague(ctx context.Context, id uuid.UUID) (*models.League, error) {
	league, err := scanLeague(r.pool.QueryRow(ctx, `SELECT `+leagueColumns+` FROM fc_leagues WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}
	return league, nil
}

func (r *Repository) GetLeagueByInviteCode(ctx context.Context, code string) (*models.League, error) {
	league, err := scanLeague(r.pool.QueryRow(ctx, `SELECT `+leagueColumns+` FROM fc_leagues WHERE invite_code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get league by invite code: %w", err)
	}
	return league, nil
}

// GetLeaguesByUser lists every league the user is a member of.
func (r *Repository) GetLeaguesByUser(ctx context.Context, userID uuid.UUID) ([]models.League, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.name, l.season, l.invite_code, l.admin_id, l.settings, l.status, l.created_at, l.updated_at
		FROM fc_leagues l
		JOIN fc_league_members m ON m.league_id = l.id
		WHERE m.user_id = $1
		ORDER BY l.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []models.League
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, err
		}
		leagues = append(leagues, *l)
	}
	return leagues, rows.Err()
}

func (r *Repository) UpdateLeagueSettings(ctx context.Context, id uuid.UUID, settings models.LeagueSettings) (*models.League, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal league settings: %w", err)
	}
	league, err := scanLeague(r.pool.QueryRow(ctx, `
		UPDATE fc_leagues SET settings = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+leagueColumns, id, settingsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to update league settings: %w", err)
	}
	return league, nil
}

func (r *Repository) DeleteLeague(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM fc_leagues WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete league: %w", err)
	}
	return nil
}

const memberColumns = `id, league_id, user_id, team_name, role, budget, joined_at`

func scanMember(row pgx.Row) (*models.LeagueMember, error) {
	var m models.LeagueMember
	if err := row.Scan(&m.ID, &m.LeagueID, &m.UserID, &m.TeamName, &m.Role, &m.Budget, &m.JoinedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateMember(ctx context.Context, leagueID, userID uuid.UUID, teamName string, budget int) (*models.LeagueMember, error) {
	member, err := scanMember(r.pool.QueryRow(ctx, `
		INSERT INTO fc_league_members (id, league_id, user_id, team_name, role, budget)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+memberColumns,
		uuid.New(), leagueID, userID, teamName, models.MemberRoleManager, budget))
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

func (r *Repository) GetMember(ctx context.Context, id uuid.UUID) (*models.LeagueMember, error) {
	member, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM fc_league_members WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func (r *Repository) GetMemberByUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error) {
	member, err := scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM fc_league_members WHERE league_id = $1 AND user_id = $2`, leagueID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get member by user: %w", err)
	}
	return member, nil
}

func (r *Repository) GetMembersByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.LeagueMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM fc_league_members WHERE league_id = $1 ORDER BY joined_at`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.LeagueMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// AdjustMemberBudget applies a signed budget delta and records the
// matching ledger movement in one transaction. The member row is locked
// so the non-negative check cannot race.
func (r *Repository) AdjustMemberBudget(ctx context.Context, memberID uuid.UUID, amount int, movementType models.MovementType, note string) (*models.LeagueMember, error) {
	var member *models.LeagueMember
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		m, err := scanMember(tx.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM fc_league_members WHERE id = $1 FOR UPDATE`, memberID))
		if err != nil {
			return fmt.Errorf("failed to lock member: %w", err)
		}
		if m.Budget+amount < 0 {
			return ErrInsufficientBudget
		}

		m2, err := scanMember(tx.QueryRow(ctx, `
			UPDATE fc_league_members SET budget = budget + $2 WHERE id = $1
			RETURNING `+memberColumns, memberID, amount))
		if err != nil {
			return fmt.Errorf("failed to adjust budget: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO fc_movements (id, league_id, member_id, type, amount, note)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), m.LeagueID, memberID, movementType, amount, note)
		if err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}

		member = m2
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}
