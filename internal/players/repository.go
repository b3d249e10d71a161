package players

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
)

// Repository implements player catalog data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const playerColumns = `id, name, team, role, quotation, created_at, updated_at`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(&p.ID, &p.Name, &p.Team, &p.Role, &p.Quotation, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	player, err := scanPlayer(r.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM fc_players WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// ListPlayers returns catalog entries matching the filter.
func (r *Repository) ListPlayers(ctx context.Context, filter ListFilter) ([]models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM fc_players WHERE 1=1`
	var args []any

	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Team != "" {
		args = append(args, filter.Team)
		query += fmt.Sprintf(" AND team = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND lower(name) LIKE $%d", len(args))
	}
	query += " ORDER BY quotation DESC, name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	return collectPlayers(rows)
}

// ListFreeAgents returns players with no ACTIVE contract in the league.
func (r *Repository) ListFreeAgents(ctx context.Context, leagueID uuid.UUID, filter ListFilter) ([]models.Player, error) {
	query := `
		SELECT ` + playerColumns + ` FROM fc_players p
		WHERE NOT EXISTS (
			SELECT 1 FROM fc_contracts c
			WHERE c.player_id = p.id AND c.league_id = $1 AND c.status = 'ACTIVE'
		)`
	args := []any{leagueID}

	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND p.role = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND lower(p.name) LIKE $%d", len(args))
	}
	query += " ORDER BY p.quotation DESC, p.name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list free agents: %w", err)
	}
	defer rows.Close()

	return collectPlayers(rows)
}

// UpsertPlayer inserts or refreshes a catalog entry, keyed on name+team.
func (r *Repository) UpsertPlayer(ctx context.Context, req UpsertPlayerRequest) (*models.Player, error) {
	player, err := scanPlayer(r.pool.QueryRow(ctx, `
		INSERT INTO fc_players (id, name, team, role, quotation)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, team) DO UPDATE
		SET role = EXCLUDED.role, quotation = EXCLUDED.quotation, updated_at = now()
		RETURNING `+playerColumns,
		uuid.New(), req.Name, req.Team, req.Role, req.Quotation))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert player: %w", err)
	}
	return player, nil
}

func collectPlayers(rows pgx.Rows) ([]models.Player, error) {
	var players []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}
