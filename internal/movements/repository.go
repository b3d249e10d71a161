package movements

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements ledger data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const movementColumns = `id, league_id, member_id, player_id, type, amount, note, created_at`

func scanMovement(row pgx.Row) (*models.Movement, error) {
	var m models.Movement
	var playerID = sqlutil.ToNullUUID(nil)
	if err := row.Scan(&m.ID, &m.LeagueID, &m.MemberID, &playerID, &m.Type, &m.Amount, &m.Note, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.PlayerID = sqlutil.FromNullUUID(playerID)
	return &m, nil
}

// ListByLeague returns the league ledger newest first.
func (r *Repository) ListByLeague(ctx context.Context, leagueID uuid.UUID, limit int) ([]models.Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+movementColumns+` FROM fc_movements
		WHERE league_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, leagueID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

// ListByMember returns one member's ledger newest first.
func (r *Repository) ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]models.Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+movementColumns+` FROM fc_movements
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list member movements: %w", err)
	}
	defer rows.Close()
	return collectMovements(rows)
}

func collectMovements(rows pgx.Rows) ([]models.Movement, error) {
	var out []models.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
