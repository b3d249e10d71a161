package roster

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements contract data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for callers composing transactions.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

const contractColumns = `id, league_id, member_id, player_id, salary, seasons, status, origin, created_at, updated_at`

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	if err := row.Scan(&c.ID, &c.LeagueID, &c.MemberID, &c.PlayerID, &c.Salary, &c.Seasons, &c.Status, &c.Origin, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetContract(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := scanContract(r.pool.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM fc_contracts WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return contract, nil
}

// GetRoster lists a member's active contracts with their players.
func (r *Repository) GetRoster(ctx context.Context, memberID uuid.UUID) ([]models.RosterEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.league_id, c.member_id, c.player_id, c.salary, c.seasons, c.status, c.origin, c.created_at, c.updated_at,
		       p.id, p.name, p.team, p.role, p.quotation, p.created_at, p.updated_at
		FROM fc_contracts c
		JOIN fc_players p ON p.id = c.player_id
		WHERE c.member_id = $1 AND c.status = 'ACTIVE'
		ORDER BY p.role, p.quotation DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	defer rows.Close()

	var entries []models.RosterEntry
	for rows.Next() {
		var e models.RosterEntry
		if err := rows.Scan(
			&e.Contract.ID, &e.Contract.LeagueID, &e.Contract.MemberID, &e.Contract.PlayerID,
			&e.Contract.Salary, &e.Contract.Seasons, &e.Contract.Status, &e.Contract.Origin,
			&e.Contract.CreatedAt, &e.Contract.UpdatedAt,
			&e.Player.ID, &e.Player.Name, &e.Player.Team, &e.Player.Role, &e.Player.Quotation,
			&e.Player.CreatedAt, &e.Player.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan roster entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) UpdateContract(ctx context.Context, id uuid.UUID, salary, seasons int) (*models.Contract, error) {
	contract, err := scanContract(r.pool.QueryRow(ctx, `
		UPDATE fc_contracts SET salary = $2, seasons = $3, updated_at = now()
		WHERE id = $1 AND status = 'ACTIVE'
		RETURNING `+contractColumns, id, salary, seasons))
	if err != nil {
		return nil, fmt.Errorf("failed to update contract: %w", err)
	}
	return contract, nil
}

// ReleaseContract marks the contract RELEASED, credits the refund and
// records the ledger movement, all in one transaction.
func (r *Repository) ReleaseContract(ctx context.Context, id uuid.UUID, refund int, note string) (*models.Contract, error) {
	var released *models.Contract
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		contract, err := scanContract(tx.QueryRow(ctx, `
			UPDATE fc_contracts SET status = 'RELEASED', updated_at = now()
			WHERE id = $1 AND status = 'ACTIVE'
			RETURNING `+contractColumns, id))
		if err != nil {
			return fmt.Errorf("failed to release contract: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE fc_league_members SET budget = budget + $2 WHERE id = $1`,
			contract.MemberID, refund); err != nil {
			return fmt.Errorf("failed to credit refund: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO fc_movements (id, league_id, member_id, player_id, type, amount, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), contract.LeagueID, contract.MemberID, contract.PlayerID,
			models.MovementTypeReleaseRefund, refund, note); err != nil {
			return fmt.Errorf("failed to record refund movement: %w", err)
		}

		released = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// InsertContractTx records an acquisition inside the caller's transaction.
// Session and trade flows use it so contract creation commits atomically
// with budget debits and ledger movements.
func (r *Repository) InsertContractTx(ctx context.Context, tx pgx.Tx, nc NewContract) (*models.Contract, error) {
	contract, err := scanContract(tx.QueryRow(ctx, `
		INSERT INTO fc_contracts (id, league_id, member_id, player_id, salary, seasons, status, origin)
		VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE', $7)
		RETURNING `+contractColumns,
		uuid.New(), nc.LeagueID, nc.MemberID, nc.PlayerID, nc.Salary, nc.Seasons, nc.Origin))
	if err != nil {
		return nil, fmt.Errorf("failed to insert contract: %w", err)
	}
	return contract, nil
}

// CountActiveByRoleTx counts a member's active contracts per role, inside
// the caller's transaction, for quota checks.
func (r *Repository) CountActiveByRoleTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (RosterCounts, error) {
	rows, err := tx.Query(ctx, `
		SELECT p.role, count(*)
		FROM fc_contracts c
		JOIN fc_players p ON p.id = c.player_id
		WHERE c.member_id = $1 AND c.status = 'ACTIVE'
		GROUP BY p.role`, memberID)
	if err != nil {
		return RosterCounts{}, fmt.Errorf("failed to count roster: %w", err)
	}
	defer rows.Close()

	var counts RosterCounts
	for rows.Next() {
		var role models.PlayerRole
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return RosterCounts{}, err
		}
		switch role {
		case models.PlayerRoleGoalkeeper:
			counts.Goalkeepers = n
		case models.PlayerRoleDefender:
			counts.Defenders = n
		case models.PlayerRoleMidfielder:
			counts.Midfielders = n
		case models.PlayerRoleForward:
			counts.Forwards = n
		}
	}
	return counts, rows.Err()
}

// GetActiveContractForPlayer returns the league's active contract for a
// player, if any.
func (r *Repository) GetActiveContractForPlayer(ctx context.Context, leagueID, playerID uuid.UUID) (*models.Contract, error) {
	contract, err := scanContract(r.pool.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM fc_contracts
		WHERE league_id = $1 AND player_id = $2 AND status = 'ACTIVE'`, leagueID, playerID))
	if err != nil {
		return nil, fmt.Errorf("failed to get active contract: %w", err)
	}
	return contract, nil
}
