package prizes

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

var ErrAlreadyAwarded = errors.New("prize already awarded")

// Repository implements prize data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const prizeColumns = `id, league_id, name, description, amount, awarded_to, awarded_at, created_at`

func scanPrize(row pgx.Row) (*models.Prize, error) {
	var p models.Prize
	var awardedTo = sqlutil.ToNullUUID(nil)
	var awardedAt = sqlutil.ToNullTime(nil)
	if err := row.Scan(&p.ID, &p.LeagueID, &p.Name, &p.Description, &p.Amount, &awardedTo, &awardedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.AwardedTo = sqlutil.FromNullUUID(awardedTo)
	p.AwardedAt = sqlutil.FromNullTime(awardedAt)
	return &p, nil
}

func (r *Repository) CreatePrize(ctx context.Context, leagueID uuid.UUID, name, description string, amount int) (*models.Prize, error) {
	prize, err := scanPrize(r.pool.QueryRow(ctx, `
		INSERT INTO fc_prizes (id, league_id, name, description, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+prizeColumns,
		uuid.New(), leagueID, name, description, amount))
	if err != nil {
		return nil, fmt.Errorf("failed to create prize: %w", err)
	}
	return prize, nil
}

func (r *Repository) GetPrize(ctx context.Context, id uuid.UUID) (*models.Prize, error) {
	prize, err := scanPrize(r.pool.QueryRow(ctx, `SELECT `+prizeColumns+` FROM fc_prizes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get prize: %w", err)
	}
	return prize, nil
}

func (r *Repository) ListPrizes(ctx context.Context, leagueID uuid.UUID) ([]models.Prize, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+prizeColumns+` FROM fc_prizes WHERE league_id = $1 ORDER BY created_at`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prizes: %w", err)
	}
	defer rows.Close()

	var prizes []models.Prize
	for rows.Next() {
		p, err := scanPrize(rows)
		if err != nil {
			return nil, err
		}
		prizes = append(prizes, *p)
	}
	return prizes, rows.Err()
}

func (r *Repository) DeletePrize(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM fc_prizes WHERE id = $1 AND awarded_to IS NULL`, id); err != nil {
		return fmt.Errorf("failed to delete prize: %w", err)
	}
	return nil
}

// AwardPrize marks the prize awarded, credits the winner's budget and
// records the ledger movement, all in one transaction. emit appends the
// outbox event inside the same transaction.
func (r *Repository) AwardPrize(ctx context.Context, prizeID, memberID uuid.UUID, emit func(tx pgx.Tx, prize *models.Prize) error) (*models.Prize, error) {
	var awarded *models.Prize
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		prize, err := scanPrize(tx.QueryRow(ctx,
			`SELECT `+prizeColumns+` FROM fc_prizes WHERE id = $1 FOR UPDATE`, prizeID))
		if err != nil {
			return fmt.Errorf("failed to lock prize: %w", err)
		}
		if prize.AwardedTo != nil {
			return ErrAlreadyAwarded
		}

		prize, err = scanPrize(tx.QueryRow(ctx, `
			UPDATE fc_prizes SET awarded_to = $2, awarded_at = now() WHERE id = $1
			RETURNING `+prizeColumns, prizeID, memberID))
		if err != nil {
			return fmt.Errorf("failed to award prize: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE fc_league_members SET budget = budget + $2 WHERE id = $1`,
			memberID, prize.Amount); err != nil {
			return fmt.Errorf("failed to credit prize: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO fc_movements (id, league_id, member_id, type, amount, note)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), prize.LeagueID, memberID, models.MovementTypePrize, prize.Amount,
			fmt.Sprintf("Premio: %s", prize.Name)); err != nil {
			return fmt.Errorf("failed to record prize movement: %w", err)
		}

		if err := emit(tx, prize); err != nil {
			return err
		}

		awarded = prize
		return nil
	})
	if err != nil {
		return nil, err
	}
	return awarded, nil
}
