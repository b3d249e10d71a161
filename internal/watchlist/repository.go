package watchlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements watchlist data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) AddEntry(ctx context.Context, leagueID, memberID, playerID uuid.UUID, priority int, note *string) (*models.WatchlistEntry, error) {
	var e models.WatchlistEntry
	var dbNote = sqlutil.ToNullString(note)
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fc_watchlist (id, league_id, member_id, player_id, priority, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, league_id, member_id, player_id, priority, note, created_at`,
		uuid.New(), leagueID, memberID, playerID, priority, dbNote,
	).Scan(&e.ID, &e.LeagueID, &e.MemberID, &e.PlayerID, &e.Priority, &dbNote, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	e.Note = sqlutil.FromNullString(dbNote)
	return &e, nil
}

func (r *Repository) RemoveEntry(ctx context.Context, memberID, playerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM fc_watchlist WHERE member_id = $1 AND player_id = $2`, memberID, playerID)
	if err != nil {
		return false, fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) ListEntries(ctx context.Context, memberID uuid.UUID) ([]models.WatchlistEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, league_id, member_id, player_id, priority, note, created_at
		FROM fc_watchlist
		WHERE member_id = $1
		ORDER BY priority, created_at`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchlistEntry
	for rows.Next() {
		var e models.WatchlistEntry
		var note = sqlutil.ToNullString(nil)
		if err := rows.Scan(&e.ID, &e.LeagueID, &e.MemberID, &e.PlayerID, &e.Priority, &note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Note = sqlutil.FromNullString(note)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
