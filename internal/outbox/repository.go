package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements outbox data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const insertEventSQL = `
INSERT INTO fc_outbox (id, league_id, event_type, payload)
VALUES ($1, $2, $3, $4)`

// InsertEventTx appends an event inside the caller's transaction so the
// event commits or rolls back with the domain mutation that produced it.
func (r *Repository) InsertEventTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, eventType string, payload json.RawMessage) error {
	if _, err := tx.Exec(ctx, insertEventSQL, uuid.New(), leagueID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// InsertEvent appends an event outside any caller transaction.
func (r *Repository) InsertEvent(ctx context.Context, leagueID uuid.UUID, eventType string, payload json.RawMessage) error {
	if _, err := r.pool.Exec(ctx, insertEventSQL, uuid.New(), leagueID, eventType, payload); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// ClaimAndSend drains up to limit unsent events in one transaction,
// invoking send for each and marking the delivered ones. Rows are locked
// with SKIP LOCKED so concurrent relays never double-publish.
func (r *Repository) ClaimAndSend(ctx context.Context, limit int32, send func(Event) error) (int, error) {
	sent := 0
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, league_id, event_type, payload, created_at
			FROM fc_outbox
			WHERE sent_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return fmt.Errorf("failed to claim outbox events: %w", err)
		}

		var claimed []Event
		for rows.Next() {
			var ev Event
			if err := rows.Scan(&ev.ID, &ev.LeagueID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan outbox event: %w", err)
			}
			claimed = append(claimed, ev)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		var delivered []uuid.UUID
		for _, ev := range claimed {
			if err := send(ev); err != nil {
				// Stop the batch; undelivered rows stay unsent and will be
				// retried on the next drain.
				break
			}
			delivered = append(delivered, ev.ID)
		}

		if len(delivered) > 0 {
			if _, err := tx.Exec(ctx,
				`UPDATE fc_outbox SET sent_at = now() WHERE id = ANY($1)`, delivered); err != nil {
				return fmt.Errorf("failed to mark outbox events sent: %w", err)
			}
		}
		sent = len(delivered)
		return nil
	})
	return sent, err
}
