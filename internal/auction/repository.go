package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements live-auction data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, league_id, status, settings, current_lot_id,
	next_deadline, started_at, completed_at, created_at, updated_at`

const lotColumns = `id, session_id, player_id, opening_bid, highest_bid,
	highest_bidder, bid_count, status, opened_at, closed_at`

func scanSession(row pgx.Row) (*models.AuctionSession, error) {
	var s models.AuctionSession
	var settingsJSON []byte
	var currentLot = sqlutil.ToNullUUID(nil)
	var nextDeadline, startedAt, completedAt = sqlutil.ToNullTime(nil), sqlutil.ToNullTime(nil), sqlutil.ToNullTime(nil)

	if err := row.Scan(&s.ID, &s.LeagueID, &s.Status, &settingsJSON, &currentLot,
		&nextDeadline, &startedAt, &completedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settingsJSON, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auction settings: %w", err)
	}
	s.CurrentLotID = sqlutil.FromNullUUID(currentLot)
	s.NextDeadline = sqlutil.FromNullTime(nextDeadline)
	s.StartedAt = sqlutil.FromNullTime(startedAt)
	s.CompletedAt = sqlutil.FromNullTime(completedAt)
	return &s, nil
}

func scanLot(row pgx.Row) (*models.AuctionLot, error) {
	var l models.AuctionLot
	var bidder = sqlutil.ToNullUUID(nil)
	var closedAt = sqlutil.ToNullTime(nil)
	if err := row.Scan(&l.ID, &l.SessionID, &l.PlayerID, &l.OpeningBid, &l.HighestBid,
		&bidder, &l.BidCount, &l.Status, &l.OpenedAt, &closedAt); err != nil {
		return nil, err
	}
	l.HighestBidder = sqlutil.FromNullUUID(bidder)
	l.ClosedAt = sqlutil.FromNullTime(closedAt)
	return &l, nil
}

func (r *Repository) CreateSession(ctx context.Context, session models.AuctionSession) (*models.AuctionSession, error) {
	settingsJSON, err := json.Marshal(session.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auction settings: %w", err)
	}
	created, err := scanSession(r.pool.QueryRow(ctx, `
		INSERT INTO fc_auction_sessions (id, league_id, status, settings)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sessionColumns,
		uuid.New(), session.LeagueID, session.Status, settingsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create auction session: %w", err)
	}
	return created, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.AuctionSession, error) {
	session, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM fc_auction_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get auction session: %w", err)
	}
	return session, nil
}

// GetActiveSessionForLeague returns the league's non-terminal auction.
// pgx.ErrNoRows when the league has none.
func (r *Repository) GetActiveSessionForLeague(ctx context.Context, leagueID uuid.UUID) (*models.AuctionSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM fc_auction_sessions
		WHERE league_id = $1 AND status IN ('NOT_STARTED', 'IN_PROGRESS', 'PAUSED')
		ORDER BY created_at DESC
		LIMIT 1`, leagueID))
}

// ListClosedLots returns finished lots newest first.
func (r *Repository) ListClosedLots(ctx context.Context, sessionID uuid.UUID) ([]models.AuctionLot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+lotColumns+` FROM fc_auction_lots
		WHERE session_id = $1 AND status <> 'OPEN'
		ORDER BY closed_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer rows.Close()

	var lots []models.AuctionLot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, *l)
	}
	return lots, rows.Err()
}

func (r *Repository) GetLot(ctx context.Context, id uuid.UUID) (*models.AuctionLot, error) {
	lot, err := scanLot(r.pool.QueryRow(ctx,
		`SELECT `+lotColumns+` FROM fc_auction_lots WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	return lot, nil
}

// Mutate runs fn with the session row locked and the current lot, if
// any, loaded alongside. All transitions serialize per session.
func (r *Repository) Mutate(ctx context.Context, sessionID uuid.UUID, fn func(tx pgx.Tx, s *models.AuctionSession, lot *models.AuctionLot) error) (*models.AuctionSession, error) {
	var mutated *models.AuctionSession
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		session, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM fc_auction_sessions WHERE id = $1 FOR UPDATE`, sessionID))
		if err != nil {
			return fmt.Errorf("failed to lock auction session: %w", err)
		}

		var lot *models.AuctionLot
		if session.CurrentLotID != nil {
			lot, err = scanLot(tx.QueryRow(ctx,
				`SELECT `+lotColumns+` FROM fc_auction_lots WHERE id = $1 FOR UPDATE`, *session.CurrentLotID))
			if err != nil {
				return fmt.Errorf("failed to lock lot: %w", err)
			}
		}

		if err := fn(tx, session, lot); err != nil {
			return err
		}

		settingsJSON, err := json.Marshal(session.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal auction settings: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE fc_auction_sessions
			SET status = $2, settings = $3, current_lot_id = $4, next_deadline = $5,
			    started_at = $6, completed_at = $7, updated_at = now()
			WHERE id = $1`,
			session.ID, session.Status, settingsJSON,
			sqlutil.ToNullUUID(session.CurrentLotID),
			sqlutil.ToNullTime(session.NextDeadline),
			sqlutil.ToNullTime(session.StartedAt),
			sqlutil.ToNullTime(session.CompletedAt)); err != nil {
			return fmt.Errorf("failed to persist auction session: %w", err)
		}

		if lot != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE fc_auction_lots
				SET highest_bid = $2, highest_bidder = $3, bid_count = $4,
				    status = $5, closed_at = $6
				WHERE id = $1`,
				lot.ID, lot.HighestBid, sqlutil.ToNullUUID(lot.HighestBidder),
				lot.BidCount, lot.Status, sqlutil.ToNullTime(lot.ClosedAt)); err != nil {
				return fmt.Errorf("failed to persist lot: %w", err)
			}
		}

		mutated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

// InsertLotTx opens a new lot inside the caller's transaction.
func (r *Repository) InsertLotTx(ctx context.Context, tx pgx.Tx, sessionID, playerID uuid.UUID, openingBid int, openedAt time.Time) (*models.AuctionLot, error) {
	lot, err := scanLot(tx.QueryRow(ctx, `
		INSERT INTO fc_auction_lots
			(id, session_id, player_id, opening_bid, highest_bid, status, opened_at)
		VALUES ($1, $2, $3, $4, 0, 'OPEN', $5)
		RETURNING `+lotColumns,
		uuid.New(), sessionID, playerID, openingBid, openedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert lot: %w", err)
	}
	return lot, nil
}

// GetFreePlayerTx loads a player, reporting ErrPlayerTaken when the
// league already holds an active contract for them.
func (r *Repository) GetFreePlayerTx(ctx context.Context, tx pgx.Tx, leagueID, playerID uuid.UUID) (*models.Player, error) {
	player, err := getPlayerTx(ctx, tx, playerID)
	if err != nil {
		return nil, err
	}
	var taken bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM fc_contracts
			WHERE league_id = $1 AND player_id = $2 AND status = 'ACTIVE'
		)`, leagueID, playerID).Scan(&taken); err != nil {
		return nil, fmt.Errorf("failed to check contract: %w", err)
	}
	if taken {
		return nil, ErrPlayerTaken
	}
	return player, nil
}

// GetPlayerTx loads a player row inside the caller's transaction.
func (r *Repository) GetPlayerTx(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*models.Player, error) {
	return getPlayerTx(ctx, tx, playerID)
}

func getPlayerTx(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*models.Player, error) {
	var p models.Player
	if err := tx.QueryRow(ctx, `
		SELECT id, name, team, role, quotation, created_at, updated_at
		FROM fc_players WHERE id = $1`, playerID,
	).Scan(&p.ID, &p.Name, &p.Team, &p.Role, &p.Quotation, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

// GetMemberBudgetTx reads a member's budget with the row locked.
func (r *Repository) GetMemberBudgetTx(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (int, error) {
	var budget int
	if err := tx.QueryRow(ctx,
		`SELECT budget FROM fc_league_members WHERE id = $1 FOR UPDATE`, memberID,
	).Scan(&budget); err != nil {
		return 0, fmt.Errorf("failed to get member budget: %w", err)
	}
	return budget, nil
}

// DebitBudgetTx charges a lot win and records the ledger movement.
func (r *Repository) DebitBudgetTx(ctx context.Context, tx pgx.Tx, leagueID, memberID, playerID uuid.UUID, amount int, note string) error {
	budget, err := r.GetMemberBudgetTx(ctx, tx, memberID)
	if err != nil {
		return err
	}
	if budget < amount {
		return ErrInsufficientBudget
	}
	if _, err := tx.Exec(ctx,
		`UPDATE fc_league_members SET budget = budget - $2 WHERE id = $1`, memberID, amount); err != nil {
		return fmt.Errorf("failed to debit budget: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO fc_movements (id, league_id, member_id, player_id, type, amount, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(), leagueID, memberID, playerID, models.MovementTypeAuctionWin, -amount, note); err != nil {
		return fmt.Errorf("failed to record movement: %w", err)
	}
	return nil
}

// FetchDueSessions returns IN_PROGRESS auctions whose lot timer has passed.
func (r *Repository) FetchDueSessions(ctx context.Context, now time.Time) ([]models.AuctionSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM fc_auction_sessions
		WHERE status = 'IN_PROGRESS' AND next_deadline IS NOT NULL AND next_deadline <= $1
		ORDER BY next_deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due auctions: %w", err)
	}
	defer rows.Close()

	var sessions []models.AuctionSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// NextDeadline returns the soonest pending lot deadline, or nil.
func (r *Repository) NextDeadline(ctx context.Context) (*time.Time, error) {
	var deadline = sqlutil.ToNullTime(nil)
	if err := r.pool.QueryRow(ctx, `
		SELECT min(next_deadline) FROM fc_auction_sessions
		WHERE status = 'IN_PROGRESS' AND next_deadline IS NOT NULL`,
	).Scan(&deadline); err != nil {
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return sqlutil.FromNullTime(deadline), nil
}
