package svincolati

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"

	"github.com/fantacontratti/backend/internal/models"
	"github.com/fantacontratti/backend/internal/sqlutil"
)

// Repository implements svincolati session data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, league_id, status, phase, settings, turn_order, turn_index,
	nomination, next_deadline, started_at, completed_at, created_at, updated_at`

func scanSession(row pgx.Row) (*models.SvincolatiSession, error) {
	var s models.SvincolatiSession
	var settingsJSON []byte
	var nomination pqtype.NullRawMessage
	var nextDeadline, startedAt, completedAt = sqlutil.ToNullTime(nil), sqlutil.ToNullTime(nil), sqlutil.ToNullTime(nil)

	if err := row.Scan(&s.ID, &s.LeagueID, &s.Status, &s.Phase, &settingsJSON,
		&s.TurnOrder, &s.TurnIndex, &nomination, &nextDeadline,
		&startedAt, &completedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(settingsJSON, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session settings: %w", err)
	}
	var nom models.Nomination
	ok, err := sqlutil.FromNullJSON(nomination, &nom)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal nomination: %w", err)
	}
	if ok {
		s.Nomination = &nom
	}
	s.NextDeadline = sqlutil.FromNullTime(nextDeadline)
	s.StartedAt = sqlutil.FromNullTime(startedAt)
	s.CompletedAt = sqlutil.FromNullTime(completedAt)
	return &s, nil
}

// CreateSession inserts the session row and one state row per member.
func (r *Repository) CreateSession(ctx context.Context, session models.SvincolatiSession) (*models.SvincolatiSession, error) {
	settingsJSON, err := json.Marshal(session.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session settings: %w", err)
	}

	var created *models.SvincolatiSession
	err = sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		created, err = scanSession(tx.QueryRow(ctx, `
			INSERT INTO fc_svincolati_sessions
				(id, league_id, status, phase, settings, turn_order, turn_index)
			VALUES ($1, $2, $3, $4, $5, $6, 0)
			RETURNING `+sessionColumns,
			uuid.New(), session.LeagueID, session.Status, session.Phase,
			settingsJSON, session.TurnOrder))
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		for _, memberID := range session.TurnOrder {
			if _, err := tx.Exec(ctx, `
				INSERT INTO fc_svincolati_members (session_id, member_id)
				VALUES ($1, $2)`, created.ID, memberID); err != nil {
				return fmt.Errorf("failed to create member state: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.SvincolatiSession, error) {
	session, err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM fc_svincolati_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetActiveSessionForLeague returns the league's non-terminal session.
// pgx.ErrNoRows when the league has none.
func (r *Repository) GetActiveSessionForLeague(ctx context.Context, leagueID uuid.UUID) (*models.SvincolatiSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM fc_svincolati_sessions
		WHERE league_id = $1 AND status IN ('NOT_STARTED', 'IN_PROGRESS', 'PAUSED')
		ORDER BY created_at DESC
		LIMIT 1`, leagueID))
}

// ListMemberStates returns the per-member state rows; callers that need
// them in turn order sort against the session's frozen turn_order.
func (r *Repository) ListMemberStates(ctx context.Context, sessionID uuid.UUID) ([]models.SvincolatiMemberState, error) {
	return loadMemberStates(ctx, r.pool, sessionID, false)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadMemberStates(ctx context.Context, q querier, sessionID uuid.UUID, forUpdate bool) ([]models.SvincolatiMemberState, error) {
	query := `
		SELECT session_id, member_id, ready, acked, passes, done
		FROM fc_svincolati_members
		WHERE session_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member states: %w", err)
	}
	defer rows.Close()

	var states []models.SvincolatiMemberState
	for rows.Next() {
		var st models.SvincolatiMemberState
		if err := rows.Scan(&st.SessionID, &st.MemberID, &st.Ready, &st.Acked, &st.Passes, &st.Done); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// Mutate runs fn against the session and its member states with the
// session row locked, then persists whatever fn changed. All state
// transitions go through here so concurrent actions serialize per session.
func (r *Repository) Mutate(ctx context.Context, sessionID uuid.UUID, fn func(tx pgx.Tx, s *models.SvincolatiSession, states map[uuid.UUID]*models.SvincolatiMemberState) error) (*models.SvincolatiSession, error) {
	var mutated *models.SvincolatiSession
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		session, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM fc_svincolati_sessions WHERE id = $1 FOR UPDATE`, sessionID))
		if err != nil {
			return fmt.Errorf("failed to lock session: %w", err)
		}

		list, err := loadMemberStates(ctx, tx, sessionID, true)
		if err != nil {
			return err
		}
		states := make(map[uuid.UUID]*models.SvincolatiMemberState, len(list))
		for i := range list {
			states[list[i].MemberID] = &list[i]
		}

		if err := fn(tx, session, states); err != nil {
			return err
		}

		settingsJSON, err := json.Marshal(session.Settings)
		if err != nil {
			return fmt.Errorf("failed to marshal session settings: %w", err)
		}
		nomination, err := sqlutil.ToNullJSON(jsonOrNil(session.Nomination))
		if err != nil {
			return fmt.Errorf("failed to marshal nomination: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE fc_svincolati_sessions
			SET status = $2, phase = $3, settings = $4, turn_order = $5, turn_index = $6,
			    nomination = $7, next_deadline = $8, started_at = $9, completed_at = $10,
			    updated_at = now()
			WHERE id = $1`,
			session.ID, session.Status, session.Phase, settingsJSON,
			session.TurnOrder, session.TurnIndex, nomination,
			sqlutil.ToNullTime(session.NextDeadline),
			sqlutil.ToNullTime(session.StartedAt),
			sqlutil.ToNullTime(session.CompletedAt)); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		for _, st := range states {
			if _, err := tx.Exec(ctx, `
				UPDATE fc_svincolati_members
				SET ready = $3, acked = $4, passes = $5, done = $6
				WHERE session_id = $1 AND member_id = $2`,
				st.SessionID, st.MemberID, st.Ready, st.Acked, st.Passes, st.Done); err != nil {
				return fmt.Errorf("failed to persist member state: %w", err)
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

func jsonOrNil(n *models.Nomination) any {
	if n == nil {
		return nil
	}
	return n
}

// GetFreePlayerTx loads a player inside the caller's transaction,
// reporting ErrPlayerTaken when the league already holds an active
// contract for them.
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

// CountFreePlayersTx counts catalog players without an active contract
// in the league, inside the caller's transaction.
func (r *Repository) CountFreePlayersTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID) (int, error) {
	var n int
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM fc_players p
		WHERE NOT EXISTS (
			SELECT 1 FROM fc_contracts c
			WHERE c.league_id = $1 AND c.player_id = p.id AND c.status = 'ACTIVE'
		)`, leagueID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count free players: %w", err)
	}
	return n, nil
}

// DebitBudgetTx charges an acquisition against a member's budget and
// records the ledger movement, inside the caller's transaction.
func (r *Repository) DebitBudgetTx(ctx context.Context, tx pgx.Tx, leagueID, memberID, playerID uuid.UUID, amount int, movementType models.MovementType, note string) error {
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
		uuid.New(), leagueID, memberID, playerID, movementType, -amount, note); err != nil {
		return fmt.Errorf("failed to record movement: %w", err)
	}
	return nil
}

// FetchDueSessions returns IN_PROGRESS sessions whose deadline has passed.
func (r *Repository) FetchDueSessions(ctx context.Context, now time.Time) ([]models.SvincolatiSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM fc_svincolati_sessions
		WHERE status = 'IN_PROGRESS' AND next_deadline IS NOT NULL AND next_deadline <= $1
		ORDER BY next_deadline`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SvincolatiSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// NextDeadline returns the soonest pending deadline across all
// IN_PROGRESS sessions, or nil when none is scheduled.
func (r *Repository) NextDeadline(ctx context.Context) (*time.Time, error) {
	var deadline = sqlutil.ToNullTime(nil)
	if err := r.pool.QueryRow(ctx, `
		SELECT min(next_deadline) FROM fc_svincolati_sessions
		WHERE status = 'IN_PROGRESS' AND next_deadline IS NOT NULL`,
	).Scan(&deadline); err != nil {
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	return sqlutil.FromNullTime(deadline), nil
}
