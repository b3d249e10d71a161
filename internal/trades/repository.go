package trades

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

// Repository implements trade data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tradeColumns = `id, league_id, from_member_id, to_member_id, offered_player_ids, requested_player_ids,
	offered_budget, requested_budget, status, counter_of_id, created_at, updated_at`

func scanTrade(row pgx.Row) (*models.TradeOffer, error) {
	var t models.TradeOffer
	var counterOf = sqlutil.ToNullUUID(nil)
	if err := row.Scan(&t.ID, &t.LeagueID, &t.FromMemberID, &t.ToMemberID,
		&t.OfferedPlayerIDs, &t.RequestedPlayerIDs,
		&t.OfferedBudget, &t.RequestedBudget, &t.Status, &counterOf,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.CounterOfID = sqlutil.FromNullUUID(counterOf)
	return &t, nil
}

func (r *Repository) CreateTrade(ctx context.Context, offer models.TradeOffer) (*models.TradeOffer, error) {
	trade, err := scanTrade(r.pool.QueryRow(ctx, `
		INSERT INTO fc_trade_offers
			(id, league_id, from_member_id, to_member_id, offered_player_ids, requested_player_ids,
			 offered_budget, requested_budget, status, counter_of_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+tradeColumns,
		uuid.New(), offer.LeagueID, offer.FromMemberID, offer.ToMemberID,
		offer.OfferedPlayerIDs, offer.RequestedPlayerIDs,
		offer.OfferedBudget, offer.RequestedBudget, models.TradeStatusPending,
		sqlutil.ToNullUUID(offer.CounterOfID)))
	if err != nil {
		return nil, fmt.Errorf("failed to create trade offer: %w", err)
	}
	return trade, nil
}

func (r *Repository) GetTrade(ctx context.Context, id uuid.UUID) (*models.TradeOffer, error) {
	trade, err := scanTrade(r.pool.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM fc_trade_offers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get trade offer: %w", err)
	}
	return trade, nil
}

// ListForMember returns offers where the member is either side, newest first.
func (r *Repository) ListForMember(ctx context.Context, memberID uuid.UUID) ([]models.TradeOffer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM fc_trade_offers
		WHERE from_member_id = $1 OR to_member_id = $1
		ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trade offers: %w", err)
	}
	defer rows.Close()

	var offers []models.TradeOffer
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *t)
	}
	return offers, rows.Err()
}

// CloseTrade moves a PENDING offer to a terminal status.
func (r *Repository) CloseTrade(ctx context.Context, id uuid.UUID, status models.TradeStatus) (*models.TradeOffer, error) {
	trade, err := scanTrade(r.pool.QueryRow(ctx, `
		UPDATE fc_trade_offers SET status = $2, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+tradeColumns, id, status))
	if err != nil {
		return nil, ErrNotPending
	}
	return trade, nil
}

// ExecuteTrade performs the accepted exchange atomically: contract
// ownership swaps, budget transfers, ledger movements, and the offer's
// terminal status, with both member rows locked for the duration.
func (r *Repository) ExecuteTrade(ctx context.Context, tradeID uuid.UUID, emit func(tx pgx.Tx, offer *models.TradeOffer) error) (*models.TradeOffer, error) {
	var executed *models.TradeOffer
	err := sqlutil.RunTx(ctx, r.pool, func(tx pgx.Tx) error {
		offer, err := scanTrade(tx.QueryRow(ctx,
			`SELECT `+tradeColumns+` FROM fc_trade_offers WHERE id = $1 FOR UPDATE`, tradeID))
		if err != nil {
			return fmt.Errorf("failed to lock trade offer: %w", err)
		}
		if offer.Status != models.TradeStatusPending {
			return ErrNotPending
		}

		// Lock both members in a stable order to avoid deadlocks with
		// concurrent trades touching the same pair.
		first, second := offer.FromMemberID, offer.ToMemberID
		if second.String() < first.String() {
			first, second = second, first
		}
		members := map[uuid.UUID]*models.LeagueMember{}
		for _, id := range []uuid.UUID{first, second} {
			var m models.LeagueMember
			if err := tx.QueryRow(ctx, `
				SELECT id, league_id, user_id, team_name, role, budget, joined_at
				FROM fc_league_members WHERE id = $1 FOR UPDATE`, id,
			).Scan(&m.ID, &m.LeagueID, &m.UserID, &m.TeamName, &m.Role, &m.Budget, &m.JoinedAt); err != nil {
				return fmt.Errorf("failed to lock member: %w", err)
			}
			members[id] = &m
		}
		from := members[offer.FromMemberID]
		to := members[offer.ToMemberID]

		// Budget feasibility after the swap.
		if from.Budget-offer.OfferedBudget+offer.RequestedBudget < 0 ||
			to.Budget-offer.RequestedBudget+offer.OfferedBudget < 0 {
			return ErrInsufficientBudget
		}

		// Reassign offered players from → to and requested players to → from,
		// verifying ownership as we go.
		if err := reassignContracts(ctx, tx, offer.LeagueID, offer.OfferedPlayerIDs, from.ID, to.ID); err != nil {
			return err
		}
		if err := reassignContracts(ctx, tx, offer.LeagueID, offer.RequestedPlayerIDs, to.ID, from.ID); err != nil {
			return err
		}

		// Roster quota check for both sides after the swap.
		var settingsJSON []byte
		if err := tx.QueryRow(ctx, `SELECT settings FROM fc_leagues WHERE id = $1`, offer.LeagueID).Scan(&settingsJSON); err != nil {
			return fmt.Errorf("failed to load league settings: %w", err)
		}
		var settings models.LeagueSettings
		if err := json.Unmarshal(settingsJSON, &settings); err != nil {
			return fmt.Errorf("failed to unmarshal league settings: %w", err)
		}
		for _, memberID := range []uuid.UUID{from.ID, to.ID} {
			if err := checkQuotas(ctx, tx, memberID, settings); err != nil {
				return err
			}
		}

		// Budget transfers and ledger movements.
		fromDelta := offer.RequestedBudget - offer.OfferedBudget
		if fromDelta != 0 {
			if _, err := tx.Exec(ctx,
				`UPDATE fc_league_members SET budget = budget + $2 WHERE id = $1`, from.ID, fromDelta); err != nil {
				return fmt.Errorf("failed to transfer budget: %w", err)
			}
			if _, err := tx.Exec(ctx,
				`UPDATE fc_league_members SET budget = budget + $2 WHERE id = $1`, to.ID, -fromDelta); err != nil {
				return fmt.Errorf("failed to transfer budget: %w", err)
			}
		}
		note := fmt.Sprintf("Scambio tra %s e %s", from.TeamName, to.TeamName)
		for memberID, delta := range map[uuid.UUID]int{from.ID: fromDelta, to.ID: -fromDelta} {
			if _, err := tx.Exec(ctx, `
				INSERT INTO fc_movements (id, league_id, member_id, type, amount, note)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.New(), offer.LeagueID, memberID, models.MovementTypeTrade, delta, note); err != nil {
				return fmt.Errorf("failed to record trade movement: %w", err)
			}
		}

		offer, err = scanTrade(tx.QueryRow(ctx, `
			UPDATE fc_trade_offers SET status = 'ACCEPTED', updated_at = now()
			WHERE id = $1
			RETURNING `+tradeColumns, tradeID))
		if err != nil {
			return fmt.Errorf("failed to close trade offer: %w", err)
		}

		if err := emit(tx, offer); err != nil {
			return err
		}

		executed = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return executed, nil
}

// reassignContracts moves the active contracts for playerIDs from one
// member to another, failing if any player is not owned by the source.
func reassignContracts(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, playerIDs []uuid.UUID, fromID, toID uuid.UUID) error {
	for _, playerID := range playerIDs {
		tag, err := tx.Exec(ctx, `
			UPDATE fc_contracts SET member_id = $4, origin = 'TRADE', updated_at = now()
			WHERE league_id = $1 AND player_id = $2 AND member_id = $3 AND status = 'ACTIVE'`,
			leagueID, playerID, fromID, toID)
		if err != nil {
			return fmt.Errorf("failed to reassign contract: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPlayerNotOwned
		}
	}
	return nil
}

// checkQuotas verifies a member's post-trade roster fits the league slots.
func checkQuotas(ctx context.Context, tx pgx.Tx, memberID uuid.UUID, settings models.LeagueSettings) error {
	rows, err := tx.Query(ctx, `
		SELECT p.role, count(*)
		FROM fc_contracts c
		JOIN fc_players p ON p.id = c.player_id
		WHERE c.member_id = $1 AND c.status = 'ACTIVE'
		GROUP BY p.role`, memberID)
	if err != nil {
		return fmt.Errorf("failed to count roster: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role models.PlayerRole
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return err
		}
		if n > settings.RosterSlots(role) {
			return ErrQuotaExceeded
		}
	}
	return rows.Err()
}
