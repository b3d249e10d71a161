package trades

import "github.com/google/uuid"

// CreateTradeRequest proposes a player/budget exchange to another member.
type CreateTradeRequest struct {
	ToMemberID         uuid.UUID   `json:"to_member_id"`
	OfferedPlayerIDs   []uuid.UUID `json:"offered_player_ids"`
	RequestedPlayerIDs []uuid.UUID `json:"requested_player_ids"`
	OfferedBudget      int         `json:"offered_budget"`
	RequestedBudget    int         `json:"requested_budget"`
}
