package models

import (
	"time"

	"github.com/google/uuid"
)

type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "PENDING"
	TradeStatusAccepted  TradeStatus = "ACCEPTED"
	TradeStatusRejected  TradeStatus = "REJECTED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusCountered TradeStatus = "COUNTERED"
)

// TradeOffer is a proposed player/budget exchange between two members.
// Offered* flows from the proposer, Requested* flows back from the recipient.
type TradeOffer struct {
	ID                 uuid.UUID   `json:"id"`
	LeagueID           uuid.UUID   `json:"league_id"`
	FromMemberID       uuid.UUID   `json:"from_member_id"`
	ToMemberID         uuid.UUID   `json:"to_member_id"`
	OfferedPlayerIDs   []uuid.UUID `json:"offered_player_ids"`
	RequestedPlayerIDs []uuid.UUID `json:"requested_player_ids"`
	OfferedBudget      int         `json:"offered_budget"`
	RequestedBudget    int         `json:"requested_budget"`
	Status             TradeStatus `json:"status"`
	CounterOfID        *uuid.UUID  `json:"counter_of_id,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}
