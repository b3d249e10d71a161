package models

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementTypeTrade         MovementType = "TRADE"
	MovementTypeAuctionWin    MovementType = "AUCTION_WIN"
	MovementTypeSvincolatiWin MovementType = "SVINCOLATI_WIN"
	MovementTypeReleaseRefund MovementType = "RELEASE_REFUND"
	MovementTypePrize         MovementType = "PRIZE"
	MovementTypeAdminAdjust   MovementType = "ADMIN_ADJUST"
)

// Movement is one row of the append-only budget/player ledger.
// Amount is signed: credits are positive, debits negative.
type Movement struct {
	ID        uuid.UUID    `json:"id"`
	LeagueID  uuid.UUID    `json:"league_id"`
	MemberID  uuid.UUID    `json:"member_id"`
	PlayerID  *uuid.UUID   `json:"player_id,omitempty"`
	Type      MovementType `json:"type"`
	Amount    int          `json:"amount"`
	Note      string       `json:"note"`
	CreatedAt time.Time    `json:"created_at"`
}
