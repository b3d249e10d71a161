package auction

import (
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/models"
)

// OpenLotRequest puts a player on the block at an opening bid.
type OpenLotRequest struct {
	PlayerID   uuid.UUID `json:"player_id"`
	OpeningBid int       `json:"opening_bid"`
}

// BidRequest raises the running bid on the open lot.
type BidRequest struct {
	Amount int `json:"amount"`
}

// PauseRequest carries the admin's pause reason for display.
type PauseRequest struct {
	Reason string `json:"reason"`
}

// SessionState is the snapshot sent on GET and on WebSocket join.
type SessionState struct {
	Session    models.AuctionSession `json:"session"`
	CurrentLot *models.AuctionLot    `json:"current_lot,omitempty"`
	ClosedLots []models.AuctionLot   `json:"closed_lots"`
}
