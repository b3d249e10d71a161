package models

import (
	"time"

	"github.com/google/uuid"
)

type LotStatus string

const (
	LotStatusOpen   LotStatus = "OPEN"
	LotStatusSold   LotStatus = "SOLD"
	LotStatusUnsold LotStatus = "UNSOLD"
	LotStatusVoided LotStatus = "VOIDED"
)

// AuctionSettings holds JSONB configuration for a live auction,
// snapshotted from the league settings at session creation.
type AuctionSettings struct {
	LotTimeSec      int `json:"lot_time_sec"`
	MinBidIncrement int `json:"min_bid_increment"`
}

// AuctionSession is an admin-run live auction (season-start roster build).
type AuctionSession struct {
	ID           uuid.UUID       `json:"id"`
	LeagueID     uuid.UUID       `json:"league_id"`
	Status       SessionStatus   `json:"status"`
	Settings     AuctionSettings `json:"settings"`
	CurrentLotID *uuid.UUID      `json:"current_lot_id,omitempty"`
	NextDeadline *time.Time      `json:"next_deadline,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AuctionLot is one player on the block during a live auction.
type AuctionLot struct {
	ID            uuid.UUID  `json:"id"`
	SessionID     uuid.UUID  `json:"session_id"`
	PlayerID      uuid.UUID  `json:"player_id"`
	OpeningBid    int        `json:"opening_bid"`
	HighestBid    int        `json:"highest_bid"`
	HighestBidder *uuid.UUID `json:"highest_bidder,omitempty"`
	BidCount      int        `json:"bid_count"`
	Status        LotStatus  `json:"status"`
	OpenedAt      time.Time  `json:"opened_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}
