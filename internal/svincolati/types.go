package svincolati

import (
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/models"
)

// NominateRequest puts a free agent on the block at an opening bid.
type NominateRequest struct {
	PlayerID   uuid.UUID `json:"player_id"`
	OpeningBid int       `json:"opening_bid"`
}

// BidRequest raises the running bid on the nominated player.
type BidRequest struct {
	Amount int `json:"amount"`
}

// PauseRequest carries the admin's pause reason for display.
type PauseRequest struct {
	Reason string `json:"reason"`
}

// SessionState is the full snapshot sent on GET and on WebSocket join.
type SessionState struct {
	Session           models.SvincolatiSession       `json:"session"`
	MemberStates      []models.SvincolatiMemberState `json:"member_states"`
	CurrentTurnMember *uuid.UUID                     `json:"current_turn_member,omitempty"`
}
