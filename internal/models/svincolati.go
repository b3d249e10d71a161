package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is shared by svincolati and live-auction sessions.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "NOT_STARTED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusPaused     SessionStatus = "PAUSED"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// SvincolatiPhase is the phase within the current turn.
type SvincolatiPhase string

const (
	PhaseWaitingReady SvincolatiPhase = "WAITING_READY"
	PhaseNomination   SvincolatiPhase = "NOMINATION"
	PhaseBidding      SvincolatiPhase = "BIDDING"
	PhaseAck          SvincolatiPhase = "ACK"
)

// SvincolatiSettings holds JSONB timing and bidding configuration,
// snapshotted from the league settings at session creation.
type SvincolatiSettings struct {
	NominationTimeSec int `json:"nomination_time_sec"`
	BidTimeSec        int `json:"bid_time_sec"`
	AckTimeSec        int `json:"ack_time_sec"`
	MinBidIncrement   int `json:"min_bid_increment"`
	// MaxPasses marks a member done after passing this many consecutive turns.
	MaxPasses int `json:"max_passes"`
}

// Nomination is the player currently on the block, with the running bid.
// Stored as a nullable JSONB column on the session row.
type Nomination struct {
	PlayerID      uuid.UUID  `json:"player_id"`
	NominatedBy   uuid.UUID  `json:"nominated_by"`
	OpeningBid    int        `json:"opening_bid"`
	HighestBid    int        `json:"highest_bid"`
	HighestBidder *uuid.UUID `json:"highest_bidder,omitempty"`
	BidCount      int        `json:"bid_count"`
	OpenedAt      time.Time  `json:"opened_at"`
}

// SvincolatiSession is one free-agent draft phase for a league.
// TurnOrder holds member IDs sorted by budget descending at start time.
type SvincolatiSession struct {
	ID           uuid.UUID          `json:"id"`
	LeagueID     uuid.UUID          `json:"league_id"`
	Status       SessionStatus      `json:"status"`
	Phase        SvincolatiPhase    `json:"phase"`
	Settings     SvincolatiSettings `json:"settings"`
	TurnOrder    []uuid.UUID        `json:"turn_order"`
	TurnIndex    int                `json:"turn_index"`
	Nomination   *Nomination        `json:"nomination,omitempty"`
	NextDeadline *time.Time         `json:"next_deadline,omitempty"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// SvincolatiMemberState tracks per-member barrier and pass bookkeeping
// for one session.
type SvincolatiMemberState struct {
	SessionID uuid.UUID `json:"session_id"`
	MemberID  uuid.UUID `json:"member_id"`
	Ready     bool      `json:"ready"`
	Acked     bool      `json:"acked"`
	Passes    int       `json:"passes"`
	Done      bool      `json:"done"`
}

// CurrentTurnMember returns the member whose turn it is to nominate.
func (s *SvincolatiSession) CurrentTurnMember() (uuid.UUID, bool) {
	if len(s.TurnOrder) == 0 || s.TurnIndex < 0 || s.TurnIndex >= len(s.TurnOrder) {
		return uuid.Nil, false
	}
	return s.TurnOrder[s.TurnIndex], true
}
