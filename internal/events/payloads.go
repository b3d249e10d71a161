package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried through the outbox and fanned out to clients.
const (
	TypeSessionStarted   = "SessionStarted"
	TypeSessionPaused    = "SessionPaused"
	TypeSessionResumed   = "SessionResumed"
	TypeSessionCompleted = "SessionCompleted"
	TypeSessionCancelled = "SessionCancelled"
	TypeTurnStarted      = "TurnStarted"
	TypeTurnPassed       = "TurnPassed"
	TypeMemberReady      = "MemberReady"
	TypeMemberAcked      = "MemberAcked"
	TypePlayerNominated  = "PlayerNominated"
	TypeBidPlaced        = "BidPlaced"
	TypeBiddingClosed    = "BiddingClosed"
	TypePlayerAssigned   = "PlayerAssigned"
	TypeLotOpened        = "LotOpened"
	TypeLotClosed        = "LotClosed"
	TypeTradeProposed    = "TradeProposed"
	TypeTradeResolved    = "TradeResolved"
	TypePrizeAwarded     = "PrizeAwarded"
)

// DomainEvent is the wire envelope published to JetStream by the outbox
// relay and consumed by the gateway and the orchestrator.
type DomainEvent struct {
	EventID   string          `json:"event_id"`
	LeagueID  string          `json:"league_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// SessionStartedPayload announces a svincolati or auction session going live.
type SessionStartedPayload struct {
	SessionID   string      `json:"session_id"`
	SessionKind string      `json:"session_kind"` // "svincolati" | "auction"
	StartedAt   time.Time   `json:"started_at"`
	TurnOrder   []uuid.UUID `json:"turn_order,omitempty"`
}

// TurnStartedPayload opens a nomination window for one member.
type TurnStartedPayload struct {
	SessionID string    `json:"session_id"`
	MemberID  string    `json:"member_id"`
	TurnIndex int       `json:"turn_index"`
	StartedAt time.Time `json:"started_at"`
	TimeoutAt time.Time `json:"timeout_at"`
}

// TurnPassedPayload records a pass, voluntary or by timeout.
type TurnPassedPayload struct {
	SessionID string `json:"session_id"`
	MemberID  string `json:"member_id"`
	ByTimeout bool   `json:"by_timeout"`
	Passes    int    `json:"passes"`
	Done      bool   `json:"done"`
}

// MemberReadyPayload reports ready-barrier progress.
type MemberReadyPayload struct {
	SessionID  string `json:"session_id"`
	MemberID   string `json:"member_id"`
	ReadyCount int    `json:"ready_count"`
	Required   int    `json:"required"`
	Forced     bool   `json:"forced"`
}

// MemberAckedPayload reports acknowledge-barrier progress.
type MemberAckedPayload struct {
	SessionID string `json:"session_id"`
	MemberID  string `json:"member_id"`
	AckCount  int    `json:"ack_count"`
	Required  int    `json:"required"`
	Forced    bool   `json:"forced"`
}

// PlayerNominatedPayload announces a player going on the block.
type PlayerNominatedPayload struct {
	SessionID   string    `json:"session_id"`
	PlayerID    string    `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	NominatedBy string    `json:"nominated_by"`
	OpeningBid  int       `json:"opening_bid"`
	TimeoutAt   time.Time `json:"timeout_at"`
}

// BidPlacedPayload announces a new highest bid; every bid resets the timer.
type BidPlacedPayload struct {
	SessionID string    `json:"session_id"`
	PlayerID  string    `json:"player_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int       `json:"amount"`
	BidCount  int       `json:"bid_count"`
	TimeoutAt time.Time `json:"timeout_at"`
}

// BiddingClosedPayload closes the bidding window. Voided means the
// winner could no longer pay and no assignment follows.
type BiddingClosedPayload struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	Voided    bool   `json:"voided,omitempty"`
}

// PlayerAssignedPayload records a won player: contract created, budget debited.
type PlayerAssignedPayload struct {
	SessionID  string    `json:"session_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	WinnerID   string    `json:"winner_id"`
	Price      int       `json:"price"`
	AssignedAt time.Time `json:"assigned_at"`
}

// SessionPausedPayload carries the pause reason for display.
type SessionPausedPayload struct {
	SessionID string    `json:"session_id"`
	PausedAt  time.Time `json:"paused_at"`
	Reason    string    `json:"reason"`
}

// SessionResumedPayload restarts timers from the resume instant.
type SessionResumedPayload struct {
	SessionID string    `json:"session_id"`
	ResumedAt time.Time `json:"resumed_at"`
}

// SessionCompletedPayload closes a session for good.
type SessionCompletedPayload struct {
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// LotOpenedPayload announces a live-auction lot.
type LotOpenedPayload struct {
	SessionID  string    `json:"session_id"`
	LotID      string    `json:"lot_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	OpeningBid int       `json:"opening_bid"`
	TimeoutAt  time.Time `json:"timeout_at"`
}

// LotClosedPayload reports a lot outcome (SOLD, UNSOLD or VOIDED).
type LotClosedPayload struct {
	SessionID string     `json:"session_id"`
	LotID     string     `json:"lot_id"`
	PlayerID  string     `json:"player_id"`
	Status    string     `json:"status"`
	WinnerID  *uuid.UUID `json:"winner_id,omitempty"`
	Price     int        `json:"price"`
}

// TradeProposedPayload notifies the recipient of a new offer.
type TradeProposedPayload struct {
	TradeID      string `json:"trade_id"`
	FromMemberID string `json:"from_member_id"`
	ToMemberID   string `json:"to_member_id"`
}

// TradeResolvedPayload reports an offer's terminal state.
type TradeResolvedPayload struct {
	TradeID string `json:"trade_id"`
	Status  string `json:"status"`
}

// PrizeAwardedPayload reports a prize credit.
type PrizeAwardedPayload struct {
	PrizeID  string `json:"prize_id"`
	MemberID string `json:"member_id"`
	Amount   int    `json:"amount"`
}
