package models

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusActive   ContractStatus = "ACTIVE"
	ContractStatusReleased ContractStatus = "RELEASED"
	ContractStatusExpired  ContractStatus = "EXPIRED"
)

// ContractOrigin records how a player landed on a roster.
type ContractOrigin string

const (
	ContractOriginAuction    ContractOrigin = "AUCTION"
	ContractOriginSvincolati ContractOrigin = "SVINCOLATI"
	ContractOriginTrade      ContractOrigin = "TRADE"
	ContractOriginAdmin      ContractOrigin = "ADMIN"
)

// Contract binds a player to a league member with a salary and duration.
// At most one ACTIVE contract may exist per player per league.
type Contract struct {
	ID        uuid.UUID      `json:"id"`
	LeagueID  uuid.UUID      `json:"league_id"`
	MemberID  uuid.UUID      `json:"member_id"`
	PlayerID  uuid.UUID      `json:"player_id"`
	Salary    int            `json:"salary"`
	Seasons   int            `json:"seasons"`
	Status    ContractStatus `json:"status"`
	Origin    ContractOrigin `json:"origin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RosterEntry is a contract joined with its player for roster listings.
type RosterEntry struct {
	Contract Contract `json:"contract"`
	Player   Player   `json:"player"`
}
