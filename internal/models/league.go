package models

import (
	"time"

	"github.com/google/uuid"
)

type LeagueStatus string

const (
	LeagueStatusActive   LeagueStatus = "ACTIVE"
	LeagueStatusArchived LeagueStatus = "ARCHIVED"
)

// MemberRole distinguishes league admins from plain managers.
type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "ADMIN"
	MemberRoleManager MemberRole = "MANAGER"
)

// LeagueSettings holds JSONB configuration for a league.
type LeagueSettings struct {
	StartingBudget    int `json:"starting_budget"`
	SlotsGoalkeepers  int `json:"slots_goalkeepers"`
	SlotsDefenders    int `json:"slots_defenders"`
	SlotsMidfielders  int `json:"slots_midfielders"`
	SlotsForwards     int `json:"slots_forwards"`
	MinBidIncrement   int `json:"min_bid_increment"`
	NominationTimeSec int `json:"nomination_time_sec"`
	BidTimeSec        int `json:"bid_time_sec"`
	AckTimeSec        int `json:"ack_time_sec"`
	LotTimeSec        int `json:"lot_time_sec"`
}

// DefaultLeagueSettings mirrors the classic fantacalcio setup: 25-man roster,
// 500 credits, one-credit raises.
func DefaultLeagueSettings() LeagueSettings {
	return LeagueSettings{
		StartingBudget:    500,
		SlotsGoalkeepers:  3,
		SlotsDefenders:    8,
		SlotsMidfielders:  8,
		SlotsForwards:     6,
		MinBidIncrement:   1,
		NominationTimeSec: 60,
		BidTimeSec:        30,
		AckTimeSec:        45,
		LotTimeSec:        30,
	}
}

// RosterSlots returns the slot quota for a player role.
func (s LeagueSettings) RosterSlots(role PlayerRole) int {
	switch role {
	case PlayerRoleGoalkeeper:
		return s.SlotsGoalkeepers
	case PlayerRoleDefender:
		return s.SlotsDefenders
	case PlayerRoleMidfielder:
		return s.SlotsMidfielders
	case PlayerRoleForward:
		return s.SlotsForwards
	}
	return 0
}

// League represents a fantacalcio league.
type League struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	Season     string         `json:"season"`
	InviteCode string         `json:"invite_code"`
	AdminID    uuid.UUID      `json:"admin_id"`
	Settings   LeagueSettings `json:"settings"`
	Status     LeagueStatus   `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// LeagueMember is a user's participation record within one league,
// carrying budget and team identity.
type LeagueMember struct {
	ID       uuid.UUID  `json:"id"`
	LeagueID uuid.UUID  `json:"league_id"`
	UserID   uuid.UUID  `json:"user_id"`
	TeamName string     `json:"team_name"`
	Role     MemberRole `json:"role"`
	Budget   int        `json:"budget"`
	JoinedAt time.Time  `json:"joined_at"`
}
