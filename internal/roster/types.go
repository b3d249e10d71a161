package roster

import (
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/models"
)

// NewContract describes an acquisition to record inside a transaction.
type NewContract struct {
	LeagueID uuid.UUID
	MemberID uuid.UUID
	PlayerID uuid.UUID
	Salary   int
	Seasons  int
	Origin   models.ContractOrigin
}

// RosterCounts summarizes a roster by role for quota checks.
type RosterCounts struct {
	Goalkeepers int `json:"goalkeepers"`
	Defenders   int `json:"defenders"`
	Midfielders int `json:"midfielders"`
	Forwards    int `json:"forwards"`
}

// Count returns the count for one role.
func (c RosterCounts) Count(role models.PlayerRole) int {
	switch role {
	case models.PlayerRoleGoalkeeper:
		return c.Goalkeepers
	case models.PlayerRoleDefender:
		return c.Defenders
	case models.PlayerRoleMidfielder:
		return c.Midfielders
	case models.PlayerRoleForward:
		return c.Forwards
	}
	return 0
}
