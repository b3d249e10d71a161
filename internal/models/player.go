package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerRole follows the Italian fantacalcio convention: P/D/C/A.
type PlayerRole string

const (
	PlayerRoleGoalkeeper PlayerRole = "P"
	PlayerRoleDefender   PlayerRole = "D"
	PlayerRoleMidfielder PlayerRole = "C"
	PlayerRoleForward    PlayerRole = "A"
)

// ValidPlayerRole reports whether role is one of P/D/C/A.
func ValidPlayerRole(role PlayerRole) bool {
	switch role {
	case PlayerRoleGoalkeeper, PlayerRoleDefender, PlayerRoleMidfielder, PlayerRoleForward:
		return true
	}
	return false
}

// Player is an entry in the real-player catalog shared by every league.
type Player struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Team      string     `json:"team"`
	Role      PlayerRole `json:"role"`
	Quotation int        `json:"quotation"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
