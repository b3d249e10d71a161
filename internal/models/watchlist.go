package models

import (
	"time"

	"github.com/google/uuid"
)

// WatchlistEntry marks a player a member wants to track ahead of an
// auction or svincolati session.
type WatchlistEntry struct {
	ID        uuid.UUID `json:"id"`
	LeagueID  uuid.UUID `json:"league_id"`
	MemberID  uuid.UUID `json:"member_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	Priority  int       `json:"priority"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
