package models

import (
	"time"

	"github.com/google/uuid"
)

// Prize is a league prize; awarding it credits the winner's budget.
type Prize struct {
	ID          uuid.UUID  `json:"id"`
	LeagueID    uuid.UUID  `json:"league_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Amount      int        `json:"amount"`
	AwardedTo   *uuid.UUID `json:"awarded_to,omitempty"`
	AwardedAt   *time.Time `json:"awarded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
