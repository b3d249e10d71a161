package leagues

import (
	"github.com/fantacontratti/backend/internal/models"
)

// CreateLeagueRequest creates a league; the creator becomes its admin member.
type CreateLeagueRequest struct {
	Name     string                 `json:"name"`
	Season   string                 `json:"season"`
	TeamName string                 `json:"team_name"`
	Settings *models.LeagueSettings `json:"settings,omitempty"`
}

// JoinLeagueRequest joins a league through its invite code.
type JoinLeagueRequest struct {
	InviteCode string `json:"invite_code"`
	TeamName   string `json:"team_name"`
}

// UpdateSettingsRequest replaces the league settings (admin only).
type UpdateSettingsRequest struct {
	Settings models.LeagueSettings `json:"settings"`
}

// AdjustBudgetRequest credits or debits a member's budget (admin only).
type AdjustBudgetRequest struct {
	Amount int    `json:"amount"`
	Note   string `json:"note"`
}
