package players

import "github.com/fantacontratti/backend/internal/models"

// ListFilter narrows player catalog listings.
type ListFilter struct {
	Role   models.PlayerRole
	Team   string
	Search string
	Limit  int
}

// UpsertPlayerRequest is used by the seed tool to load the catalog.
type UpsertPlayerRequest struct {
	Name      string            `json:"name"`
	Team      string            `json:"team"`
	Role      models.PlayerRole `json:"role"`
	Quotation int               `json:"quotation"`
}
