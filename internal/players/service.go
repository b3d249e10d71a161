package players

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
	"github.com/fantacontratti/backend/internal/models"
)

// Service exposes the player catalog REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/players", s.handleList)
	r.Get("/players/{playerID}", s.handleGet)
	r.Get("/leagues/{leagueID}/free-agents", s.handleFreeAgents)
}

func filterFromQuery(r *http.Request) ListFilter {
	filter := ListFilter{
		Role:   models.PlayerRole(r.URL.Query().Get("role")),
		Team:   r.URL.Query().Get("team"),
		Search: r.URL.Query().Get("q"),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	return filter
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	players, err := s.app.ListPlayers(r.Context(), filterFromQuery(r))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Filtro non valido")
		return
	}
	httpx.RespondData(w, http.StatusOK, players)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID giocatore non valido")
		return
	}

	player, err := s.app.GetPlayer(r.Context(), playerID)
	if err != nil {
		httpx.RespondError(w, http.StatusNotFound, "Giocatore non trovato")
		return
	}
	httpx.RespondData(w, http.StatusOK, player)
}

func (s *Service) handleFreeAgents(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	players, err := s.app.ListFreeAgents(r.Context(), leagueID, filterFromQuery(r))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Filtro non valido")
		return
	}
	httpx.RespondData(w, http.StatusOK, players)
}
