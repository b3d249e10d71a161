package watchlist

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
)

// Service exposes the watchlist REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/leagues/{leagueID}/watchlist", s.handleList)
	r.Post("/leagues/{leagueID}/watchlist", s.handleAdd)
	r.Delete("/leagues/{leagueID}/watchlist/{playerID}", s.handleRemove)
}

type addRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Priority int       `json:"priority"`
	Note     *string   `json:"note,omitempty"`
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	entries, err := s.app.List(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, entries)
}

func (s *Service) handleAdd(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	var req addRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	entry, err := s.app.Add(r.Context(), leagueID, user.ID, req.PlayerID, req.Priority, req.Note)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, entry)
}

func (s *Service) handleRemove(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	playerID, err := uuid.Parse(chi.URLParam(r, "playerID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID giocatore non valido")
		return
	}

	if err := s.app.Remove(r.Context(), leagueID, user.ID, playerID); err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondMessage(w, http.StatusOK, "Giocatore rimosso dalla watchlist")
}

func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, http.StatusConflict, "Giocatore già presente nella watchlist")
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, http.StatusNotFound, "Giocatore non presente nella watchlist")
	default:
		httpx.RespondError(w, http.StatusInternalServerError, "Errore interno")
	}
}
