package leagues

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
)

// Service exposes the leagues REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/leagues", s.handleCreate)
	r.Get("/leagues", s.handleListMine)
	r.Post("/leagues/join", s.handleJoin)
	r.Get("/leagues/{leagueID}", s.handleGet)
	r.Put("/leagues/{leagueID}/settings", s.handleUpdateSettings)
	r.Delete("/leagues/{leagueID}", s.handleDelete)
	r.Get("/leagues/{leagueID}/members", s.handleMembers)
	r.Post("/leagues/{leagueID}/members/{memberID}/budget", s.handleAdjustBudget)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	var req CreateLeagueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	league, err := s.app.CreateLeague(r.Context(), user.ID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, league)
}

func (s *Service) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagues, err := s.app.GetLeaguesByUser(r.Context(), user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, leagues)
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	var req JoinLeagueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	member, err := s.app.JoinLeague(r.Context(), user.ID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, member)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	league, err := s.app.GetLeague(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, league)
}

func (s *Service) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	var req UpdateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	league, err := s.app.UpdateSettings(r.Context(), leagueID, user.ID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, league)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	if err := s.app.DeleteLeague(r.Context(), leagueID, user.ID); err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondMessage(w, http.StatusOK, "Lega eliminata")
}

func (s *Service) handleMembers(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	members, err := s.app.GetMembers(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, members)
}

func (s *Service) handleAdjustBudget(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID membro non valido")
		return
	}
	var req AdjustBudgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	member, err := s.app.AdjustMemberBudget(r.Context(), leagueID, user.ID, memberID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, member)
}

func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		httpx.RespondError(w, http.StatusBadRequest, "Dati non validi")
	case errors.Is(err, ErrNotAdmin):
		httpx.RespondError(w, http.StatusForbidden, "Operazione riservata all'amministratore della lega")
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
	case errors.Is(err, ErrAlreadyMember):
		httpx.RespondError(w, http.StatusConflict, "Sei già membro di questa lega")
	case errors.Is(err, ErrInsufficientBudget):
		httpx.RespondError(w, http.StatusConflict, "Budget insufficiente")
	default:
		httpx.RespondError(w, http.StatusNotFound, "Lega non trovata")
	}
}
