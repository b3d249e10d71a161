package movements

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
)

// Service exposes the ledger REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/leagues/{leagueID}/movements", s.handleListLeague)
	r.Get("/leagues/{leagueID}/members/{memberID}/movements", s.handleListMember)
}

func (s *Service) handleListLeague(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.app.ListByLeague(r.Context(), leagueID, user.ID, limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, items)
}

func (s *Service) handleListMember(w http.ResponseWriter, r *http.Request) {
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

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.app.ListByMember(r.Context(), leagueID, user.ID, memberID, limit)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, items)
}

func respondAppError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotMember) {
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
		return
	}
	httpx.RespondError(w, http.StatusInternalServerError, "Errore interno")
}
