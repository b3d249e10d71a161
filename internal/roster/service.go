package roster

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
)

// Service exposes the roster/contract REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/leagues/{leagueID}/members/{memberID}/roster", s.handleRoster)
	r.Post("/contracts/{contractID}/renew", s.handleRenew)
	r.Post("/contracts/{contractID}/release", s.handleRelease)
}

func (s *Service) handleRoster(w http.ResponseWriter, r *http.Request) {
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

	entries, err := s.app.GetRoster(r.Context(), leagueID, user.ID, memberID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, entries)
}

func (s *Service) handleRenew(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	contractID, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID contratto non valido")
		return
	}

	contract, err := s.app.RenewContract(r.Context(), user.ID, contractID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, contract)
}

func (s *Service) handleRelease(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	contractID, err := uuid.Parse(chi.URLParam(r, "contractID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID contratto non valido")
		return
	}

	contract, err := s.app.ReleaseContract(r.Context(), user.ID, contractID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, contract)
}

func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
	case errors.Is(err, ErrNotOwner):
		httpx.RespondError(w, http.StatusForbidden, "Il contratto appartiene a un altro membro")
	case errors.Is(err, ErrMaxSeasons):
		httpx.RespondError(w, http.StatusConflict, "Il contratto ha già la durata massima")
	case errors.Is(err, ErrQuotaExceeded):
		httpx.RespondError(w, http.StatusConflict, "Slot di rosa esauriti per questo ruolo")
	default:
		httpx.RespondError(w, http.StatusNotFound, "Contratto non trovato")
	}
}
