package prizes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
)

// Service exposes the prizes REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/leagues/{leagueID}/prizes", s.handleList)
	r.Post("/leagues/{leagueID}/prizes", s.handleCreate)
	r.Delete("/leagues/{leagueID}/prizes/{prizeID}", s.handleDelete)
	r.Post("/leagues/{leagueID}/prizes/{prizeID}/award", s.handleAward)
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Amount      int    `json:"amount"`
}

type awardRequest struct {
	MemberID uuid.UUID `json:"member_id"`
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	prizes, err := s.app.ListPrizes(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, prizes)
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	prize, err := s.app.CreatePrize(r.Context(), leagueID, user.ID, req.Name, req.Description, req.Amount)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, prize)
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	prizeID, err := uuid.Parse(chi.URLParam(r, "prizeID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID premio non valido")
		return
	}

	if err := s.app.DeletePrize(r.Context(), leagueID, user.ID, prizeID); err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondMessage(w, http.StatusOK, "Premio eliminato")
}

func (s *Service) handleAward(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	prizeID, err := uuid.Parse(chi.URLParam(r, "prizeID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID premio non valido")
		return
	}
	var req awardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	prize, err := s.app.AwardPrize(r.Context(), leagueID, user.ID, prizeID, req.MemberID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, prize)
}

func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAdmin):
		httpx.RespondError(w, http.StatusForbidden, "Operazione riservata all'amministratore della lega")
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
	case errors.Is(err, ErrInvalidRequest):
		httpx.RespondError(w, http.StatusBadRequest, "Dati del premio non validi")
	case errors.Is(err, ErrAlreadyAwarded):
		httpx.RespondError(w, http.StatusConflict, "Premio già assegnato")
	default:
		httpx.RespondError(w, http.StatusNotFound, "Premio non trovato")
	}
}
