package auction

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
	"github.com/fantacontratti/backend/internal/models"
)

// Service exposes the live-auction REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/leagues/{leagueID}/auction", s.handleCreate)
	r.Get("/leagues/{leagueID}/auction", s.handleState)
	r.Post("/leagues/{leagueID}/auction/start", s.act(func(a *App) sessionOp { return a.Start }))
	r.Post("/leagues/{leagueID}/auction/lots", s.handleOpenLot)
	r.Post("/leagues/{leagueID}/auction/bid", s.handleBid)
	r.Post("/leagues/{leagueID}/auction/pause", s.handlePause)
	r.Post("/leagues/{leagueID}/auction/resume", s.act(func(a *App) sessionOp { return a.Resume }))
	r.Post("/leagues/{leagueID}/auction/close-lot", s.act(func(a *App) sessionOp { return a.CloseLot }))
	r.Post("/leagues/{leagueID}/auction/void-lot", s.act(func(a *App) sessionOp { return a.VoidLot }))
	r.Post("/leagues/{leagueID}/auction/complete", s.act(func(a *App) sessionOp { return a.Complete }))
	r.Post("/leagues/{leagueID}/auction/cancel", s.act(func(a *App) sessionOp { return a.Cancel }))
}

type sessionOp func(ctx context.Context, leagueID, userID uuid.UUID) (*models.AuctionSession, error)

func (s *Service) act(pick func(*App) sessionOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := httpx.UserFrom(r.Context())
		leagueID, ok := parseLeagueID(w, r)
		if !ok {
			return
		}
		session, err := pick(s.app)(r.Context(), leagueID, user.ID)
		if err != nil {
			respondAppError(w, err)
			return
		}
		httpx.RespondData(w, http.StatusOK, session)
	}
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, ok := parseLeagueID(w, r)
	if !ok {
		return
	}
	session, err := s.app.CreateSession(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, session)
}

func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, ok := parseLeagueID(w, r)
	if !ok {
		return
	}
	state, err := s.app.GetState(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, state)
}

func (s *Service) handleOpenLot(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, ok := parseLeagueID(w, r)
	if !ok {
		return
	}
	var req OpenLotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	session, err := s.app.OpenLot(r.Context(), leagueID, user.ID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, session)
}

func (s *Service) handleBid(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, ok := parseLeagueID(w, r)
	if !ok {
		return
	}
	var req BidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	session, err := s.app.Bid(r.Context(), leagueID, user.ID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, session)
}

func (s *Service) handlePause(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, ok := parseLeagueID(w, r)
	if !ok {
		return
	}
	var req PauseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	session, err := s.app.Pause(r.Context(), leagueID, user.ID, req.Reason)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, session)
}

func parseLeagueID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return uuid.Nil, false
	}
	return leagueID, true
}

func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAdmin):
		httpx.RespondError(w, http.StatusForbidden, "Operazione riservata all'amministratore della lega")
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
	case errors.Is(err, ErrSessionExists):
		httpx.RespondError(w, http.StatusConflict, "Esiste già un'asta attiva")
	case errors.Is(err, ErrNoSession):
		httpx.RespondError(w, http.StatusNotFound, "Nessuna asta attiva")
	case errors.Is(err, ErrWrongStatus):
		httpx.RespondError(w, http.StatusConflict, "Lo stato dell'asta non consente questa operazione")
	case errors.Is(err, ErrLotOpen):
		httpx.RespondError(w, http.StatusConflict, "C'è già un lotto aperto")
	case errors.Is(err, ErrNoLotOpen):
		httpx.RespondError(w, http.StatusConflict, "Nessun lotto aperto")
	case errors.Is(err, ErrPlayerTaken):
		httpx.RespondError(w, http.StatusConflict, "Il giocatore non è svincolato")
	case errors.Is(err, ErrInvalidBid):
		httpx.RespondError(w, http.StatusBadRequest, "Offerta non valida")
	case errors.Is(err, ErrInsufficientBudget):
		httpx.RespondError(w, http.StatusConflict, "Budget insufficiente")
	case errors.Is(err, ErrQuotaExceeded):
		httpx.RespondError(w, http.StatusConflict, "Non hai slot disponibili per questo ruolo")
	default:
		httpx.RespondError(w, http.StatusInternalServerError, "Errore interno")
	}
}
