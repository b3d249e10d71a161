package trades

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
	"github.com/fantacontratti/backend/internal/models"
)

// Service exposes the trade REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/leagues/{leagueID}/trades", s.handleList)
	r.Post("/leagues/{leagueID}/trades", s.handlePropose)
	r.Post("/leagues/{leagueID}/trades/{tradeID}/accept", s.handleAccept)
	r.Post("/leagues/{leagueID}/trades/{tradeID}/reject", s.handleReject)
	r.Post("/leagues/{leagueID}/trades/{tradeID}/cancel", s.handleCancel)
	r.Post("/leagues/{leagueID}/trades/{tradeID}/counter", s.handleCounter)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}

	offers, err := s.app.List(r.Context(), leagueID, user.ID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, offers)
}

func (s *Service) handlePropose(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return
	}
	var req CreateTradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	offer, err := s.app.Propose(r.Context(), leagueID, user.ID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, offer)
}

func (s *Service) handleAccept(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, s.app.Accept)
}

func (s *Service) handleReject(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, s.app.Reject)
}

func (s *Service) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.resolve(w, r, s.app.Cancel)
}

func (s *Service) handleCounter(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, tradeID, ok := parseIDs(w, r)
	if !ok {
		return
	}
	var req CreateTradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	offer, err := s.app.Counter(r.Context(), leagueID, user.ID, tradeID, req)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusCreated, offer)
}

func (s *Service) resolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, leagueID, userID, tradeID uuid.UUID) (*models.TradeOffer, error)) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, tradeID, ok := parseIDs(w, r)
	if !ok {
		return
	}

	offer, err := fn(r.Context(), leagueID, user.ID, tradeID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	httpx.RespondData(w, http.StatusOK, offer)
}

func parseIDs(w http.ResponseWriter, r *http.Request) (leagueID, tradeID uuid.UUID, ok bool) {
	leagueID, err := uuid.Parse(chi.URLParam(r, "leagueID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID lega non valido")
		return uuid.Nil, uuid.Nil, false
	}
	tradeID, err = uuid.Parse(chi.URLParam(r, "tradeID"))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "ID scambio non valido")
		return uuid.Nil, uuid.Nil, false
	}
	return leagueID, tradeID, true
}

func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotMember):
		httpx.RespondError(w, http.StatusForbidden, "Non sei membro di questa lega")
	case errors.Is(err, ErrNotYourOffer):
		httpx.RespondError(w, http.StatusForbidden, "Non puoi agire su questa offerta")
	case errors.Is(err, ErrNotPending):
		httpx.RespondError(w, http.StatusConflict, "L'offerta non è più in sospeso")
	case errors.Is(err, ErrSelfTrade):
		httpx.RespondError(w, http.StatusBadRequest, "Non puoi proporre uno scambio a te stesso")
	case errors.Is(err, ErrEmptyTrade):
		httpx.RespondError(w, http.StatusBadRequest, "L'offerta di scambio è vuota")
	case errors.Is(err, ErrPlayerNotOwned):
		httpx.RespondError(w, http.StatusConflict, "Uno dei giocatori non appartiene più alla rosa indicata")
	case errors.Is(err, ErrInsufficientBudget):
		httpx.RespondError(w, http.StatusConflict, "Budget insufficiente per completare lo scambio")
	case errors.Is(err, ErrQuotaExceeded):
		httpx.RespondError(w, http.StatusConflict, "Lo scambio supererebbe i limiti di rosa")
	default:
		httpx.RespondError(w, http.StatusNotFound, "Offerta di scambio non trovata")
	}
}
