package svincolati

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fantacontratti/backend/internal/httpx"
	"github.com/fantacontratti/backend/internal/models"
)

// Service exposes the svincolati REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/leagues/{leagueID}/svincolati", s.handleCreate)
	r.Get("/leagues/{leagueID}/svincolati", s.handleState)
	r.Post("/leagues/{leagueID}/svincolati/start", s.act(func(a *App) sessionOp { return a.Start }))
	r.Post("/leagues/{leagueID}/svincolati/ready", s.act(func(a *App) sessionOp { return a.Ready }))
	r.Post("/leagues/{leagueID}/svincolati/nominate", s.handleNominate)
	r.Post("/leagues/{leagueID}/svincolati/bid", s.handleBid)
	r.Post("/leagues/{leagueID}/svincolati/pass", s.act(func(a *App) sessionOp { return a.Pass }))
	r.Post("/leagues/{leagueID}/svincolati/ack", s.act(func(a *App) sessionOp { return a.Ack }))
	r.Post("/leagues/{leagueID}/svincolati/pause", s.handlePause)
	r.Post("/leagues/{leagueID}/svincolati/resume", s.act(func(a *App) sessionOp { return a.Resume }))
	r.Post("/leagues/{leagueID}/svincolati/force-ready", s.act(func(a *App) sessionOp { return a.ForceReady }))
	r.Post("/leagues/{leagueID}/svincolati/force-ack", s.act(func(a *App) sessionOp { return a.ForceAck }))
	r.Post("/leagues/{leagueID}/svincolati/force-advance", s.act(func(a *App) sessionOp { return a.ForceAdvance }))
	r.Post("/leagues/{leagueID}/svincolati/cancel", s.act(func(a *App) sessionOp { return a.Cancel }))
}

type sessionOp func(ctx context.Context, leagueID, userID uuid.UUID) (*models.SvincolatiSession, error)

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

func (s *Service) handleNominate(w http.ResponseWriter, r *http.Request) {
	user, _ := httpx.UserFrom(r.Context())
	leagueID, ok := parseLeagueID(w, r)
	if !ok {
		return
	}
	var req NominateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}
	session, err := s.app.Nominate(r.Context(), leagueID, user.ID, req)
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
		httpx.RespondError(w, http.StatusConflict, "Esiste già una sessione svincolati attiva")
	case errors.Is(err, ErrNoSession):
		httpx.RespondError(w, http.StatusNotFound, "Nessuna sessione svincolati attiva")
	case errors.Is(err, ErrWrongStatus):
		httpx.RespondError(w, http.StatusConflict, "Lo stato della sessione non consente questa operazione")
	case errors.Is(err, ErrWrongPhase):
		httpx.RespondError(w, http.StatusConflict, "La fase corrente non consente questa operazione")
	case errors.Is(err, ErrNotYourTurn):
		httpx.RespondError(w, http.StatusConflict, "Non è il tuo turno")
	case errors.Is(err, ErrMemberDone):
		httpx.RespondError(w, http.StatusConflict, "Hai già concluso la sessione")
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
