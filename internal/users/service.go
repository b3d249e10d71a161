package users

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fantacontratti/backend/internal/httpx"
)

// Service exposes the users REST endpoints.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints.
func (s *Service) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
}

// RegisterRoutes mounts the authenticated endpoints.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/me", s.handleMe)
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	user, err := s.app.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			httpx.RespondError(w, http.StatusBadRequest, "Dati di registrazione non validi")
			return
		}
		httpx.RespondError(w, http.StatusConflict, "Email o username già registrati")
		return
	}

	httpx.RespondData(w, http.StatusCreated, user)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "Richiesta non valida")
		return
	}

	session, user, err := s.app.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.RespondError(w, http.StatusUnauthorized, "Credenziali non valide")
			return
		}
		httpx.RespondError(w, http.StatusInternalServerError, "Errore interno")
		return
	}

	httpx.RespondData(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := httpx.BearerToken(r)
	if err := s.app.Logout(r.Context(), token); err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, "Errore interno")
		return
	}
	httpx.RespondMessage(w, http.StatusOK, "Disconnessione effettuata")
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := httpx.UserFrom(r.Context())
	if !ok {
		httpx.RespondError(w, http.StatusUnauthorized, "Autenticazione richiesta")
		return
	}
	httpx.RespondData(w, http.StatusOK, user)
}

var _ httpx.TokenVerifier = (*App)(nil)
