package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/fantacontratti/backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRequest     = errors.New("invalid request")
)

const sessionTTL = 30 * 24 * time.Hour

// UsersRepository defines what the app layer needs from the repository.
type UsersRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, token string, userID uuid.UUID, expiresAt time.Time) (*models.Session, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// App handles account and session business logic.
type App struct {
	repo UsersRepository
}

func NewApp(repo UsersRepository) *App {
	return &App{repo: repo}
}

// Register creates an account with a bcrypt password hash.
func (a *App) Register(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || !strings.Contains(req.Email, "@") || len(req.Password) < 8 {
		return nil, ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.repo.CreateUser(ctx, req.Username, req.Email, string(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues an opaque bearer token.
func (a *App) Login(ctx context.Context, req LoginRequest) (*models.Session, *models.User, error) {
	user, err := a.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session, err := a.repo.CreateSession(ctx, token, user.ID, time.Now().Add(sessionTTL))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return session, user, nil
}

// Logout invalidates a session token.
func (a *App) Logout(ctx context.Context, token string) error {
	return a.repo.DeleteSession(ctx, token)
}

// VerifyToken resolves a bearer token; used by the auth middleware.
func (a *App) VerifyToken(ctx context.Context, token string) (*models.User, error) {
	return a.repo.GetUserByToken(ctx, token)
}

// GetUser retrieves a user by ID.
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return a.repo.GetUser(ctx, id)
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
