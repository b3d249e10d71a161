package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository defines what the app layer needs from the repository.
type OutboxRepository interface {
	InsertEventTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, eventType string, payload json.RawMessage) error
	InsertEvent(ctx context.Context, leagueID uuid.UUID, eventType string, payload json.RawMessage) error
}

// App marshals domain event payloads into the outbox.
type App struct {
	repo OutboxRepository
}

func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

// EmitTx appends an event within the caller's transaction.
func (a *App) EmitTx(ctx context.Context, tx pgx.Tx, leagueID uuid.UUID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return a.repo.InsertEventTx(ctx, tx, leagueID, eventType, raw)
}

// Emit appends an event outside any transaction.
func (a *App) Emit(ctx context.Context, leagueID uuid.UUID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return a.repo.InsertEvent(ctx, leagueID, eventType, raw)
}
