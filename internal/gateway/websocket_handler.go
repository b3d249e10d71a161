package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/httpx"
	"github.com/fantacontratti/backend/internal/models"
)

// Memberships verifies the caller belongs to the league they subscribe to.
type Memberships interface {
	GetMemberForUser(ctx context.Context, leagueID, userID uuid.UUID) (*models.LeagueMember, error)
}

// SnapshotProvider supplies the current session state for the initial
// frame sent right after a client joins. A provider with no active
// session returns (nil, nil).
type SnapshotProvider interface {
	Snapshot(ctx context.Context, leagueID, userID uuid.UUID) (any, error)
}

// SnapshotFunc adapts a function to the SnapshotProvider interface.
type SnapshotFunc func(ctx context.Context, leagueID, userID uuid.UUID) (any, error)

func (f SnapshotFunc) Snapshot(ctx context.Context, leagueID, userID uuid.UUID) (any, error) {
	return f(ctx, leagueID, userID)
}

// WebSocketHandler upgrades authenticated clients onto a league's
// event feed, sending session snapshots on join.
type WebSocketHandler struct {
	manager   *ConnectionManager
	verifier  httpx.TokenVerifier
	members   Memberships
	snapshots map[string]SnapshotProvider
}

func NewWebSocketHandler(manager *ConnectionManager, verifier httpx.TokenVerifier, members Memberships) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		verifier:  verifier,
		members:   members,
		snapshots: make(map[string]SnapshotProvider),
	}
}

// RegisterSnapshot wires a session module's state into the join frame.
// The name becomes the snapshot's event type suffix.
func (h *WebSocketHandler) RegisterSnapshot(name string, provider SnapshotProvider) {
	h.snapshots[name] = provider
}

// HandleLeagueConnection serves GET /ws?league_id=...&token=...
// Browsers cannot set headers on WebSocket upgrades, so the token
// rides the query string.
func (h *WebSocketHandler) HandleLeagueConnection(w http.ResponseWriter, r *http.Request) {
	leagueID, err := uuid.Parse(r.URL.Query().Get("league_id"))
	if err != nil {
		http.Error(w, "league_id non valido", http.StatusBadRequest)
		return
	}

	token := httpx.BearerToken(r)
	if token == "" {
		http.Error(w, "autenticazione richiesta", http.StatusUnauthorized)
		return
	}
	user, err := h.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		http.Error(w, "token non valido", http.StatusUnauthorized)
		return
	}
	if _, err := h.members.GetMemberForUser(r.Context(), leagueID, user.ID); err != nil {
		http.Error(w, "non sei membro di questa lega", http.StatusForbidden)
		return
	}

	conn, err := h.manager.UpgradeConnection(w, r, user.ID, leagueID)
	if err != nil {
		log.Error().
			Err(err).
			Str("league_id", leagueID.String()).
			Str("user_id", user.ID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	h.sendSnapshots(r.Context(), conn, leagueID, user.ID)
}

// sendSnapshots pushes the current state of every registered session
// module so late joiners catch up before live events arrive.
func (h *WebSocketHandler) sendSnapshots(ctx context.Context, conn *Connection, leagueID, userID uuid.UUID) {
	for name, provider := range h.snapshots {
		state, err := provider.Snapshot(ctx, leagueID, userID)
		if err != nil {
			log.Error().
				Err(err).
				Str("provider", name).
				Str("league_id", leagueID.String()).
				Msg("failed to build snapshot")
			continue
		}
		if state == nil {
			continue
		}

		data, err := json.Marshal(state)
		if err != nil {
			log.Error().Err(err).Str("provider", name).Msg("failed to marshal snapshot")
			continue
		}
		conn.SendSnapshot(&WireEvent{
			ID:        uuid.New().String(),
			LeagueID:  leagueID.String(),
			Type:      fmt.Sprintf("%sSnapshot", name),
			Timestamp: time.Now(),
			Data:      data,
		})
	}
}

// HandleStats reports active connection counts.
func (h *WebSocketHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	total, leagues := h.manager.Stats()
	httpx.RespondData(w, http.StatusOK, map[string]int{
		"total_connections": total,
		"active_leagues":    leagues,
	})
}
