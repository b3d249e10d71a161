package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans league events out to WebSocket clients,
// pooled per league.
type ConnectionManager struct {
	leagueConnections map[uuid.UUID]map[*Connection]bool
	mu                sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage
}

// Connection is one client socket subscribed to a league.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	LeagueID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds WebSocket tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage targets a league pool, optionally narrowed to one user.
type BroadcastMessage struct {
	LeagueID uuid.UUID
	Event    *WireEvent
	UserID   uuid.UUID
}

// WireEvent is the JSON frame sent to clients.
type WireEvent struct {
	ID        string          `json:"id"`
	LeagueID  string          `json:"league_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DefaultConnectionConfig returns the default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		leagueConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until the context ends.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and starts
// the read/write pumps. The returned connection can receive an initial
// snapshot before any broadcast lands.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, leagueID uuid.UUID) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		LeagueID:    leagueID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID.String()).
		Str("league_id", leagueID.String()).
		Msg("WebSocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.leagueConnections[conn.LeagueID] == nil {
		cm.leagueConnections[conn.LeagueID] = make(map[*Connection]bool)
	}
	cm.leagueConnections[conn.LeagueID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("league_id", conn.LeagueID.String()).
		Int("total_connections", len(cm.leagueConnections[conn.LeagueID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.leagueConnections[conn.LeagueID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.leagueConnections, conn.LeagueID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("league_id", conn.LeagueID.String()).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToLeague queues an event for every socket in a league pool.
func (cm *ConnectionManager) BroadcastToLeague(leagueID uuid.UUID, event *WireEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{LeagueID: leagueID, Event: event}:
	default:
		log.Warn().Str("league_id", leagueID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToUser queues an event for one user's sockets in a league.
func (cm *ConnectionManager) BroadcastToUser(leagueID, userID uuid.UUID, event *WireEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{LeagueID: leagueID, Event: event, UserID: userID}:
	default:
		log.Warn().
			Str("league_id", leagueID.String()).
			Str("user_id", userID.String()).
			Msg("broadcast channel full, dropping user message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.leagueConnections[message.LeagueID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot the targets so the lock is not held while writing.
	var targets []*Connection
	for conn := range connections {
		if message.UserID != uuid.Nil && conn.UserID != message.UserID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- eventData:
		default:
			// Slow or dead client; drop it rather than stall the fan-out.
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", message.Event.Type).
		Str("league_id", message.LeagueID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats reports active connection counts per league.
func (cm *ConnectionManager) Stats() (total int, leagues int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.leagueConnections {
		total += len(connections)
	}
	return total, len(cm.leagueConnections)
}

// SendSnapshot delivers an initial state frame to one connection.
func (c *Connection) SendSnapshot(event *WireEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("snapshot dropped, send buffer full")
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		// Clients only send keepalives today.
		log.Debug().
			Str("connection_id", c.ID).
			RawJSON("message", message).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
