package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Event types pushed to stream subscribers
const (
	EventAlert          = "alert"
	EventRecommendation = "recommendation"
	EventSettlement     = "settlement"
)

// Event is one message on the alert stream
type Event struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// Hub fans events out to connected websocket clients. Slow clients drop events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *logrus.Entry
}

// NewHub creates an empty hub
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.WithField("component", "ws_hub"),
	}
}

// PublishAlert broadcasts a bankroll alert
func (h *Hub) PublishAlert(alert models.Alert) {
	h.Broadcast(Event{Type: EventAlert, At: alert.RaisedAt, Data: alert})
}

// PublishRecommendation broadcasts a produced recommendation
func (h *Hub) PublishRecommendation(rec *models.Recommendation) {
	h.Broadcast(Event{Type: EventRecommendation, At: rec.GeneratedAt, Data: rec})
}

// PublishSettlement broadcasts a settled bet
func (h *Hub) PublishSettlement(record *models.BetRecord) {
	h.Broadcast(Event{Type: EventSettlement, At: record.PlacedAt, Data: record})
}

// Broadcast queues the event on every client without blocking
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.WithField("client_id", c.id).Warn("Client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers the connection and pumps events to it until either side closes
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan Event, sendBufferSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.WithField("client_id", c.id).Info("Stream client connected")

	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()
	c.writePump(ctx, done)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.logger.WithField("client_id", c.id).Info("Stream client disconnected")
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// readPump discards client messages and keeps the read deadline fresh
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-done:
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
