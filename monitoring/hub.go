// Package monitoring provides the websocket event stream and in-process
// service metrics.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventType labels messages on the monitor stream.
type EventType string

const (
	EventPrediction   EventType = "prediction"
	EventTraining     EventType = "training"
	EventSystemStatus EventType = "system_status"
	EventHeartbeat    EventType = "heartbeat"
)

// Event is one message on the monitor stream.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Client is one connected websocket subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub broadcasts service events to websocket subscribers. Slow clients
// are dropped rather than allowed to block the broadcast loop.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	upgrader   websocket.Upgrader
	log        *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	// nextID is owned by the Run goroutine.
	nextID         int
	heartbeatEvery time.Duration
}

// NewHub creates a hub; call Run in a goroutine to start it.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:            log,
		ctx:            ctx,
		cancel:         cancel,
		heartbeatEvery: 30 * time.Second,
	}
}

// Run owns the client set and id counter until Stop is called.
func (h *Hub) Run() {
	heartbeat := time.NewTicker(h.heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case c := <-h.register:
			h.nextID++
			c.id = fmt.Sprintf("monitor-%d", h.nextID)
			h.clients[c] = true
			h.log.Debug("monitor client connected",
				zap.String("client", c.id),
				zap.Int("total", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}

		case <-heartbeat.C:
			h.Publish(EventHeartbeat, map[string]int{"clients": len(h.clients)})

		case <-h.ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

// Stop disconnects all clients and ends Run.
func (h *Hub) Stop() {
	h.cancel()
}

// HandleWebSocket upgrades a request and attaches it to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// Publish broadcasts an event; the payload is marshaled to JSON. A full
// broadcast queue drops the event.
func (h *Hub) Publish(eventType EventType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("failed to encode event", zap.Error(err))
		return
	}
	message, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("broadcast queue full, dropping event",
			zap.String("type", string(eventType)))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
