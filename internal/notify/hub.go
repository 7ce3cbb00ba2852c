package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

// Frame is the message pushed to websocket subscribers.
type Frame struct {
	Type  string                 `json:"type"`
	Event *types.TransitionEvent `json:"event,omitempty"`
}

// Hub pushes transitions to connected websocket clients. Slow clients whose
// send buffer fills up are disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
}

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:     logger,
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			h.logger.Info("websocket-hub-stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			ConnectedClients.Set(float64(n))
			h.logger.Debug("websocket-client-connected", zap.String("client-id", c.id), zap.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			ConnectedClients.Set(float64(n))
			h.logger.Debug("websocket-client-disconnected", zap.String("client-id", c.id), zap.Int("clients", n))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					SlowClientsDroppedTotal.Inc()
					h.drop(c)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			ConnectedClients.Set(float64(n))
		}
	}
}

// drop removes c. Caller holds h.mu.
func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// Notify broadcasts event to every connected client.
func (h *Hub) Notify(_ context.Context, event types.TransitionEvent) {
	msg, err := json.Marshal(Frame{Type: "transition", Event: &event})
	if err != nil {
		NotifyErrorsTotal.WithLabelValues("websocket").Inc()
		h.logger.Error("marshal-frame-failed", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- msg:
		NotificationsTotal.WithLabelValues("websocket").Inc()
	case <-h.done:
	default:
		NotifyErrorsTotal.WithLabelValues("websocket").Inc()
		h.logger.Warn("websocket-broadcast-buffer-full", zap.String("event-id", event.ID))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket-upgrade-failed", zap.Error(err))
		return
	}

	c := &client{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	hello, _ := json.Marshal(Frame{Type: "hello"})
	c.send <- hello

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only drains control frames; clients do not send commands.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket-read-error", zap.String("client-id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
