package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peerwatch/peerwatch/internal/pkg/logger"
)

// Event names pushed over the realtime feed
const (
	EventNewAlert           = "new_alert"
	EventAlertUpdate        = "alert_update"
	EventAlertResolved      = "alert_resolved"
	EventAlertAcknowledged  = "alert_acknowledged"
	EventAlertSuppressed    = "alert_suppressed"
	EventRuleEvaluation     = "rule_evaluation"
	EventNotificationStatus = "notification_status"
	EventInAppNotification  = "in_app_notification"
)

// Publisher is the side of the hub services see. Publishing never blocks the
// caller; slow consumers are disconnected, not waited on.
type Publisher interface {
	Publish(event string, data interface{})

	// PublishTo delivers an event only to connections authenticated as the
	// given user
	PublishTo(userID, event string, data interface{})
}

const (
	// writeTimeout is the deadline for a single write to a client
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead
	pongWait = 60 * time.Second

	// pingPeriod controls how often ping frames are sent. Must be less
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth
	sendBufSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; CORS policy is enforced at the router level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients for every event
type Message struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub manages WebSocket client connections and fans published events out to
// every connected client.
type Hub struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client is one connected WebSocket consumer. All per-connection state lives
// here, never on the hub. The send channel is never closed: publishers race
// with disconnects, so teardown is signalled through done instead, which is
// safe to observe from any number of goroutines.
type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// close signals teardown and closes the connection. Idempotent; called from
// the hub, the read pump and shutdown.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Publish implements Publisher. Marshal failures are logged and dropped; a
// bad payload must not take down the caller's sweep.
func (h *Hub) Publish(event string, data interface{}) {
	h.publish(event, data, nil)
}

// PublishTo implements Publisher for user-addressed events. An empty userID
// falls back to a broadcast.
func (h *Hub) PublishTo(userID, event string, data interface{}) {
	if userID == "" {
		h.publish(event, data, nil)
		return
	}
	h.publish(event, data, func(c *client) bool { return c.userID == userID })
}

func (h *Hub) publish(event string, data interface{}, match func(*client) bool) {
	payload, err := json.Marshal(Message{
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		h.log.WithError(err).Errorf("failed to encode %s event", event)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if match == nil || match(c) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- payload:
		case <-c.done:
			// Client is being torn down, drop the message.
		default:
			// Client's outgoing buffer is full, disconnect it.
			h.unregister(c)
		}
	}
}

// Serve upgrades the connection to WebSocket and serves the client until the
// connection closes. userID attributes the connection for user-addressed
// events.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response
		return
	}

	c := &client{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Count returns the number of currently connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	for _, c := range targets {
		c.close()
	}
}

// writePump drains the client's send channel and forwards messages to the
// connection, interleaving ping frames. Runs in its own goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes frames to process control messages and detect
// disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
