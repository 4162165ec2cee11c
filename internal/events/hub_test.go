package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peerwatch/peerwatch/internal/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

// dial connects a websocket client to the hub under the given user identity
func dial(t *testing.T, h *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("connected clients = %d, want %d", h.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("bad message %q: %v", raw, err)
	}
	return &msg
}

func TestPublishDeliversToConnectedClients(t *testing.T) {
	h := NewHub(testLogger())
	conn := dial(t, h, "user-1")
	waitForClients(t, h, 1)

	h.Publish(EventNewAlert, map[string]string{"id": "a-1"})

	msg := readEvent(t, conn)
	if msg.Event != EventNewAlert {
		t.Errorf("event = %s, want %s", msg.Event, EventNewAlert)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestPublishSurvivesConcurrentDisconnect(t *testing.T) {
	h := NewHub(testLogger())
	dial(t, h, "user-1")
	waitForClients(t, h, 1)

	var c *client
	h.mu.RLock()
	for cl := range h.clients {
		c = cl
	}
	h.mu.RUnlock()

	// A disconnect can land between a publisher snapshotting the client set
	// and sending on the client's channel. Tear the client down, then run
	// the publisher's send path against it; it must be a silent drop.
	h.unregister(c)
	select {
	case c.send <- []byte(`{}`):
	case <-c.done:
	default:
	}

	h.Publish(EventAlertUpdate, map[string]string{"id": "a-1"})

	// Teardown is idempotent from every path.
	h.unregister(c)
	h.closeAll()
}

func TestPublishToTargetsSingleUser(t *testing.T) {
	h := NewHub(testLogger())
	target := dial(t, h, "user-1")
	other := dial(t, h, "user-2")
	waitForClients(t, h, 2)

	h.PublishTo("user-1", EventInAppNotification, map[string]string{"user_id": "user-1"})

	msg := readEvent(t, target)
	if msg.Event != EventInAppNotification {
		t.Errorf("event = %s, want %s", msg.Event, EventInAppNotification)
	}

	other.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("event addressed to user-1 reached user-2")
	}
}

func TestPublishToWithoutUserBroadcasts(t *testing.T) {
	h := NewHub(testLogger())
	a := dial(t, h, "user-1")
	b := dial(t, h, "user-2")
	waitForClients(t, h, 2)

	h.PublishTo("", EventInAppNotification, map[string]string{"title": "hello"})

	for _, conn := range []*websocket.Conn{a, b} {
		if msg := readEvent(t, conn); msg.Event != EventInAppNotification {
			t.Errorf("event = %s, want %s", msg.Event, EventInAppNotification)
		}
	}
}

func TestRunClosesClientsOnShutdown(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := dial(t, h, "user-1")
	waitForClients(t, h, 1)

	cancel()
	<-done

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	if h.Count() != 0 {
		t.Errorf("clients still registered after shutdown: %d", h.Count())
	}
}
