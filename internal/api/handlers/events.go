package handlers

import (
	"net/http"

	"github.com/peerwatch/peerwatch/internal/api/middleware"
	"github.com/peerwatch/peerwatch/internal/events"
	"github.com/peerwatch/peerwatch/internal/pkg/utils"
)

// EventsHandler exposes the websocket event stream
type EventsHandler struct {
	hub *events.Hub
}

func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Serve upgrades the connection and attaches it to the hub under the
// authenticated user's identity
func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	h.hub.Serve(w, r, middleware.GetUserID(r))
}

// Stats returns the number of connected event clients
func (h *EventsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]int{
		"connected_clients": h.hub.Count(),
	})
}
