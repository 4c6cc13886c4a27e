package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/transport/httpapi/middleware"
)

// EventServiceInterface defines the interface for change subscriptions
// needed by EventHandler
type EventServiceInterface interface {
	Subscribe(userID uuid.UUID) (<-chan ledger.Change, func())
}

// EventHandler streams ledger change notifications over server-sent events
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler creates a new event handler
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// heartbeat keeps idle connections from being reaped by proxies.
const heartbeatInterval = 30 * time.Second

// Stream handles GET /events. It holds the connection open and writes one
// SSE "change" event per committed batch touching the user's data. Clients
// re-fetch the affected collections on receipt; events carry collection
// names, never row data.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	changes, cancel := h.service.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case change, open := <-changes:
			if !open {
				return
			}
			payload, err := json.Marshal(map[string]any{
				"collections": change.Collections,
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
