// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/okian/settle/internal/domain/model"
)

// EventsHandler handles event read requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

type eventsResponse struct {
	Events []model.Event `json:"events"`
	Count  int           `json:"count"`
}

// HandleListEvents handles GET /events requests.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	events := h.deps.Events(r.Context())
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}

// HandleGetEvent handles GET /events/{key} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/events/")
	key, ok := model.ParseEventKey(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	ev, found := h.deps.Event(r.Context(), key)
	if !found {
		writeError(w, http.StatusNotFound, "unknown_event", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
