// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/settle/internal/domain/model"
)

// ForecastsHandler handles forecast submissions.
type ForecastsHandler struct {
	deps Dependencies
}

// NewForecastsHandler creates a new forecasts handler.
func NewForecastsHandler(deps Dependencies) *ForecastsHandler {
	return &ForecastsHandler{deps: deps}
}

// forecastRequest mirrors the schema for POST /forecasts.
type forecastRequest struct {
	ParticipantID string  `json:"participant_id"`
	EventKey      string  `json:"event_key"`
	Value         float64 `json:"value"`
}

func (f forecastRequest) validate() error {
	switch {
	case strings.TrimSpace(f.ParticipantID) == "":
		return errors.New("missing participant_id")
	case strings.TrimSpace(f.EventKey) == "":
		return errors.New("missing event_key")
	case f.Value < 0 || f.Value > 1:
		return errors.New("value must be in [0, 1]")
	}
	return nil
}

// HandlePostForecast handles POST /forecasts requests.
func (h *ForecastsHandler) HandlePostForecast(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_forecast"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	key, ok := model.ParseEventKey(req.EventKey)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if err := h.deps.SubmitForecast(r.Context(), req.ParticipantID, key, req.Value); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
