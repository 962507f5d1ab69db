// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/settle/internal/domain/model"
)

// CommitmentsHandler handles the commit and reveal endpoints.
type CommitmentsHandler struct {
	deps Dependencies
}

// NewCommitmentsHandler creates a new commitments handler.
func NewCommitmentsHandler(deps Dependencies) *CommitmentsHandler {
	return &CommitmentsHandler{deps: deps}
}

// commitRequest mirrors the schema for POST /commitments.
type commitRequest struct {
	ParticipantID string `json:"participant_id"`
	EventKey      string `json:"event_key"`
	Digest        string `json:"digest"`
}

func (c commitRequest) validate() error {
	switch {
	case strings.TrimSpace(c.ParticipantID) == "":
		return errors.New("missing participant_id")
	case strings.TrimSpace(c.EventKey) == "":
		return errors.New("missing event_key")
	case strings.TrimSpace(c.Digest) == "":
		return errors.New("missing digest")
	}
	return nil
}

// revealRequest mirrors the schema for POST /reveals.
type revealRequest struct {
	ParticipantID string    `json:"participant_id"`
	EventKey      string    `json:"event_key"`
	Values        []float64 `json:"values"`
}

func (c revealRequest) validate() error {
	switch {
	case strings.TrimSpace(c.ParticipantID) == "":
		return errors.New("missing participant_id")
	case strings.TrimSpace(c.EventKey) == "":
		return errors.New("missing event_key")
	case len(c.Values) == 0:
		return errors.New("missing values")
	}
	return nil
}

type revealResponse struct {
	Status   string `json:"status"`
	Accepted bool   `json:"accepted"`
}

// HandlePostCommitment handles POST /commitments requests.
func (h *CommitmentsHandler) HandlePostCommitment(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_commitment"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req commitRequest
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

	if err := h.deps.Commit(r.Context(), req.ParticipantID, key, req.Digest); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "committed"})
}

// HandlePostReveal handles POST /reveals requests. A rejected reveal is
// a 200 with accepted=false, not an error: the request itself was fine.
func (h *CommitmentsHandler) HandlePostReveal(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_reveal"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req revealRequest
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

	accepted, err := h.deps.Reveal(r.Context(), req.ParticipantID, key, req.Values)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	status := "rejected"
	if accepted {
		status = "verified"
	}
	writeJSON(w, http.StatusOK, revealResponse{Status: status, Accepted: accepted})
}
