// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/settle/internal/adapters/repository"
	"github.com/okian/settle/internal/domain/model"
)

const defaultRewardsLimit = 50

// RewardsHandler handles settlement result reads.
type RewardsHandler struct {
	deps Dependencies
}

// NewRewardsHandler creates a new rewards handler.
func NewRewardsHandler(deps Dependencies) *RewardsHandler {
	return &RewardsHandler{deps: deps}
}

type rewardsResponse struct {
	Results []repository.Result `json:"results"`
	Count   int                 `json:"count"`
}

// HandleListRewards handles GET /rewards?limit=N requests.
func (h *RewardsHandler) HandleListRewards(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_rewards"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := defaultRewardsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	results, err := h.deps.RecentRewards(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rewardsResponse{Results: results, Count: len(results)})
}

// HandleGetRewards handles GET /rewards/{key} requests.
func (h *RewardsHandler) HandleGetRewards(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rewards"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/rewards/")
	key, ok := model.ParseEventKey(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.Rewards(r.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
