// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/settle/internal/adapters/repository"
	"github.com/okian/settle/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitForecast records a probability for a pending event.
	SubmitForecast(ctx context.Context, participantID string, key model.EventKey, value float64) error

	// Commit records a base64 digest for a future vector reveal.
	Commit(ctx context.Context, participantID string, key model.EventKey, digestB64 string) error

	// Reveal checks values against an outstanding commitment.
	Reveal(ctx context.Context, participantID string, key model.EventKey, values []float64) (bool, error)

	// Read operations expose event and reward data.
	Event(ctx context.Context, key model.EventKey) (model.Event, bool)
	Events(ctx context.Context) []model.Event
	Rewards(ctx context.Context, key model.EventKey) (repository.Result, error)
	RecentRewards(ctx context.Context, limit int) ([]repository.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	forecastsHandler   *ForecastsHandler
	commitmentsHandler *CommitmentsHandler
	eventsHandler      *EventsHandler
	rewardsHandler     *RewardsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		forecastsHandler:   NewForecastsHandler(deps),
		commitmentsHandler: NewCommitmentsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		rewardsHandler:     NewRewardsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/forecasts", MetricsMiddleware(s.forecastsHandler.HandlePostForecast, "forecasts"))
	mux.HandleFunc("/commitments", MetricsMiddleware(s.commitmentsHandler.HandlePostCommitment, "commitments"))
	mux.HandleFunc("/reveals", MetricsMiddleware(s.commitmentsHandler.HandlePostReveal, "reveals"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event"))
	mux.HandleFunc("/rewards", MetricsMiddleware(s.rewardsHandler.HandleListRewards, "rewards"))
	mux.HandleFunc("/rewards/", MetricsMiddleware(s.rewardsHandler.HandleGetRewards, "reward"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
