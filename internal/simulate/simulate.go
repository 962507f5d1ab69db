// Package simulate drives a running engine with synthetic forecast
// traffic, for load checks and manual end-to-end verification.
package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls one simulation run.
type Config struct {
	BaseURL      string
	Participants int
	Forecasts    int
	Workers      int
	Timeout      time.Duration
	Verbose      bool
}

// Stats summarizes one simulation run.
type Stats struct {
	Submitted int64
	Accepted  int64
	Rejected  int64
	Elapsed   time.Duration
}

type eventsResponse struct {
	Events []struct {
		Key struct {
			Provider string `json:"provider"`
			ID       string `json:"id"`
		} `json:"key"`
		Status string `json:"status"`
	} `json:"events"`
}

type forecastRequest struct {
	ParticipantID string  `json:"participant_id"`
	EventKey      string  `json:"event_key"`
	Value         float64 `json:"value"`
}

// Run generates participants and floods the forecast endpoint with
// random probabilities against the engine's pending events.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	keys, err := pendingEventKeys(ctx, client, cfg.BaseURL)
	if err != nil {
		return Stats{}, err
	}
	if len(keys) == 0 {
		return Stats{}, fmt.Errorf("no pending events to forecast against")
	}

	participants := make([]string, cfg.Participants)
	for i := range participants {
		participants[i] = "sim-" + uuid.NewString()
	}

	var (
		stats Stats
		wg    sync.WaitGroup
		jobs  = make(chan int)
	)
	start := time.Now()

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed)) //nolint:gosec // synthetic traffic needs no crypto entropy

			for range jobs {
				req := forecastRequest{
					ParticipantID: participants[rng.Intn(len(participants))],
					EventKey:      keys[rng.Intn(len(keys))],
					Value:         rng.Float64(),
				}
				atomic.AddInt64(&stats.Submitted, 1)
				if submitForecast(ctx, client, cfg.BaseURL, req) {
					atomic.AddInt64(&stats.Accepted, 1)
				} else {
					atomic.AddInt64(&stats.Rejected, 1)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}

	for i := 0; i < cfg.Forecasts; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return stats, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func pendingEventKeys(ctx context.Context, client *http.Client, baseURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/events", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list events: status %d", resp.StatusCode)
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	var keys []string
	for _, ev := range body.Events {
		if ev.Status != "pending" {
			continue
		}
		keys = append(keys, ev.Key.Provider+"-"+ev.Key.ID)
	}
	return keys, nil
}

func submitForecast(ctx context.Context, client *http.Client, baseURL string, fr forecastRequest) bool {
	raw, err := json.Marshal(fr)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/forecasts", bytes.NewReader(raw))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusAccepted
}
