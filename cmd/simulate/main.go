package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okian/settle/internal/simulate"
)

// Default configuration constants.
const (
	defaultParticipants = 32
	defaultForecasts    = 10000
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9090", "Base URL of the service")
		participants = flag.Int("participants", defaultParticipants, "Number of synthetic participants")
		forecasts    = flag.Int("forecasts", defaultForecasts, "Number of forecasts to submit")
		workers      = flag.Int("workers", runtime.NumCPU()*2, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:      *baseURL,
		Participants: *participants,
		Forecasts:    *forecasts,
		Workers:      *workers,
		Timeout:      *timeout,
		Verbose:      *verbose,
	}

	stats, err := simulate.Run(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("submitted=%d accepted=%d rejected=%d elapsed=%s rate=%.0f/s\n",
		stats.Submitted, stats.Accepted, stats.Rejected,
		stats.Elapsed.Round(time.Millisecond),
		float64(stats.Submitted)/stats.Elapsed.Seconds(),
	)
}
