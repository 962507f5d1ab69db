package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/settle/pkg/logger"
)

// Reconnection constants.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2.0
	jitterPercent  = 0.2

	handshakeTimeout = 10 * time.Second
	readTimeout      = 70 * time.Second
	writeTimeout     = 10 * time.Second
)

// Nudger receives event ids that deserve an immediate refresh.
type Nudger interface {
	Nudge(id string)
}

// Stream listens on the market websocket channel and nudges the
// reconciliation loop whenever a market message mentions a condition
// id. The stream is an accelerator, not a source of truth: every state
// change it signals is re-read over REST before it touches the
// registry.
type Stream struct {
	url    string
	nudger Nudger

	conn    *websocket.Conn
	connMu  sync.Mutex
	backoff time.Duration

	log logger.Logger
}

// StreamOption applies a configuration option to the Stream.
type StreamOption func(*Stream)

// WithStreamLogger sets a custom logger for the stream.
func WithStreamLogger(log logger.Logger) StreamOption {
	return func(s *Stream) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStream creates a market stream pointed at url.
func NewStream(url string, nudger Nudger, opts ...StreamOption) *Stream {
	s := &Stream{
		url:     url,
		nudger:  nudger,
		backoff: initialBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("polymarket-stream")
	}
	return s
}

// Run connects and reads until ctx is cancelled, reconnecting with
// jittered exponential backoff on any failure.
func (s *Stream) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.connect(ctx); err != nil {
			s.log.Warn(ctx, "stream connect failed",
				logger.Error(err),
				logger.Any("backoff", s.backoff),
			)
			s.waitBackoff(ctx)
			continue
		}

		if err := s.readLoop(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn(ctx, "stream read failed", logger.Error(err))
		}
		s.closeConn(ctx)

		if ctx.Err() != nil {
			return
		}
		s.waitBackoff(ctx)
	}
}

func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	headers := http.Header{}
	headers.Set("Origin", "https://polymarket.com")

	conn, resp, err := dialer.DialContext(ctx, s.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.backoff = initialBackoff
	s.log.Info(ctx, "stream connected", logger.String("endpoint", s.url))

	return s.subscribe()
}

// subscribe requests the market channel. Empty assets_ids subscribes
// to all markets.
func (s *Stream) subscribe() error {
	msg := map[string]any{
		"type":       "market",
		"assets_ids": []string{},
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("connection is nil")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	return nil
}

func (s *Stream) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()
		if conn == nil {
			return fmt.Errorf("connection is nil")
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		s.handleMessage(ctx, message)
	}
}

// handleMessage extracts condition ids from market messages. Payloads
// arrive both as single objects and as arrays.
func (s *Stream) handleMessage(ctx context.Context, data []byte) {
	type marketMsg struct {
		Market      string `json:"market"`
		ConditionID string `json:"condition_id"`
	}

	var batch []marketMsg
	if err := json.Unmarshal(data, &batch); err != nil {
		var single marketMsg
		if err := json.Unmarshal(data, &single); err != nil {
			s.log.Debug(ctx, "unparseable stream message", logger.Error(err))
			return
		}
		batch = append(batch, single)
	}

	for _, m := range batch {
		id := m.ConditionID
		if id == "" {
			id = m.Market
		}
		if id == "" {
			continue
		}
		s.nudger.Nudge(id)
	}
}

func (s *Stream) closeConn(ctx context.Context) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
		s.log.Debug(ctx, "stream disconnected")
	}
}

// waitBackoff sleeps the jittered backoff and doubles it for next time.
func (s *Stream) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(s.backoff) * jitterPercent * (rand.Float64()*2 - 1)) //nolint:gosec // backoff jitter needs no crypto entropy
	select {
	case <-ctx.Done():
	case <-time.After(s.backoff + jitter):
	}

	s.backoff = time.Duration(float64(s.backoff) * backoffFactor)
	if s.backoff > maxBackoff {
		s.backoff = maxBackoff
	}
}
