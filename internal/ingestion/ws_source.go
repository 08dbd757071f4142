package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"roulette-tracker/internal/observability"
)

// WSConfig configures WSSource behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout bounds the wait for the next message.
	ReadTimeout time.Duration
	// WriteTimeout bounds control frame writes.
	WriteTimeout time.Duration
	// Headers are sent with the handshake.
	Headers http.Header
	// Clock drives reconnect backoff and pings. Nil uses the real clock.
	Clock quartz.Clock
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource receives pushed table windows over a websocket and keeps the
// latest window per table until the next Poll.
type WSSource struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]Reading

	closed     atomic.Bool
	reconnects atomic.Int64
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewWSSource creates a websocket source. A nil config uses DefaultWSConfig.
// Call Start to connect.
func NewWSSource(endpoint string, config *WSConfig, logger *log.Logger) *WSSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WSSource{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.WithPrefix("ws"),
		pending:  make(map[string]Reading),
		done:     make(chan struct{}),
	}
}

var _ Source = (*WSSource)(nil)

// Start dials the endpoint and starts the read and ping loops.
// The first dial must succeed; later disconnects are retried with backoff.
func (s *WSSource) Start(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()
	return nil
}

func (s *WSSource) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, s.config.Headers)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.closed.Load() {
		conn.Close()
		return ErrSourceClosed
	}
	s.conn = conn
	return nil
}

// Poll returns the latest window of every table heard from since the
// previous Poll, ordered by table ID.
func (s *WSSource) Poll(ctx context.Context) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	s.pendingMu.Lock()
	out := make([]Reading, 0, len(s.pending))
	for _, r := range s.pending {
		out = append(out, r)
	}
	s.pending = make(map[string]Reading)
	s.pendingMu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out, nil
}

// Reconnects returns the number of reconnects performed so far.
func (s *WSSource) Reconnects() int64 {
	return s.reconnects.Load()
}

// Close closes the connection and stops background loops.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.config.WriteTimeout))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *WSSource) readLoop() {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.sleep(delay) {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := s.connect(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("reconnect failed", "err", err, "retry_in", delay)
				delay = s.backoff(delay)
				continue
			}
			s.reconnects.Add(1)
			observability.RecordWSReconnect()
			s.logger.Info("reconnected", "endpoint", s.endpoint)
			delay = s.config.ReconnectDelay
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Warn("connection lost", "err", err)
			s.connMu.Lock()
			if s.conn == conn {
				s.conn.Close()
				s.conn = nil
			}
			s.connMu.Unlock()
			continue
		}

		s.handleMessage(message)
	}
}

// sleep waits d and reports false if the source was closed meanwhile.
func (s *WSSource) sleep(d time.Duration) bool {
	timer := s.config.Clock.NewTimer(d, "ws", "reconnect")
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-timer.C:
		return true
	}
}

func (s *WSSource) backoff(d time.Duration) time.Duration {
	d *= 2
	if d > s.config.MaxReconnectDelay {
		d = s.config.MaxReconnectDelay
	}
	return d
}

// handleMessage accepts either a full feed document or a single table.
func (s *WSSource) handleMessage(message []byte) {
	dec := json.NewDecoder(bytes.NewReader(message))
	dec.UseNumber()

	var msg struct {
		feed
		tablePayload
	}
	if err := dec.Decode(&msg); err != nil {
		s.logger.Debug("skipping undecodable message", "err", err)
		return
	}

	tables := msg.Tables
	if msg.ID != "" {
		tables = append(tables, msg.tablePayload)
	}

	s.pendingMu.Lock()
	for _, t := range tables {
		if t.ID == "" {
			continue
		}
		s.pending[t.ID] = t.reading()
	}
	s.pendingMu.Unlock()
}

func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	if s.config.PingInterval <= 0 {
		return
	}
	ticker := s.config.Clock.NewTicker(s.config.PingInterval, "ws", "ping")
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				// A dead connection surfaces as a read error.
				_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
			}
			s.connMu.Unlock()
		}
	}
}
