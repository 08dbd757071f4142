package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/quartz"
)

// Default HTTPSource configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPSource polls a JSON endpoint serving {"tables":[{"id","name","numbers"}]}.
type HTTPSource struct {
	endpoint    string
	client      *http.Client
	headers     http.Header
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	clock       quartz.Clock
}

// HTTPOption configures HTTPSource.
type HTTPOption func(*HTTPSource)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) HTTPOption {
	return func(s *HTTPSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.retryDelay = d
	}
}

// WithMaxDelay caps the retry delay.
func WithMaxDelay(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.maxDelay = d
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h map[string]string) HTTPOption {
	return func(s *HTTPSource) {
		for k, v := range h {
			s.headers.Set(k, v)
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// WithClock sets the clock driving retry backoff.
func WithClock(clock quartz.Clock) HTTPOption {
	return func(s *HTTPSource) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewHTTPSource creates a source polling endpoint.
func NewHTTPSource(endpoint string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		headers:     make(http.Header),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		clock:       quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Source = (*HTTPSource)(nil)

// Poll fetches the feed, retrying transport errors, 429 and 5xx responses
// with exponential backoff. Other 4xx responses fail immediately.
func (s *HTTPSource) Poll(ctx context.Context) ([]Reading, error) {
	delay := s.retryDelay
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			timer := s.clock.NewTimer(delay, "http", "backoff")
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * s.backoffMult)
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		body, retry, err := s.fetch(ctx)
		if err == nil {
			return decodeFeed(body)
		}
		if !retry || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// fetch performs one request and reports whether a failure is retryable.
func (s *HTTPSource) fetch(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited (429)")
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	default:
		return nil, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
}

// decodeFeed parses a feed document. Numbers keep their JSON form
// (json.Number or string) for the tracker to normalize.
func decodeFeed(body []byte) ([]Reading, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var f feed
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	out := make([]Reading, 0, len(f.Tables))
	for _, t := range f.Tables {
		out = append(out, t.reading())
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
