package observability

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"roulette-tracker/internal/domain"
)

// Health is the body of the /health response.
type Health struct {
	Status     string `json:"status"`
	Tables     int    `json:"tables"`
	LastPollAt int64  `json:"last_poll_at,omitempty"` // Unix milliseconds
}

// HealthFunc reports the current process health.
type HealthFunc func() Health

// StatsFunc returns the current statistics of every table.
type StatsFunc func() []*domain.TableStats

// Router returns the operational HTTP router with /metrics, /health and,
// when stats is not nil, /stats.
// A nil health func always reports "ok".
func Router(health HealthFunc, stats StatsFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		h := Health{Status: "ok"}
		if health != nil {
			h = health()
		}

		w.Header().Set("Content-Type", "application/json")
		if h.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(h)
	})

	if stats != nil {
		r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(stats())
		})
	}

	return r
}
