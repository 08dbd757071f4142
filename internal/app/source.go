package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"roulette-tracker/internal/config"
	"roulette-tracker/internal/ingestion"
	"roulette-tracker/internal/ingestion/stub"
)

// NewSource builds the configured feed. The returned close func is never nil.
func NewSource(ctx context.Context, cfg config.SourceConfig, logger *log.Logger) (ingestion.Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case config.SourceHTTP:
		src := ingestion.NewHTTPSource(cfg.URL,
			ingestion.WithTimeout(cfg.Timeout),
			ingestion.WithMaxRetries(cfg.MaxRetries),
			ingestion.WithHeaders(cfg.Headers),
		)
		return src, noop, nil

	case config.SourceWS:
		wsCfg := ingestion.DefaultWSConfig()
		if len(cfg.Headers) > 0 {
			wsCfg.Headers = make(http.Header, len(cfg.Headers))
			for k, v := range cfg.Headers {
				wsCfg.Headers.Set(k, v)
			}
		}
		src := ingestion.NewWSSource(cfg.URL, &wsCfg, logger)
		if err := src.Start(ctx); err != nil {
			return nil, noop, err
		}
		return src, src.Close, nil

	case config.SourceStub:
		return stub.New(), noop, nil
	}

	return nil, noop, fmt.Errorf("%w: %q", config.ErrInvalidSourceKind, cfg.Kind)
}
