// Package ingestion polls roulette number feeds and hands every table's
// window to the tracker.
package ingestion

import (
	"context"
	"errors"
)

// ErrSourceClosed is returned by Poll after a source was closed.
var ErrSourceClosed = errors.New("source closed")

// Reading is one table's window of recent numbers, most recent first.
// Numbers are raw feed values; the tracker normalizes them.
type Reading struct {
	TableID   string
	TableName string
	Numbers   []any
}

// Source provides the current window of every table it knows.
type Source interface {
	Poll(ctx context.Context) ([]Reading, error)
}

// feed is the JSON document served by HTTP sources and pushed by
// websocket sources. A websocket message may also carry a single table.
type feed struct {
	Tables []tablePayload `json:"tables"`
}

type tablePayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Numbers []any  `json:"numbers"`
}

func (p tablePayload) reading() Reading {
	return Reading{TableID: p.ID, TableName: p.Name, Numbers: p.Numbers}
}
