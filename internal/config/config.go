// Package config loads the tracker configuration from a YAML file.
// ${VAR} references are expanded from the environment after an optional
// .env file has been loaded.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Validation errors.
var (
	ErrMissingSource     = errors.New("source url is required")
	ErrInvalidSourceKind = errors.New("source kind must be http, ws or stub")
	ErrMissingStorage    = errors.New("postgres_dsn is required unless use_memory is set")
	ErrInvalidLogFormat  = errors.New("log format must be text, json or logfmt")
	ErrInvalidValue      = errors.New("invalid value")
)

// Source kinds.
const (
	SourceHTTP = "http"
	SourceWS   = "ws"
	SourceStub = "stub"
)

// Config is the root configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Poll    PollConfig    `yaml:"poll"`
	Storage StorageConfig `yaml:"storage"`
	Stats   StatsConfig   `yaml:"stats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// SourceConfig selects and configures the number feed.
type SourceConfig struct {
	Kind       string            `yaml:"kind"`
	URL        string            `yaml:"url"`
	Headers    map[string]string `yaml:"headers"`
	Timeout    time.Duration     `yaml:"timeout"`
	MaxRetries int               `yaml:"max_retries"`
}

// PollConfig configures the polling loop.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	// MaxCandidates caps how many numbers of each window are considered,
	// 0 means the whole window.
	MaxCandidates int `yaml:"max_candidates"`
}

// StorageConfig configures persistence.
type StorageConfig struct {
	PostgresDSN      string `yaml:"postgres_dsn"`
	PostgresMaxConns int32  `yaml:"postgres_max_conns"` // 0 keeps the pgx default
	ClickhouseDSN    string `yaml:"clickhouse_dsn"`
	UseMemory        bool   `yaml:"use_memory"`
}

// StatsConfig configures the statistics aggregator.
type StatsConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	QueueSize     int           `yaml:"queue_size"`
	TopN          int           `yaml:"top_n"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:       SourceHTTP,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Poll: PollConfig{
			Interval: 5 * time.Second,
		},
		Stats: StatsConfig{
			FlushInterval: time.Minute,
			QueueSize:     1024,
			TopN:          5,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Override adjusts a decoded configuration before validation.
type Override func(*Config)

// Load reads .env (if present in the working directory) and the YAML file at path.
func Load(path string, overrides ...Override) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, overrides...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment references in data, decodes it over the
// defaults, applies overrides and validates the result.
func Parse(data []byte, overrides ...Override) (*Config, error) {
	cfg := Default()

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for _, o := range overrides {
		o(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	switch c.Source.Kind {
	case SourceHTTP, SourceWS:
		if c.Source.URL == "" {
			return ErrMissingSource
		}
	case SourceStub:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSourceKind, c.Source.Kind)
	}

	if c.Poll.Interval <= 0 {
		return fmt.Errorf("%w: poll.interval must be positive", ErrInvalidValue)
	}
	if c.Poll.MaxCandidates < 0 {
		return fmt.Errorf("%w: poll.max_candidates must not be negative", ErrInvalidValue)
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("%w: source.max_retries must not be negative", ErrInvalidValue)
	}
	if c.Stats.FlushInterval <= 0 {
		return fmt.Errorf("%w: stats.flush_interval must be positive", ErrInvalidValue)
	}

	if c.Storage.PostgresMaxConns < 0 {
		return fmt.Errorf("%w: storage.postgres_max_conns must not be negative", ErrInvalidValue)
	}
	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		return ErrMissingStorage
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Log.Level)
	}
	if _, err := c.Log.formatter(); err != nil {
		return err
	}
	return nil
}

func (c LogConfig) formatter() (log.Formatter, error) {
	switch strings.ToLower(c.Format) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Format)
}

// NewLogger builds the root logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level %q", ErrInvalidValue, c.Level)
	}
	formatter, err := c.formatter()
	if err != nil {
		return nil, err
	}

	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	}), nil
}
