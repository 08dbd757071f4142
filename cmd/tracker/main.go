// Command tracker polls live roulette tables, deduplicates the reported
// numbers into spins and drives the terminal strategy for every table.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"roulette-tracker/internal/config"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config      string `short:"c" default:"tracker.yaml" help:"Path to YAML configuration file"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
	MetricsAddr string `help:"Metrics and health listen address (overrides config)"`
	UseMemory   bool   `help:"Use in-memory storage instead of PostgreSQL"`
}

// load reads the configuration file and applies flag overrides.
func (g *Globals) load() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(g.Config, func(c *config.Config) {
		if g.LogLevel != "" {
			c.Log.Level = g.LogLevel
		}
		if g.MetricsAddr != "" {
			c.Metrics.Addr = g.MetricsAddr
		}
		if g.UseMemory {
			c.Storage.UseMemory = true
		}
	})
	if err != nil {
		return nil, nil, err
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Run     RunCmd           `cmd:"" default:"withargs" help:"Poll the feed and track every table"`
	Migrate MigrateCmd       `cmd:"" help:"Apply database migrations and exit"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tracker"),
		kong.Description("Roulette spin tracker with terminal strategy signals"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
