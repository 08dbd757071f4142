// Command report writes a Markdown report and a per-table CSV from the stores.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"roulette-tracker/internal/app"
	"roulette-tracker/internal/config"
	"roulette-tracker/internal/reporting"
)

var CLI struct {
	Config    string `short:"c" default:"tracker.yaml" help:"Path to YAML configuration file"`
	OutputDir string `short:"o" default:"output" help:"Output directory for generated files"`
	UseMemory bool   `help:"Use in-memory storage instead of PostgreSQL"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("report"),
		kong.Description("Generate REPORT.md and tables.csv from stored spins and statistics"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(run(context.Background()))
}

func run(ctx context.Context) error {
	cfg, err := config.Load(CLI.Config, func(c *config.Config) {
		if CLI.UseMemory {
			c.Storage.UseMemory = true
		}
	})
	if err != nil {
		return err
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(ctx, cfg.Storage, false, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	rep, err := reporting.NewGenerator(stores.Stats, stores.Spins).Generate(ctx)
	if err != nil {
		return err
	}
	for _, e := range rep.IntegrityErrors {
		logger.Warn("Integrity check failed", "err", e)
	}

	csv, err := reporting.RenderCSV(rep.Tables)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(CLI.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string]string{
		"REPORT.md":  reporting.RenderMarkdown(rep),
		"tables.csv": csv,
	}
	for name, content := range files {
		path := filepath.Join(CLI.OutputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		logger.Info("Wrote", "path", path)
	}
	return nil
}
