// Command replay backtests the terminal strategy over stored spins.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"roulette-tracker/internal/app"
	"roulette-tracker/internal/config"
	"roulette-tracker/internal/replay"
)

var CLI struct {
	Config    string `short:"c" default:"tracker.yaml" help:"Path to YAML configuration file"`
	Table     string `short:"t" help:"Replay a single table (default: all tables)"`
	From      int64  `help:"Only spins observed at or after this Unix millisecond"`
	To        int64  `help:"Only spins observed at or before this Unix millisecond"`
	UseMemory bool   `help:"Use in-memory storage instead of PostgreSQL"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("replay"),
		kong.Description("Replay stored spins through a fresh strategy machine"),
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

	runner := replay.NewRunner(stores.Spins)

	var results []*replay.Result
	switch {
	case CLI.Table != "" && (CLI.From != 0 || CLI.To != 0):
		to := CLI.To
		if to == 0 {
			to = 1<<63 - 1
		}
		engine := replay.NewStrategyEngine()
		if err := runner.Run(ctx, CLI.Table, CLI.From, to, engine); err != nil {
			return err
		}
		results = append(results, engine.Result(CLI.Table))
	case CLI.Table != "":
		res, err := runner.Backtest(ctx, CLI.Table)
		if err != nil {
			return err
		}
		results = append(results, res)
	default:
		results, err = runner.BacktestAll(ctx)
		if err != nil {
			return err
		}
	}

	if len(results) == 0 {
		fmt.Println("No stored spins")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tSPINS\tCYCLES\tWINS\tLOSSES\tWIN RATE\tMAX LOSSES\tSTATE")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f%%\t%d\t%s\n",
			r.TableID, r.Spins, r.Cycles, r.Wins, r.Losses, r.WinRate*100, r.MaxConsecutiveLosses, r.FinalState)
	}
	return w.Flush()
}
