package main

import (
	"context"

	"roulette-tracker/internal/app"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if cfg.Storage.UseMemory {
		logger.Info("In-memory storage, nothing to migrate")
		return nil
	}

	stores, err := app.OpenStores(context.Background(), cfg.Storage, true, logger)
	if err != nil {
		return err
	}
	stores.Close()

	logger.Info("Migrations applied")
	return nil
}
