package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-auth-actions/internal/config"
	"github.com/goliatone/go-auth-actions/internal/logger"
	"github.com/goliatone/go-auth-actions/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and seed configured clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		db, err := openDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		clients := cfg.ActionClients()
		if err := repository.NewManager(db).Migrate(context.Background(), clients); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		for _, client := range clients {
			log.Info("seeded client %s", client.ClientID)
		}

		log.Info("migration done")
		return nil
	},
}
