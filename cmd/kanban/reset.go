package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kanban/internal/config"
	"kanban/internal/storage/sqlite"
)

// resetCmd wipes every collection in the database.
func resetCmd(flags *rootFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every task, sprint, user and setting from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errors.New("reset deletes all board data; pass --force to confirm")
			}
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.dbPath != "" {
				cfg.DBPath = flags.dbPath
			}
			level, _ := config.ParseLevel(cfg.LogLevel)
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			store, err := sqlite.Open(cfg.DBPath, logger)
			if err != nil {
				return fmt.Errorf("unable to open database: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			if err := store.Init(ctx); err != nil {
				return err
			}
			if err := store.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", cfg.DBPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Confirm deleting all data")
	return cmd
}
