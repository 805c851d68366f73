package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"phantasma-explorer/internal/storage/migrations"
	"phantasma-explorer/internal/storage/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if a.cfg.UseMemory {
				return errors.New("nothing to migrate with in-memory storage")
			}

			pool, err := postgres.NewPool(ctx, a.cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				return err
			}
			a.logger.Info().Strs("applied", applied).Msg("postgres migrations complete")

			if a.cfg.ClickhouseDSN != "" {
				conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.ClickhouseDSN)
				if err != nil {
					return err
				}
				conn.Close()
				a.logger.Info().Msg("clickhouse migrations complete")
			}
			return nil
		},
	}
}
