package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"phantasma-explorer/internal/seed"
)

func newSeedCmd(a *app) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty read model from the node",
		Long: `Seed walks apps, tokens and every chain of the node from height 1 and
commits each chain atomically. It does nothing if a chain is already recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			b, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			a.startMetrics(ctx)

			rpc := a.rpcClient()
			opts := a.seedOptions(b)
			result, err := seed.New(rpc, b.store, opts).Run(ctx)
			switch {
			case errors.Is(err, seed.ErrAlreadyInitialized):
				if !follow {
					a.logger.Info().Msg("chains missing from the read model are seeded by follow")
				}
			case err != nil:
				return err
			default:
				fmt.Fprintf(cmd.OutOrStdout(),
					"seeded %d apps, %d tokens, %d chains, %d blocks, %d transactions, %d events, %d accounts in %s\n",
					result.Apps, result.Tokens, result.Chains, result.Blocks,
					result.Transactions, result.Events, result.Accounts, result.Duration)
			}

			if follow {
				return a.follow(ctx, rpc, b, opts)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "keep following new blocks after seeding")
	return cmd
}
