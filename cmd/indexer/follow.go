package main

import (
	"context"

	"github.com/spf13/cobra"

	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/seed"
)

func newFollowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Apply new blocks to a seeded read model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			b, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer b.Close()

			a.startMetrics(ctx)
			return a.follow(ctx, a.rpcClient(), b, a.seedOptions(b))
		},
	}
}

// follow runs a Follower until ctx is done, using head notifications when
// a websocket endpoint is configured.
func (a *app) follow(ctx context.Context, rpc phantasma.RPCClient, b *backend, opts seed.Options) error {
	fopts := seed.FollowOptions{
		Options:      opts,
		PollInterval: a.cfg.PollInterval,
	}

	if a.cfg.WSEndpoint != "" {
		ws, err := phantasma.NewWSClient(ctx, a.cfg.WSEndpoint, nil, a.logger)
		if err != nil {
			a.logger.Warn().Err(err).Msg("websocket unavailable, polling")
		} else {
			defer ws.Close()
			fopts.Heads = ws
		}
	}

	return seed.NewFollower(rpc, b.store, fopts).Run(ctx)
}
