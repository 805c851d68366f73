package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"phantasma-explorer/internal/storage"
)

func newLookupCmd(a *app) *cobra.Command {
	var page storage.Page

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Query the read model",
	}
	cmd.PersistentFlags().IntVar(&page.Offset, "offset", 0, "listing offset")
	cmd.PersistentFlags().IntVar(&page.Limit, "limit", storage.DefaultPageLimit, "listing size")

	// run opens the store, calls fn and prints its result as JSON.
	run := func(fn func(cmd *cobra.Command, store storage.Store, args []string) (interface{}, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			out, err := fn(cmd, b.store, args)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "account <address>",
			Short: "Show an account and its transactions",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, store storage.Store, args []string) (interface{}, error) {
				ctx := cmd.Context()
				acc, err := store.GetAccount(ctx, args[0])
				if err != nil {
					return nil, fmt.Errorf("account %s: %w", args[0], err)
				}
				txs, err := store.ListAccountTransactions(ctx, args[0], page)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"account": acc, "transactions": txs}, nil
			}),
		},
		&cobra.Command{
			Use:   "tx <hash>",
			Short: "Show a transaction with its events",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(cmd *cobra.Command, store storage.Store, args []string) (interface{}, error) {
				tx, err := store.GetTransaction(cmd.Context(), args[0])
				if err != nil {
					return nil, fmt.Errorf("transaction %s: %w", args[0], err)
				}
				return tx, nil
			}),
		},
		&cobra.Command{
			Use:   "block <hash> | block <chain-address> <height>",
			Short: "Show a block by hash or by chain height",
			Args:  cobra.RangeArgs(1, 2),
			RunE: run(func(cmd *cobra.Command, store storage.Store, args []string) (interface{}, error) {
				ctx := cmd.Context()
				if len(args) == 1 {
					b, err := store.GetBlockByHash(ctx, args[0])
					if err != nil {
						return nil, fmt.Errorf("block %s: %w", args[0], err)
					}
					return b, nil
				}
				height, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid height %q: %w", args[1], err)
				}
				b, err := store.GetBlockByHeight(ctx, args[0], height)
				if err != nil {
					return nil, fmt.Errorf("block %s/%d: %w", args[0], height, err)
				}
				return b, nil
			}),
		},
		&cobra.Command{
			Use:   "token [symbol]",
			Short: "List tokens, or show a token and its transfer events",
			Args:  cobra.MaximumNArgs(1),
			RunE: run(func(cmd *cobra.Command, store storage.Store, args []string) (interface{}, error) {
				ctx := cmd.Context()
				if len(args) == 0 {
					return store.ListTokens(ctx)
				}
				token, err := store.GetToken(ctx, args[0])
				if err != nil {
					return nil, fmt.Errorf("token %s: %w", args[0], err)
				}
				transfers, err := store.ListTokenTransfers(ctx, args[0], page)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"token": token, "transfers": transfers}, nil
			}),
		},
		&cobra.Command{
			Use:   "chain [address]",
			Short: "List chains with their watermarks, or show one chain and its blocks",
			Args:  cobra.MaximumNArgs(1),
			RunE: run(func(cmd *cobra.Command, store storage.Store, args []string) (interface{}, error) {
				ctx := cmd.Context()
				if len(args) == 0 {
					chains, err := store.ListChains(ctx)
					if err != nil {
						return nil, err
					}
					progress, err := store.ListProgress(ctx)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"chains": chains, "progress": progress}, nil
				}
				chain, err := store.GetChain(ctx, args[0])
				if err != nil {
					return nil, fmt.Errorf("chain %s: %w", args[0], err)
				}
				blocks, err := store.ListBlocks(ctx, args[0], page)
				if err != nil {
					return nil, err
				}
				chain.Blocks = blocks
				return chain, nil
			}),
		},
		&cobra.Command{
			Use:   "apps",
			Short: "List the application directory",
			Args:  cobra.NoArgs,
			RunE: run(func(cmd *cobra.Command, store storage.Store, _ []string) (interface{}, error) {
				return store.ListApps(cmd.Context())
			}),
		},
	)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
