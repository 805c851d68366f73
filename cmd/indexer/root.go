package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"phantasma-explorer/internal/config"
	"phantasma-explorer/internal/observability"
	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/seed"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:           "indexer",
		Short:         "Phantasma block explorer indexer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}
	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newSeedCmd(a),
		newFollowCmd(a),
		newMigrateCmd(a),
		newLookupCmd(a),
	)
	return cmd
}

func (a *app) rpcClient() *phantasma.HTTPClient {
	return phantasma.NewHTTPClient(a.cfg.RPCEndpoint,
		phantasma.WithTimeout(a.cfg.RPCTimeout),
		phantasma.WithMaxRetries(a.cfg.RPCMaxRetries),
	)
}

func (a *app) seedOptions(b *backend) seed.Options {
	return seed.Options{
		FetchConcurrency: a.cfg.FetchConcurrency,
		RPCTimeout:       a.cfg.RPCTimeout,
		Archive:          b.archive,
		Logger:           &a.logger,
	}
}

// startMetrics serves /metrics and /health until ctx is done.
func (a *app) startMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info().Str("addr", a.cfg.MetricsAddr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
