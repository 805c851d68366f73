package main

import (
	"context"
	"fmt"

	"phantasma-explorer/internal/storage"
	chstore "phantasma-explorer/internal/storage/clickhouse"
	"phantasma-explorer/internal/storage/memory"
	"phantasma-explorer/internal/storage/postgres"
)

// backend is the opened read-model and optional transfer archive.
type backend struct {
	store   storage.Store
	archive storage.TransferArchive
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func (a *app) openBackend(ctx context.Context) (*backend, error) {
	if a.cfg.UseMemory {
		a.logger.Info().Msg("using in-memory storage")
		return &backend{
			store:   memory.NewStore(),
			archive: memory.NewTransferArchive(),
		}, nil
	}

	pool, err := postgres.NewPool(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	b := &backend{
		store:   postgres.NewStore(pool),
		closers: []func(){pool.Close},
	}

	if a.cfg.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, a.cfg.ClickhouseDSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		b.archive = chstore.NewTransferArchive(conn)
		b.closers = append(b.closers, func() { conn.Close() })
	}
	return b, nil
}
