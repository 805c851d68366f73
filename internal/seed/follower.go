package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/observability"
	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/storage"
)

// ErrNotInitialized is returned by Follower.Run when no chain has been seeded.
var ErrNotInitialized = errors.New("read model not initialized")

// Follower keeps a seeded read-model up to date, one committed block at a time.
type Follower struct {
	*engine
	pollInterval time.Duration
	heads        phantasma.HeadSubscriber
}

// NewFollower creates a Follower reading from rpc and writing to store.
func NewFollower(rpc phantasma.RPCClient, store storage.Store, opts FollowOptions) *Follower {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Follower{
		engine:       newEngine(rpc, store, opts.Options),
		pollInterval: interval,
		heads:        opts.Heads,
	}
}

// Run catches up all recorded chains, then repeats on every head
// notification or poll tick until ctx is done. Transient failures are
// logged and retried on the next pass; invalid or conflicting writes stop it.
func (f *Follower) Run(ctx context.Context) error {
	exists, err := f.store.ChainsExist(ctx)
	if err != nil {
		return fmt.Errorf("check chains: %w", err)
	}
	if !exists {
		return ErrNotInitialized
	}

	trigger := make(chan struct{}, 1)
	if f.heads != nil {
		if err := f.subscribe(ctx, trigger); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	f.logger.Info().Dur("poll_interval", f.pollInterval).Bool("heads", f.heads != nil).Msg("following chains")

	for {
		if _, err := f.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, storage.ErrInvalidInput) || errors.Is(err, storage.ErrDuplicateKey) {
				return err
			}
			f.logger.Warn().Err(err).Msg("follow pass failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-trigger:
		}
	}
}

// subscribe forwards head notifications of every recorded chain to trigger.
// A chain whose subscription fails is left to polling.
func (f *Follower) subscribe(ctx context.Context, trigger chan<- struct{}) error {
	chains, err := f.store.ListChains(ctx)
	if err != nil {
		return fmt.Errorf("list chains: %w", err)
	}

	for _, c := range chains {
		heads, err := f.heads.SubscribeHeads(ctx, c.Address)
		if err != nil {
			f.logger.Warn().Err(err).Str("chain", c.Name).Msg("head subscription failed, polling")
			continue
		}
		go func(name string, heads <-chan phantasma.HeadNotification) {
			for head := range heads {
				f.logger.Debug().Str("chain", name).Uint64("height", head.Height).Msg("new head")
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}(c.Name, heads)
	}
	return nil
}

// SyncOnce seeds every chain the node lists that has no watermark yet, then
// applies every block above each recorded chain's watermark up to the node's height.
// A failure to seed a missing chain does not hold back the recorded ones.
func (f *Follower) SyncOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: f.runID}

	seedErr := f.seedMissing(ctx, result)

	chains, err := f.store.ListChains(ctx)
	if err != nil {
		result.Duration = time.Since(start)
		return result, errors.Join(seedErr, fmt.Errorf("list chains: %w", err))
	}

	for _, c := range chains {
		if err := f.syncChain(ctx, c, result); err != nil {
			result.Duration = time.Since(start)
			return result, errors.Join(seedErr, fmt.Errorf("follow chain %s: %w", c.Name, err))
		}
	}

	result.Duration = time.Since(start)
	if seedErr != nil {
		return result, seedErr
	}
	if result.Blocks > 0 {
		observability.MarkSynced()
		f.logger.Info().
			Int("blocks", result.Blocks).
			Int("transactions", result.Transactions).
			Int("events", result.Events).
			Dur("duration", result.Duration).
			Msg("caught up")
	}
	return result, nil
}

// seedMissing cold-seeds, in node order, the chains without a watermark:
// those a failed seed never committed and those created since.
func (f *Follower) seedMissing(ctx context.Context, result *Result) error {
	chains, err := f.listChains(ctx)
	if err != nil {
		return fmt.Errorf("list node chains: %w", err)
	}
	progress, err := f.store.ListProgress(ctx)
	if err != nil {
		return fmt.Errorf("list progress: %w", err)
	}
	recorded := make(map[string]bool, len(progress))
	for _, p := range progress {
		recorded[p.ChainAddress] = true
	}

	for _, c := range chains {
		if recorded[c.Address] {
			continue
		}
		f.logger.Info().Str("chain", c.Name).Msg("chain has no watermark, seeding")
		if err := f.seedChain(ctx, c, result); err != nil {
			return fmt.Errorf("seed chain %s: %w", c.Name, err)
		}
	}
	return nil
}

func (f *Follower) syncChain(ctx context.Context, chain *domain.Chain, result *Result) error {
	var from uint64 = 1
	progress, err := f.store.GetProgress(ctx, chain.Address)
	switch {
	case err == nil:
		from = progress.Height + 1
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("get progress: %w", err)
	}

	height, err := f.blockHeight(ctx, chain.Address)
	if err != nil {
		return fmt.Errorf("block height: %w", err)
	}
	if height < from {
		return nil
	}

	log := f.logger.With().Str("chain", chain.Name).Logger()
	log.Debug().Uint64("from", from).Uint64("to", height).Msg("applying blocks")

	lk := newLinker(f.store)
	return f.walk(ctx, chain.Address, from, height, func(h uint64, src *phantasma.Block) error {
		batch := &storage.BlockBatch{ChainAddress: chain.Address}
		block, transfers, err := convertBlock(ctx, chain, h, src, lk, &batch.Writes)
		if err != nil {
			return fmt.Errorf("block %d: %w", h, err)
		}
		batch.Block = block
		batch.Progress = storage.SyncProgress{
			ChainAddress: chain.Address,
			Height:       h,
			RunID:        f.runID,
			UpdatedAt:    time.Now().Unix(),
		}
		if err := f.store.ApplyBlock(ctx, batch); err != nil {
			return fmt.Errorf("block %d: apply: %w", h, err)
		}

		stats := countBlocks([]*domain.Block{block})
		result.Blocks++
		result.Transactions += stats.transactions
		result.Events += stats.events
		result.Transfers += len(transfers)
		result.Accounts += len(batch.Accounts)
		result.Links += len(batch.Links)

		f.recordCommitted(chain.Name, h, []*domain.Block{block}, &batch.Writes)
		f.export(ctx, chain.Name, transfers)
		return nil
	})
}
