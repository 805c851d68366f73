package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/observability"
	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/storage"
)

// ErrAlreadyInitialized is returned by Run when the read-model already holds chains.
var ErrAlreadyInitialized = errors.New("read model already initialized")

// Seeder performs the one-shot cold-start population of the read-model.
type Seeder struct {
	*engine
}

// New creates a Seeder reading from rpc and writing to store.
func New(rpc phantasma.RPCClient, store storage.Store, opts Options) *Seeder {
	return &Seeder{engine: newEngine(rpc, store, opts)}
}

// RunID returns the identifier recorded with the watermarks of this seeder.
func (s *Seeder) RunID() string {
	return s.runID
}

// Run seeds apps, tokens and chains in that order. If the store already
// holds a chain it returns ErrAlreadyInitialized without calling the node.
// A failing chain is not persisted; chains committed before it stay.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: s.runID}

	exists, err := s.store.ChainsExist(ctx)
	if err != nil {
		return nil, fmt.Errorf("check chains: %w", err)
	}
	if exists {
		result.Skipped = true
		result.Duration = time.Since(start)
		observability.RecordSeedRun("skipped", result.Duration.Seconds())
		s.logger.Info().Msg("read model already initialized, skipping seed")
		return result, ErrAlreadyInitialized
	}

	s.logger.Info().Msg("starting seed")

	if err := s.run(ctx, result); err != nil {
		result.Duration = time.Since(start)
		observability.RecordSeedRun("failed", result.Duration.Seconds())
		s.logger.Error().Err(err).Msg("seed failed")
		return result, err
	}

	result.Duration = time.Since(start)
	observability.RecordSeedRun("ok", result.Duration.Seconds())
	observability.MarkSynced()

	s.logger.Info().
		Int("apps", result.Apps).
		Int("tokens", result.Tokens).
		Int("chains", result.Chains).
		Int("blocks", result.Blocks).
		Int("transactions", result.Transactions).
		Int("events", result.Events).
		Int("accounts", result.Accounts).
		Int("links", result.Links).
		Dur("duration", result.Duration).
		Msg("seed complete")
	return result, nil
}

func (s *Seeder) run(ctx context.Context, result *Result) error {
	if err := s.seedApps(ctx, result); err != nil {
		return fmt.Errorf("seed apps: %w", err)
	}
	if err := s.seedTokens(ctx, result); err != nil {
		return fmt.Errorf("seed tokens: %w", err)
	}

	chains, err := s.listChains(ctx)
	if err != nil {
		return fmt.Errorf("seed chains: %w", err)
	}

	for _, c := range chains {
		if err := s.seedChain(ctx, c, result); err != nil {
			return fmt.Errorf("seed chain %s: %w", c.Name, err)
		}
	}
	return nil
}

func (s *Seeder) seedApps(ctx context.Context, result *Result) error {
	exists, err := s.store.AppsExist(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug().Str("stage", "apps").Msg("apps already recorded")
		return nil
	}

	apps, err := s.rpcApps(ctx)
	if err != nil {
		return err
	}
	for _, a := range apps {
		app := &domain.App{
			ID:          a.ID,
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			Icon:        a.Icon,
		}
		if err := s.store.UpsertApp(ctx, app); err != nil {
			return fmt.Errorf("app %s: %w", a.ID, err)
		}
		result.Apps++
	}

	s.logger.Info().Str("stage", "apps").Int("count", result.Apps).Msg("apps seeded")
	return nil
}

func (s *Seeder) seedTokens(ctx context.Context, result *Result) error {
	exists, err := s.store.TokensExist(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug().Str("stage", "tokens").Msg("tokens already recorded")
		return nil
	}

	tokens, err := s.rpcTokens(ctx)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		token, err := convertToken(t)
		if err != nil {
			return fmt.Errorf("token %s: %w", t.Symbol, err)
		}
		if err := s.store.UpsertToken(ctx, token); err != nil {
			return fmt.Errorf("token %s: %w", t.Symbol, err)
		}
		result.Tokens++
	}

	s.logger.Info().Str("stage", "tokens").Int("count", result.Tokens).Msg("tokens seeded")
	return nil
}

func convertToken(t phantasma.Token) (*domain.Token, error) {
	if uint64(t.Decimals) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: decimals %d out of range", storage.ErrInvalidInput, uint64(t.Decimals))
	}
	flags, err := domain.ParseTokenFlags(t.Flags)
	if err != nil {
		return nil, err
	}
	maxSupply, err := domain.NormalizeSupply(t.MaxSupply)
	if err != nil {
		return nil, err
	}
	currentSupply, err := domain.NormalizeSupply(t.CurrentSupply)
	if err != nil {
		return nil, err
	}
	return &domain.Token{
		Symbol:        t.Symbol,
		Name:          t.Name,
		Decimals:      uint32(t.Decimals),
		Flags:         flags,
		MaxSupply:     maxSupply,
		CurrentSupply: currentSupply,
		OwnerAddress:  t.OwnerAddress,
		Platform:      t.Platform,
		Hash:          t.Hash,
	}, nil
}

// listChains fetches the chains and rejects a response naming an address twice.
func (e *engine) listChains(ctx context.Context) ([]phantasma.Chain, error) {
	chains, err := e.rpcChains(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(chains))
	for _, c := range chains {
		if seen[c.Address] {
			return nil, fmt.Errorf("chain %s listed twice: %w", c.Address, storage.ErrDuplicateKey)
		}
		seen[c.Address] = true
	}
	return chains, nil
}

// seedChain walks a chain from height 1 and commits it with its watermark
// in one batch.
func (e *engine) seedChain(ctx context.Context, c phantasma.Chain, result *Result) error {
	log := e.logger.With().Str("chain", c.Name).Str("stage", "chain").Logger()

	chain := &domain.Chain{
		Address: c.Address,
		Name:    c.Name,
	}
	if c.ParentAddress != "" {
		parent := c.ParentAddress
		chain.ParentAddress = &parent
	}

	batch := &storage.ChainBatch{Chain: chain}
	lk := newLinker(e.store)

	// The chain address is also an account.
	if _, err := lk.ensureAccount(ctx, chain.Address, &batch.Writes); err != nil {
		return err
	}

	height, err := e.blockHeight(ctx, chain.Address)
	if err != nil {
		return fmt.Errorf("block height: %w", err)
	}
	chain.Height = height
	chain.Blocks = make([]*domain.Block, 0, height)

	log.Info().Uint64("height", height).Msg("walking chain")

	var transfers []*domain.Transfer
	err = e.walk(ctx, chain.Address, 1, height, func(h uint64, src *phantasma.Block) error {
		block, trs, err := convertBlock(ctx, chain, h, src, lk, &batch.Writes)
		if err != nil {
			return fmt.Errorf("block %d: %w", h, err)
		}
		chain.Blocks = append(chain.Blocks, block)
		transfers = append(transfers, trs...)
		if h%1000 == 0 {
			log.Debug().Uint64("height", h).Msg("walk progress")
		}
		return nil
	})
	if err != nil {
		return err
	}

	batch.Progress = storage.SyncProgress{
		ChainAddress: chain.Address,
		Height:       height,
		RunID:        e.runID,
		UpdatedAt:    time.Now().Unix(),
	}
	if err := e.store.SaveChain(ctx, batch); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	stats := countBlocks(chain.Blocks)
	result.Chains++
	result.Blocks += len(chain.Blocks)
	result.Transactions += stats.transactions
	result.Events += stats.events
	result.Transfers += len(transfers)
	result.Accounts += len(batch.Accounts)
	result.Links += len(batch.Links)

	e.recordCommitted(chain.Name, height, chain.Blocks, &batch.Writes)
	e.export(ctx, chain.Name, transfers)

	log.Info().
		Uint64("height", height).
		Int("transactions", stats.transactions).
		Int("events", stats.events).
		Msg("chain seeded")
	return nil
}

// recordCommitted updates ingestion metrics for committed blocks.
func (e *engine) recordCommitted(chainName string, height uint64, blocks []*domain.Block, w *storage.Writes) {
	stats := countBlocks(blocks)
	observability.RecordBlocks(chainName, len(blocks), height)
	observability.RecordTransactions(stats.transactions)
	for kind, n := range stats.kinds {
		observability.RecordEvents(kind.String(), n)
	}
	for symbol, n := range w.TokenCounts {
		observability.RecordTransfers(symbol, n)
	}
	observability.RecordAccountsCreated(len(w.Accounts))
}

// export copies committed transfers to the archive. Failures are logged and counted.
func (e *engine) export(ctx context.Context, chainName string, transfers []*domain.Transfer) {
	if e.archive == nil || len(transfers) == 0 {
		return
	}
	if err := e.archive.InsertTransfers(ctx, transfers); err != nil {
		observability.RecordArchiveError()
		e.logger.Warn().Err(err).Str("chain", chainName).Int("transfers", len(transfers)).Msg("transfer export failed")
	}
}

func (e *engine) rpcApps(ctx context.Context) ([]phantasma.App, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.rpc.GetApplications(ctx)
}

func (e *engine) rpcTokens(ctx context.Context) ([]phantasma.Token, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.rpc.GetTokens(ctx)
}

func (e *engine) rpcChains(ctx context.Context) ([]phantasma.Chain, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.rpc.GetChains(ctx)
}

func (e *engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.rpcTimeout > 0 {
		return context.WithTimeout(ctx, e.rpcTimeout)
	}
	return context.WithCancel(ctx)
}
