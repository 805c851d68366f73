package memory

import (
	"context"
	"sort"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/storage"
)

// GetChain returns a chain without its blocks.
func (s *Store) GetChain(_ context.Context, address string) (*domain.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chains[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneChain(c), nil
}

// ListChains returns all chains in the order they were recorded.
func (s *Store) ListChains(_ context.Context) ([]*domain.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Chain, 0, len(s.chainOrder))
	for _, addr := range s.chainOrder {
		out = append(out, cloneChain(s.chains[addr]))
	}
	return out, nil
}

// ListBlocks returns blocks of a chain ordered by height ASC.
func (s *Store) ListBlocks(_ context.Context, chainAddress string, page storage.Page) ([]*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := window(s.chainBlocks[chainAddress], page)
	out := make([]*domain.Block, 0, len(hashes))
	for _, h := range hashes {
		b := *s.blocks[h]
		out = append(out, &b)
	}
	return out, nil
}

// GetBlockByHash returns a block with its transactions and events.
func (s *Store) GetBlockByHash(_ context.Context, hash string) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.blocks[hash]; !ok {
		return nil, storage.ErrNotFound
	}
	return s.fullBlockLocked(hash), nil
}

// GetBlockByHeight returns a block with its transactions and events.
func (s *Store) GetBlockByHeight(_ context.Context, chainAddress string, height uint64) (*domain.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := s.chainBlocks[chainAddress]
	i := sort.Search(len(hashes), func(i int) bool {
		return s.blocks[hashes[i]].Height >= height
	})
	if i == len(hashes) || s.blocks[hashes[i]].Height != height {
		return nil, storage.ErrNotFound
	}
	return s.fullBlockLocked(hashes[i]), nil
}

// GetTransaction returns a transaction with its events.
func (s *Store) GetTransaction(_ context.Context, hash string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.txs[hash]; !ok {
		return nil, storage.ErrNotFound
	}
	return s.fullTxLocked(hash), nil
}

// GetAccount returns an account.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	return s.FindAccount(ctx, address)
}

// ListAccountTransactions returns transactions linked to an account, newest link first.
func (s *Store) ListAccountTransactions(_ context.Context, address string, page storage.Page) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := reversed(s.accountTxs[address])
	out := make([]*domain.Transaction, 0)
	for _, h := range window(hashes, page) {
		tx, ok := s.txs[h]
		if !ok {
			continue
		}
		cp := *tx
		out = append(out, &cp)
	}
	return out, nil
}

// GetToken returns a token.
func (s *Store) GetToken(_ context.Context, symbol string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ListTokens returns all tokens ordered by symbol.
func (s *Store) ListTokens(_ context.Context) ([]*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// ListApps returns all apps ordered by ID.
func (s *Store) ListApps(_ context.Context) ([]*domain.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.App, 0, len(s.apps))
	for _, a := range s.apps {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTokenTransfers returns transfer events of a token, newest first.
func (s *Store) ListTokenTransfers(_ context.Context, symbol string, page storage.Page) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.transfers[symbol]
	rev := make([]*domain.Event, len(all))
	for i, e := range all {
		rev[len(all)-1-i] = e
	}
	out := make([]*domain.Event, 0)
	for _, e := range window(rev, page) {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// GetProgress returns the watermark of a chain.
func (s *Store) GetProgress(_ context.Context, chainAddress string) (*storage.SyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[chainAddress]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListProgress returns all watermarks ordered by chain address.
func (s *Store) ListProgress(_ context.Context) ([]*storage.SyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.SyncProgress, 0, len(s.progress))
	for _, p := range s.progress {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainAddress < out[j].ChainAddress })
	return out, nil
}

func (s *Store) fullBlockLocked(hash string) *domain.Block {
	b := *s.blocks[hash]
	for _, txHash := range s.blockTxs[hash] {
		b.Transactions = append(b.Transactions, s.fullTxLocked(txHash))
	}
	return &b
}

func (s *Store) fullTxLocked(hash string) *domain.Transaction {
	tx := *s.txs[hash]
	for _, e := range s.events[hash] {
		ev := *e
		tx.Events = append(tx.Events, &ev)
	}
	return &tx
}

func cloneChain(c *domain.Chain) *domain.Chain {
	cp := *c
	cp.Blocks = nil
	if c.ParentAddress != nil {
		p := *c.ParentAddress
		cp.ParentAddress = &p
	}
	return &cp
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func window[T any](items []T, page storage.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}
