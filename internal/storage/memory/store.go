package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/storage"
)

type linkKey struct {
	address string
	txHash  string
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu sync.RWMutex

	apps   map[string]*domain.App
	tokens map[string]*domain.Token

	chains     map[string]*domain.Chain // without blocks
	chainOrder []string

	blocks      map[string]*domain.Block // keyed by hash, without transactions
	chainBlocks map[string][]string      // chain address -> block hashes by height ASC
	txs         map[string]*domain.Transaction
	blockTxs    map[string][]string // block hash -> tx hashes in block order
	txBlock     map[string]string   // tx hash -> block hash
	events      map[string][]*domain.Event
	transfers   map[string][]*domain.Event // symbol -> transfer events in commit order

	accounts   map[string]*domain.Account
	links      map[linkKey]struct{}
	accountTxs map[string][]string // address -> tx hashes in link order

	progress map[string]*storage.SyncProgress
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// NewStore creates a new in-memory read-model store.
func NewStore() *Store {
	return &Store{
		apps:        make(map[string]*domain.App),
		tokens:      make(map[string]*domain.Token),
		chains:      make(map[string]*domain.Chain),
		blocks:      make(map[string]*domain.Block),
		chainBlocks: make(map[string][]string),
		txs:         make(map[string]*domain.Transaction),
		blockTxs:    make(map[string][]string),
		txBlock:     make(map[string]string),
		events:      make(map[string][]*domain.Event),
		transfers:   make(map[string][]*domain.Event),
		accounts:    make(map[string]*domain.Account),
		links:       make(map[linkKey]struct{}),
		accountTxs:  make(map[string][]string),
		progress:    make(map[string]*storage.SyncProgress),
	}
}

// ChainsExist reports whether at least one chain is recorded.
func (s *Store) ChainsExist(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chains) > 0, nil
}

// AppsExist reports whether at least one app is recorded.
func (s *Store) AppsExist(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps) > 0, nil
}

// TokensExist reports whether at least one token is recorded.
func (s *Store) TokensExist(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens) > 0, nil
}

// UpsertApp inserts or replaces an app keyed by ID.
func (s *Store) UpsertApp(_ context.Context, app *domain.App) error {
	if app == nil || app.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *app
	s.apps[app.ID] = &cp
	return nil
}

// UpsertToken inserts or replaces a token keyed by symbol, keeping its counter.
func (s *Store) UpsertToken(_ context.Context, token *domain.Token) error {
	if token == nil || token.Symbol == "" {
		return storage.ErrInvalidInput
	}
	maxSupply, err := domain.NormalizeSupply(token.MaxSupply)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	currentSupply, err := domain.NormalizeSupply(token.CurrentSupply)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	cp.MaxSupply = maxSupply
	cp.CurrentSupply = currentSupply
	if existing, ok := s.tokens[token.Symbol]; ok {
		cp.TransactionCount = existing.TransactionCount
	}
	s.tokens[token.Symbol] = &cp
	return nil
}

// FindAccount returns the account with the given address.
func (s *Store) FindAccount(_ context.Context, address string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// CreateAccount records an account. No-op if the address exists.
func (s *Store) CreateAccount(_ context.Context, account *domain.Account) error {
	if account == nil || account.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.createAccountLocked(account)
	return nil
}

// AccountHasTransaction reports whether the account is linked to the transaction.
func (s *Store) AccountHasTransaction(_ context.Context, address, txHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.links[linkKey{address, txHash}]
	return ok, nil
}

// LinkAccountTransaction links an account to a transaction at most once.
func (s *Store) LinkAccountTransaction(_ context.Context, address, txHash string) (bool, error) {
	if address == "" || txHash == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[address]; !ok {
		return false, fmt.Errorf("link %s: account %w", address, storage.ErrNotFound)
	}
	return s.linkLocked(address, txHash), nil
}

// IncrementTokenTransferCount adds delta to a token's TransactionCount.
func (s *Store) IncrementTokenTransferCount(_ context.Context, symbol string, delta int64) error {
	if delta < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tokens[symbol]; ok {
		t.TransactionCount += delta
	}
	return nil
}

// SaveChain atomically records a chain and everything collected for it.
func (s *Store) SaveChain(_ context.Context, batch *storage.ChainBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chains[batch.Chain.Address]; exists {
		return fmt.Errorf("chain %s: %w", batch.Chain.Address, storage.ErrDuplicateKey)
	}
	if err := s.checkBlocksLocked(batch.Chain.Blocks); err != nil {
		return err
	}

	chain := *batch.Chain
	chain.Blocks = nil
	s.chains[chain.Address] = &chain
	s.chainOrder = append(s.chainOrder, chain.Address)

	for _, b := range batch.Chain.Blocks {
		s.putBlockLocked(chain.Address, b)
	}
	s.applyWritesLocked(&batch.Writes)
	s.setProgressLocked(batch.Progress)
	return nil
}

// ApplyBlock atomically appends one block to a recorded chain.
func (s *Store) ApplyBlock(_ context.Context, batch *storage.BlockBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chain, ok := s.chains[batch.ChainAddress]
	if !ok {
		return fmt.Errorf("chain %s: %w", batch.ChainAddress, storage.ErrNotFound)
	}

	var current uint64
	if p, ok := s.progress[batch.ChainAddress]; ok {
		current = p.Height
	}
	if batch.Block.Height != current+1 {
		return fmt.Errorf("%w: chain %s at height %d cannot apply block %d",
			storage.ErrInvalidInput, batch.ChainAddress, current, batch.Block.Height)
	}
	if err := s.checkBlocksLocked([]*domain.Block{batch.Block}); err != nil {
		return err
	}

	s.putBlockLocked(batch.ChainAddress, batch.Block)
	if batch.Block.Height > chain.Height {
		chain.Height = batch.Block.Height
	}
	s.applyWritesLocked(&batch.Writes)
	s.setProgressLocked(batch.Progress)
	return nil
}

// checkBlocksLocked rejects blocks or transactions already recorded or repeated in the batch.
func (s *Store) checkBlocksLocked(blocks []*domain.Block) error {
	seenBlocks := make(map[string]bool, len(blocks))
	seenTxs := make(map[string]bool)
	for _, b := range blocks {
		if b.Hash == "" {
			return fmt.Errorf("%w: block %d without hash", storage.ErrInvalidInput, b.Height)
		}
		if _, ok := s.blocks[b.Hash]; ok || seenBlocks[b.Hash] {
			return fmt.Errorf("block %s: %w", b.Hash, storage.ErrDuplicateKey)
		}
		seenBlocks[b.Hash] = true
		for _, tx := range b.Transactions {
			if _, ok := s.txs[tx.Hash]; ok || seenTxs[tx.Hash] {
				return fmt.Errorf("transaction %s: %w", tx.Hash, storage.ErrDuplicateKey)
			}
			seenTxs[tx.Hash] = true
		}
	}
	return nil
}

func (s *Store) putBlockLocked(chainAddress string, b *domain.Block) {
	block := *b
	block.ChainAddress = chainAddress
	block.Transactions = nil
	s.blocks[block.Hash] = &block
	s.chainBlocks[chainAddress] = append(s.chainBlocks[chainAddress], block.Hash)

	for _, t := range b.Transactions {
		tx := *t
		tx.BlockHash = block.Hash
		tx.Events = nil
		s.txs[tx.Hash] = &tx
		s.blockTxs[block.Hash] = append(s.blockTxs[block.Hash], tx.Hash)
		s.txBlock[tx.Hash] = block.Hash

		evs := make([]*domain.Event, 0, len(t.Events))
		for _, e := range t.Events {
			ev := *e
			ev.TransactionHash = tx.Hash
			evs = append(evs, &ev)
			if ev.TokenSymbol != "" {
				s.transfers[ev.TokenSymbol] = append(s.transfers[ev.TokenSymbol], &ev)
			}
		}
		s.events[tx.Hash] = evs
	}
}

func (s *Store) applyWritesLocked(w *storage.Writes) {
	for _, a := range w.Accounts {
		s.createAccountLocked(a)
	}
	for _, l := range w.Links {
		s.linkLocked(l.AccountAddress, l.TransactionHash)
	}
	for symbol, delta := range w.TokenCounts {
		if t, ok := s.tokens[symbol]; ok {
			t.TransactionCount += delta
		}
	}
}

func (s *Store) createAccountLocked(a *domain.Account) {
	if _, exists := s.accounts[a.Address]; exists {
		return
	}
	cp := *a
	if cp.Kind == "" {
		cp.Kind = domain.AccountKindUnknown
	}
	s.accounts[a.Address] = &cp
}

func (s *Store) linkLocked(address, txHash string) bool {
	key := linkKey{address, txHash}
	if _, ok := s.links[key]; ok {
		return false
	}
	s.links[key] = struct{}{}
	s.accountTxs[address] = append(s.accountTxs[address], txHash)
	return true
}

func (s *Store) setProgressLocked(p storage.SyncProgress) {
	if p.UpdatedAt == 0 {
		p.UpdatedAt = time.Now().Unix()
	}
	s.progress[p.ChainAddress] = &p
}
