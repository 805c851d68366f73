package storage

import (
	"context"
	"fmt"

	"phantasma-explorer/internal/domain"
)

// ReadModelStore is the write side of the explorer read-model.
// All methods except SaveChain and ApplyBlock are idempotent.
type ReadModelStore interface {
	// ChainsExist reports whether at least one chain is recorded.
	ChainsExist(ctx context.Context) (bool, error)

	// AppsExist reports whether at least one app is recorded.
	AppsExist(ctx context.Context) (bool, error)

	// TokensExist reports whether at least one token is recorded.
	TokensExist(ctx context.Context) (bool, error)

	// UpsertApp inserts or replaces an app keyed by ID.
	UpsertApp(ctx context.Context, app *domain.App) error

	// UpsertToken inserts or replaces a token keyed by symbol.
	// An existing TransactionCount is preserved.
	UpsertToken(ctx context.Context, token *domain.Token) error

	// FindAccount returns the account with the given address. Returns ErrNotFound if not exists.
	FindAccount(ctx context.Context, address string) (*domain.Account, error)

	// CreateAccount records an account. No-op if the address exists.
	CreateAccount(ctx context.Context, account *domain.Account) error

	// AccountHasTransaction reports whether the account is linked to the transaction.
	AccountHasTransaction(ctx context.Context, address, txHash string) (bool, error)

	// LinkAccountTransaction links an account to a transaction at most once.
	// Returns true if a new link was recorded.
	LinkAccountTransaction(ctx context.Context, address, txHash string) (bool, error)

	// IncrementTokenTransferCount adds delta to a token's TransactionCount.
	// Unknown symbols are ignored.
	IncrementTokenTransferCount(ctx context.Context, symbol string, delta int64) error

	// SaveChain atomically records a chain with all its blocks, transactions,
	// events, new accounts, links, counter deltas and progress.
	// Returns ErrDuplicateKey if the chain address exists.
	SaveChain(ctx context.Context, batch *ChainBatch) error

	// ApplyBlock atomically appends one block to a recorded chain and advances
	// its progress. The block must directly follow the recorded progress.
	ApplyBlock(ctx context.Context, batch *BlockBatch) error
}

// Writes collects the derived facts of a batch.
type Writes struct {
	// Accounts to create. Existing addresses are skipped.
	Accounts []*domain.Account
	// Links to record. Existing pairs are skipped.
	Links []domain.AccountTransaction
	// TokenCounts maps symbol to transfer count delta.
	TokenCounts map[string]int64
}

// ChainBatch is a chain with everything collected by its block walk.
type ChainBatch struct {
	Chain *domain.Chain
	Writes
	Progress SyncProgress
}

// BlockBatch is one block appended to an existing chain.
type BlockBatch struct {
	ChainAddress string
	Block        *domain.Block
	Writes
	Progress SyncProgress
}

// Validate checks that blocks are numbered 1..n without gaps and that
// progress matches the last block.
func (b *ChainBatch) Validate() error {
	if b == nil || b.Chain == nil || b.Chain.Address == "" {
		return fmt.Errorf("%w: chain batch without chain", ErrInvalidInput)
	}
	for i, block := range b.Chain.Blocks {
		if block.Height != uint64(i+1) {
			return fmt.Errorf("%w: chain %s block %d at position %d", ErrInvalidInput, b.Chain.Address, block.Height, i+1)
		}
	}
	if b.Progress.ChainAddress != b.Chain.Address || b.Progress.Height != uint64(len(b.Chain.Blocks)) {
		return fmt.Errorf("%w: chain %s progress %d does not match %d blocks",
			ErrInvalidInput, b.Chain.Address, b.Progress.Height, len(b.Chain.Blocks))
	}
	return nil
}

// Validate checks the batch is self-consistent.
func (b *BlockBatch) Validate() error {
	if b == nil || b.Block == nil || b.ChainAddress == "" {
		return fmt.Errorf("%w: block batch without block", ErrInvalidInput)
	}
	if b.Progress.ChainAddress != b.ChainAddress || b.Progress.Height != b.Block.Height {
		return fmt.Errorf("%w: chain %s progress %d does not match block %d",
			ErrInvalidInput, b.ChainAddress, b.Progress.Height, b.Block.Height)
	}
	return nil
}
