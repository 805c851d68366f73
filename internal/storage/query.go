package storage

import (
	"context"

	"phantasma-explorer/internal/domain"
)

// DefaultPageLimit is used when a Page has no limit.
const DefaultPageLimit = 50

// MaxPageLimit caps page sizes.
const MaxPageLimit = 500

// Page selects a window of a listing.
type Page struct {
	Offset int
	Limit  int
}

// Normalize returns the page with defaults applied.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// QueryStore is the read side used by explorer front ends.
type QueryStore interface {
	// GetChain returns a chain without its blocks. Returns ErrNotFound if not exists.
	GetChain(ctx context.Context, address string) (*domain.Chain, error)

	// ListChains returns all chains in the order they were recorded.
	ListChains(ctx context.Context) ([]*domain.Chain, error)

	// ListBlocks returns blocks of a chain ordered by height ASC.
	ListBlocks(ctx context.Context, chainAddress string, page Page) ([]*domain.Block, error)

	// GetBlockByHash returns a block with its transactions and events. Returns ErrNotFound if not exists.
	GetBlockByHash(ctx context.Context, hash string) (*domain.Block, error)

	// GetBlockByHeight returns a block with its transactions and events. Returns ErrNotFound if not exists.
	GetBlockByHeight(ctx context.Context, chainAddress string, height uint64) (*domain.Block, error)

	// GetTransaction returns a transaction with its events. Returns ErrNotFound if not exists.
	GetTransaction(ctx context.Context, hash string) (*domain.Transaction, error)

	// GetAccount returns an account. Returns ErrNotFound if not exists.
	GetAccount(ctx context.Context, address string) (*domain.Account, error)

	// ListAccountTransactions returns transactions linked to an account, newest link first.
	ListAccountTransactions(ctx context.Context, address string, page Page) ([]*domain.Transaction, error)

	// GetToken returns a token. Returns ErrNotFound if not exists.
	GetToken(ctx context.Context, symbol string) (*domain.Token, error)

	// ListTokens returns all tokens ordered by symbol.
	ListTokens(ctx context.Context) ([]*domain.Token, error)

	// ListApps returns all apps ordered by ID.
	ListApps(ctx context.Context) ([]*domain.App, error)

	// ListTokenTransfers returns transfer events of a token, newest first.
	ListTokenTransfers(ctx context.Context, symbol string, page Page) ([]*domain.Event, error)
}

// Store is a complete read-model backend.
type Store interface {
	ReadModelStore
	QueryStore
	ProgressStore
}
