package storage

import (
	"context"

	"phantasma-explorer/internal/domain"
)

// TransferArchive is an append-only analytics copy of transfer events.
type TransferArchive interface {
	// InsertTransfers appends transfers. Re-inserted rows collapse on
	// (transaction_hash, event_index).
	InsertTransfers(ctx context.Context, transfers []*domain.Transfer) error

	// ListBySymbol returns transfers of a token, newest block first.
	ListBySymbol(ctx context.Context, symbol string, page Page) ([]*domain.Transfer, error)
}
