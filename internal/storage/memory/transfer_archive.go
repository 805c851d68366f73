package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/storage"
)

// TransferArchive is an in-memory implementation of storage.TransferArchive.
type TransferArchive struct {
	mu   sync.RWMutex
	data map[string]*domain.Transfer // keyed by tx hash and event index
}

// Compile-time interface check.
var _ storage.TransferArchive = (*TransferArchive)(nil)

// NewTransferArchive creates a new in-memory transfer archive.
func NewTransferArchive() *TransferArchive {
	return &TransferArchive{
		data: make(map[string]*domain.Transfer),
	}
}

func transferKey(txHash string, eventIndex int) string {
	return fmt.Sprintf("%s|%d", txHash, eventIndex)
}

// InsertTransfers appends transfers, replacing rows with the same key.
func (a *TransferArchive) InsertTransfers(_ context.Context, transfers []*domain.Transfer) error {
	for _, t := range transfers {
		if t == nil || t.TransactionHash == "" || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range transfers {
		cp := *t
		a.data[transferKey(t.TransactionHash, t.EventIndex)] = &cp
	}
	return nil
}

// ListBySymbol returns transfers of a token, newest block first.
func (a *TransferArchive) ListBySymbol(_ context.Context, symbol string, page storage.Page) ([]*domain.Transfer, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []*domain.Transfer
	for _, t := range a.data {
		if t.Symbol == symbol {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockHeight != out[j].BlockHeight {
			return out[i].BlockHeight > out[j].BlockHeight
		}
		if out[i].TransactionHash != out[j].TransactionHash {
			return out[i].TransactionHash < out[j].TransactionHash
		}
		return out[i].EventIndex < out[j].EventIndex
	})
	return window(out, page), nil
}

// Len returns the number of archived transfers.
func (a *TransferArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}
