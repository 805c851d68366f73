package seed

import (
	"context"
	"errors"
	"fmt"

	"phantasma-explorer/internal/address"
	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/storage"
)

type linkKey struct {
	address string
	txHash  string
}

// linker decides which accounts and account-transaction links a batch must
// write. It remembers what it has already scheduled so a repeated reference
// adds nothing, and consults the store for accounts that predate the run.
// A linker is discarded when the batch it fed fails to commit.
type linker struct {
	store storage.ReadModelStore

	// known maps every address seen to whether it existed in the store before this run.
	known map[string]bool
	links map[linkKey]bool
}

func newLinker(store storage.ReadModelStore) *linker {
	return &linker{
		store: store,
		known: make(map[string]bool),
		links: make(map[linkKey]bool),
	}
}

// ensureAccount schedules creation of an unknown account.
// Returns whether the account was already in the store.
func (l *linker) ensureAccount(ctx context.Context, addr string, w *storage.Writes) (bool, error) {
	if stored, ok := l.known[addr]; ok {
		return stored, nil
	}

	_, err := l.store.FindAccount(ctx, addr)
	switch {
	case err == nil:
		l.known[addr] = true
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		w.Accounts = append(w.Accounts, &domain.Account{
			Address: addr,
			Kind:    address.AccountKind(addr),
		})
		l.known[addr] = false
		return false, nil
	default:
		return false, fmt.Errorf("find account %s: %w", addr, err)
	}
}

// link schedules an account-transaction link unless it exists or is already scheduled.
func (l *linker) link(ctx context.Context, addr, txHash string, w *storage.Writes) error {
	if addr == "" {
		return nil
	}

	stored, err := l.ensureAccount(ctx, addr, w)
	if err != nil {
		return err
	}

	key := linkKey{address: addr, txHash: txHash}
	if l.links[key] {
		return nil
	}
	l.links[key] = true

	if stored {
		has, err := l.store.AccountHasTransaction(ctx, addr, txHash)
		if err != nil {
			return fmt.Errorf("check link %s/%s: %w", addr, txHash, err)
		}
		if has {
			return nil
		}
	}

	w.Links = append(w.Links, domain.AccountTransaction{AccountAddress: addr, TransactionHash: txHash})
	return nil
}
