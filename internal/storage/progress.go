package storage

import "context"

// SyncProgress is the watermark of a chain: every block up to Height is committed.
type SyncProgress struct {
	ChainAddress string
	Height       uint64
	RunID        string // seed or follow run that committed it
	UpdatedAt    int64  // unix seconds
}

// ProgressStore exposes the per-chain watermarks. Progress is written
// only as part of SaveChain and ApplyBlock.
type ProgressStore interface {
	// GetProgress returns the watermark of a chain. Returns ErrNotFound if not exists.
	GetProgress(ctx context.Context, chainAddress string) (*SyncProgress, error)

	// ListProgress returns all watermarks ordered by chain address.
	ListProgress(ctx context.Context) ([]*SyncProgress, error)
}
