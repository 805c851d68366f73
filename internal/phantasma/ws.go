package phantasma

import "context"

// HeadSubscriber delivers new-block notifications for chains.
type HeadSubscriber interface {
	// SubscribeHeads subscribes to new blocks of a chain. The returned channel
	// is closed when the subscriber is closed.
	SubscribeHeads(ctx context.Context, chainAddress string) (<-chan HeadNotification, error)

	// Close closes the underlying connection.
	Close() error
}

// HeadNotification announces a new block.
type HeadNotification struct {
	ChainAddress string
	Height       uint64
	Hash         string
}
