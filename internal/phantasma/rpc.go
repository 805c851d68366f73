package phantasma

import "context"

// RPCClient defines the Phantasma node RPC surface consumed by the indexer.
type RPCClient interface {
	// GetApplications retrieves the application directory.
	GetApplications(ctx context.Context) ([]App, error)

	// GetTokens retrieves the token directory.
	GetTokens(ctx context.Context) ([]Token, error)

	// GetChains retrieves all chains of the nexus, root chain first.
	GetChains(ctx context.Context) ([]Chain, error)

	// GetBlockHeight retrieves the current height of a chain.
	GetBlockHeight(ctx context.Context, chainAddress string) (uint64, error)

	// GetBlockByHeight retrieves a block of a chain by height.
	GetBlockByHeight(ctx context.Context, chainAddress string, height uint64) (*Block, error)
}
