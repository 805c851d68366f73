package stub

import (
	"context"
	"fmt"
	"sync"

	"phantasma-explorer/internal/phantasma"
)

// RPCClient implements phantasma.RPCClient for testing.
// It is safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	Apps    []phantasma.App
	Tokens  []phantasma.Token
	Chains  []phantasma.Chain
	Heights map[string]uint64
	// Blocks is keyed by chain address, then height.
	Blocks map[string]map[uint64]*phantasma.Block

	// Errors injects a failure for a method name ("getBlockByHeight", ...).
	Errors map[string]error
	// BlockErrors injects a failure for a single chain height.
	BlockErrors map[string]map[uint64]error

	calls map[string]int
}

// Compile-time interface check.
var _ phantasma.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Heights:     make(map[string]uint64),
		Blocks:      make(map[string]map[uint64]*phantasma.Block),
		Errors:      make(map[string]error),
		BlockErrors: make(map[string]map[uint64]error),
		calls:       make(map[string]int),
	}
}

func (c *RPCClient) enter(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Errors[method]
}

// GetApplications returns the configured apps.
func (c *RPCClient) GetApplications(_ context.Context) ([]phantasma.App, error) {
	if err := c.enter("getApps"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]phantasma.App(nil), c.Apps...), nil
}

// GetTokens returns the configured tokens.
func (c *RPCClient) GetTokens(_ context.Context) ([]phantasma.Token, error) {
	if err := c.enter("getTokens"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]phantasma.Token(nil), c.Tokens...), nil
}

// GetChains returns the configured chains in insertion order.
func (c *RPCClient) GetChains(_ context.Context) ([]phantasma.Chain, error) {
	if err := c.enter("getChains"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]phantasma.Chain(nil), c.Chains...), nil
}

// GetBlockHeight returns the configured height of a chain.
func (c *RPCClient) GetBlockHeight(_ context.Context, chainAddress string) (uint64, error) {
	if err := c.enter("getBlockHeight"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.Heights[chainAddress]
	if !ok {
		return 0, &phantasma.Error{Kind: phantasma.ErrorKindAPI, Method: "getBlockHeight", Message: "chain not found"}
	}
	return h, nil
}

// GetBlockByHeight returns the configured block of a chain.
func (c *RPCClient) GetBlockByHeight(ctx context.Context, chainAddress string, height uint64) (*phantasma.Block, error) {
	if err := c.enter("getBlockByHeight"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.BlockErrors[chainAddress][height]; err != nil {
		return nil, err
	}
	b, ok := c.Blocks[chainAddress][height]
	if !ok {
		return nil, &phantasma.Error{
			Kind:    phantasma.ErrorKindAPI,
			Method:  "getBlockByHeight",
			Message: fmt.Sprintf("block %d not found", height),
		}
	}
	cp := *b
	return &cp, nil
}

// AddChain adds a chain with the given height.
func (c *RPCClient) AddChain(chain phantasma.Chain, height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chain.Height = phantasma.Uint64(height)
	c.Chains = append(c.Chains, chain)
	c.Heights[chain.Address] = height
}

// SetHeight changes the reported height of a chain.
func (c *RPCClient) SetHeight(chainAddress string, height uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Heights[chainAddress] = height
}

// AddBlock adds a block to a chain. Empty hashes are filled from the height.
func (c *RPCClient) AddBlock(chainAddress string, block *phantasma.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if block.Hash == "" {
		block.Hash = fmt.Sprintf("%s-block-%d", chainAddress, block.Height)
	}
	if block.ChainAddress == "" {
		block.ChainAddress = chainAddress
	}
	if c.Blocks[chainAddress] == nil {
		c.Blocks[chainAddress] = make(map[uint64]*phantasma.Block)
	}
	c.Blocks[chainAddress][uint64(block.Height)] = block
}

// FailBlock makes GetBlockByHeight fail for one height.
func (c *RPCClient) FailBlock(chainAddress string, height uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockErrors[chainAddress] == nil {
		c.BlockErrors[chainAddress] = make(map[uint64]error)
	}
	c.BlockErrors[chainAddress][height] = err
}

// Calls returns how many times a method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (c *RPCClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}
