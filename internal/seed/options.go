// Package seed populates the explorer read-model from a Phantasma node:
// a one-shot cold-start Seeder and an incremental Follower.
package seed

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/storage"
)

// Default configuration values.
const (
	DefaultFetchConcurrency = 1
	DefaultRPCTimeout       = 30 * time.Second
	DefaultPollInterval     = 10 * time.Second
)

// Options contains configuration shared by Seeder and Follower.
type Options struct {
	// FetchConcurrency is the number of block fetch workers. 1 fetches sequentially.
	FetchConcurrency int
	// RPCTimeout bounds each RPC call. Zero disables the per-call timeout.
	RPCTimeout time.Duration
	// Archive receives transfer events after commit. Optional.
	Archive storage.TransferArchive
	// RunID tags the watermarks written by this run. Generated when empty.
	RunID string
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// FollowOptions configures a Follower.
type FollowOptions struct {
	Options
	// PollInterval is the catch-up period when no head notification arrives.
	PollInterval time.Duration
	// Heads delivers new-head notifications. Optional, polling only when nil.
	Heads phantasma.HeadSubscriber
}

// engine holds what seeding and following have in common.
type engine struct {
	rpc              phantasma.RPCClient
	store            storage.Store
	archive          storage.TransferArchive
	fetchConcurrency int
	rpcTimeout       time.Duration
	runID            string
	logger           zerolog.Logger
}

func newEngine(rpc phantasma.RPCClient, store storage.Store, opts Options) *engine {
	concurrency := opts.FetchConcurrency
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &engine{
		rpc:              rpc,
		store:            store,
		archive:          opts.Archive,
		fetchConcurrency: concurrency,
		rpcTimeout:       opts.RPCTimeout,
		runID:            runID,
		logger:           logger.With().Str("run_id", runID).Logger(),
	}
}

// Result contains statistics from a seed or follow pass.
type Result struct {
	RunID        string
	Skipped      bool
	Apps         int
	Tokens       int
	Chains       int
	Blocks       int
	Transactions int
	Events       int
	Transfers    int
	Accounts     int
	Links        int
	Duration     time.Duration
}
