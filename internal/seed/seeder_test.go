package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/phantasma/stub"
	"phantasma-explorer/internal/storage"
	"phantasma-explorer/internal/storage/memory"
)

func TestSeeder_EndToEnd(t *testing.T) {
	ctx := context.Background()
	rpc := newScenario()
	store := memory.NewStore()

	result, err := New(rpc, store, Options{RunID: "run-1"}).Run(ctx)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.Apps)
	assert.Equal(t, 2, result.Tokens)
	assert.Equal(t, 1, result.Chains)
	assert.Equal(t, 2, result.Blocks)
	assert.Equal(t, 1, result.Transactions)
	assert.Equal(t, 2, result.Events)
	assert.Equal(t, 2, result.Accounts) // chain root + addr1
	assert.Equal(t, 1, result.Links)

	chain, err := store.GetChain(ctx, mainAddress)
	require.NoError(t, err)
	assert.Equal(t, "main", chain.Name)
	assert.Equal(t, uint64(2), chain.Height)
	assert.Nil(t, chain.ParentAddress)

	blocks, err := store.ListBlocks(ctx, mainAddress, storage.Page{})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, uint64(1), blocks[0].Height)
	assert.Equal(t, uint64(2), blocks[1].Height)

	block, err := store.GetBlockByHeight(ctx, mainAddress, 2)
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	tx := block.Transactions[0]
	require.Len(t, tx.Events, 2)
	assert.Equal(t, domain.EventTokenSend, tx.Events[0].Kind)
	assert.Equal(t, domain.EventTokenReceive, tx.Events[1].Kind)
	assert.Equal(t, "SOUL", tx.Events[0].TokenSymbol)

	txs, err := store.ListAccountTransactions(ctx, "addr1", storage.Page{})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx1", txs[0].Hash)

	root, err := store.GetAccount(ctx, mainAddress)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountKindSystem, root.Kind)

	soul, err := store.GetToken(ctx, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), soul.TransactionCount)
	assert.True(t, soul.Flags.Has(domain.TokenFlagStakable))
	assert.Equal(t, "100000000", soul.MaxSupply)

	kcal, err := store.GetToken(ctx, "KCAL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), kcal.TransactionCount)
	assert.Equal(t, "0", kcal.MaxSupply)

	progress, err := store.GetProgress(ctx, mainAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), progress.Height)
	assert.Equal(t, "run-1", progress.RunID)

	assert.Equal(t, 2, rpc.Calls("getBlockByHeight"))
	assert.Equal(t, 1, rpc.Calls("getBlockHeight"))
}

func TestSeeder_ColdStartGuard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := New(newScenario(), store, Options{}).Run(ctx)
	require.NoError(t, err)

	second := newScenario()
	result, err := New(second, store, Options{}).Run(ctx)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	require.NotNil(t, result)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, second.TotalCalls())

	soul, err := store.GetToken(ctx, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), soul.TransactionCount)
}

func TestSeeder_SkipsRecordedAppsAndTokens(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.UpsertApp(ctx, &domain.App{ID: "existing"}))
	require.NoError(t, store.UpsertToken(ctx, &domain.Token{Symbol: "SOUL", MaxSupply: "0", CurrentSupply: "0"}))

	rpc := newScenario()
	result, err := New(rpc, store, Options{}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, rpc.Calls("getApps"))
	assert.Equal(t, 0, rpc.Calls("getTokens"))
	assert.Equal(t, 0, result.Apps)
	assert.Equal(t, 0, result.Tokens)

	// Transfers still count against the token that was already recorded.
	soul, err := store.GetToken(ctx, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), soul.TransactionCount)
}

func TestSeeder_FailureMidWalkPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	rpc := newScenario()
	rpc.FailBlock(mainAddress, 2, webError("getBlockByHeight"))

	_, err := New(rpc, store, Options{}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, phantasma.ErrWebRequest)
	assert.Contains(t, err.Error(), "seed chain main: block 2")

	exists, err := store.ChainsExist(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.FindAccount(ctx, "addr1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetProgress(ctx, mainAddress)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Apps and tokens were recorded before the chain stage.
	appsExist, err := store.AppsExist(ctx)
	require.NoError(t, err)
	assert.True(t, appsExist)

	// A re-run against the repaired node completes with exact counts.
	rpc.BlockErrors = map[string]map[uint64]error{}
	result, err := New(rpc, store, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Blocks)

	soul, err := store.GetToken(ctx, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, int64(2), soul.TransactionCount)

	txs, err := store.ListAccountTransactions(ctx, "addr1", storage.Page{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSeeder_StageErrors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		wantMsg string
	}{
		{"apps", "getApps", "seed apps"},
		{"tokens", "getTokens", "seed tokens"},
		{"chains", "getChains", "seed chains"},
		{"height", "getBlockHeight", "seed chain main: block height"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := newScenario()
			rpc.Errors[tt.method] = &phantasma.Error{Kind: phantasma.ErrorKindAPI, Method: tt.method, Message: "boom"}

			_, err := New(rpc, memory.NewStore(), Options{}).Run(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, phantasma.ErrAPI)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSeeder_InvalidTokenFlags(t *testing.T) {
	rpc := newScenario()
	rpc.Tokens[0].Flags = "Transferable,Teleportable"

	_, err := New(rpc, memory.NewStore(), Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed tokens: token SOUL")
}

func TestSeeder_TokenDecimalsOutOfRange(t *testing.T) {
	rpc := newScenario()
	rpc.Tokens[1].Decimals = phantasma.Uint64(math.MaxUint32) + 1

	store := memory.NewStore()
	_, err := New(rpc, store, Options{}).Run(context.Background())
	require.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.Contains(t, err.Error(), "seed tokens: token KCAL")

	_, err = store.GetToken(context.Background(), "KCAL")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSeeder_DuplicateChainAddress(t *testing.T) {
	rpc := newScenario()
	rpc.AddChain(phantasma.Chain{Name: "main-again", Address: mainAddress}, 2)

	store := memory.NewStore()
	_, err := New(rpc, store, Options{}).Run(context.Background())
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Equal(t, 0, rpc.Calls("getBlockHeight"))
}

func TestSeeder_MultipleChains(t *testing.T) {
	ctx := context.Background()
	rpc := newScenario()
	const childAddress = "S3child"
	rpc.AddChain(phantasma.Chain{Name: "apps", Address: childAddress, ParentAddress: mainAddress}, 1)
	addTxBlock(rpc, childAddress, 1, "tx-child",
		phantasma.Event{Address: "addr1", Kind: "TokenSend", Data: symbolData("SOUL")},
	)

	store := memory.NewStore()
	result, err := New(rpc, store, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Chains)
	assert.Equal(t, 3, result.Blocks)

	chains, err := store.ListChains(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 2)
	assert.Equal(t, "main", chains[0].Name)
	assert.Equal(t, "apps", chains[1].Name)
	require.NotNil(t, chains[1].ParentAddress)
	assert.Equal(t, mainAddress, *chains[1].ParentAddress)

	// addr1 is created once, linked once per transaction.
	txs, err := store.ListAccountTransactions(ctx, "addr1", storage.Page{})
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	soul, err := store.GetToken(ctx, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, int64(3), soul.TransactionCount)
}

func TestSeeder_CounterSemantics(t *testing.T) {
	ctx := context.Background()
	rpc := stub.NewRPCClient()
	rpc.Tokens = []phantasma.Token{{Symbol: "SOUL"}}
	rpc.AddChain(phantasma.Chain{Name: "main", Address: mainAddress}, 1)
	addTxBlock(rpc, mainAddress, 1, "tx1",
		phantasma.Event{Address: "addr1", Kind: "TokenMint", Data: symbolData("SOUL")},
		phantasma.Event{Address: "addr1", Kind: "TokenSend", Data: symbolData("GHOST")}, // unknown token
		phantasma.Event{Address: "addr2", Kind: "TokenBurn"},                            // no payload
		phantasma.Event{Address: "addr3", Kind: "GasPayment", Data: symbolData("SOUL")}, // not a transfer
		phantasma.Event{Address: "addr3", Kind: "Strange", Data: symbolData("SOUL")},    // unknown kind
	)

	store := memory.NewStore()
	result, err := New(rpc, store, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Events)
	assert.Equal(t, 3, result.Links)

	soul, err := store.GetToken(ctx, "SOUL")
	require.NoError(t, err)
	assert.Equal(t, int64(1), soul.TransactionCount)

	_, err = store.GetToken(ctx, "GHOST")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	tx, err := store.GetTransaction(ctx, "tx1")
	require.NoError(t, err)
	require.Len(t, tx.Events, 5)
	assert.Equal(t, domain.EventOther, tx.Events[4].Kind)
	assert.Equal(t, "Strange", tx.Events[4].RawKind)
	assert.Empty(t, tx.Events[2].TokenSymbol)

	for _, addr := range []string{"addr1", "addr2", "addr3"} {
		_, err := store.FindAccount(ctx, addr)
		assert.NoError(t, err, addr)
	}
}

func TestSeeder_PreexistingAccountLinks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.CreateAccount(ctx, &domain.Account{Address: "addr1", Name: "genesis", Kind: domain.AccountKindUnknown}))
	_, err := store.LinkAccountTransaction(ctx, "addr1", "tx1")
	require.NoError(t, err)

	result, err := New(newScenario(), store, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accounts) // only the chain root
	assert.Equal(t, 0, result.Links)

	acc, err := store.GetAccount(ctx, "addr1")
	require.NoError(t, err)
	assert.Equal(t, "genesis", acc.Name)

	txs, err := store.ListAccountTransactions(ctx, "addr1", storage.Page{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestSeeder_OrderingWithFetchAhead(t *testing.T) {
	ctx := context.Background()
	const height = 40

	base := stub.NewRPCClient()
	base.AddChain(phantasma.Chain{Name: "main", Address: mainAddress}, height)
	for h := uint64(1); h <= height; h++ {
		addTxBlock(base, mainAddress, h, fmt.Sprintf("tx-%d", h),
			phantasma.Event{Address: "addr1", Kind: "TokenSend", Data: symbolData("SOUL")},
		)
	}
	rpc := &slowRPC{RPCClient: base, max: height}

	store := memory.NewStore()
	result, err := New(rpc, store, Options{FetchConcurrency: 8}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, height, result.Blocks)
	assert.Equal(t, height, base.Calls("getBlockByHeight"))

	blocks, err := store.ListBlocks(ctx, mainAddress, storage.Page{Limit: storage.MaxPageLimit})
	require.NoError(t, err)
	require.Len(t, blocks, height)
	for i, b := range blocks {
		assert.Equal(t, uint64(i+1), b.Height)
	}

	txs, err := store.ListAccountTransactions(ctx, "addr1", storage.Page{Limit: storage.MaxPageLimit})
	require.NoError(t, err)
	assert.Len(t, txs, height)
}

func TestSeeder_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := memory.NewStore()
	_, err := New(newScenario(), store, Options{}).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	exists, err := store.ChainsExist(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSeeder_ArchiveExport(t *testing.T) {
	ctx := context.Background()
	archive := memory.NewTransferArchive()

	_, err := New(newScenario(), memory.NewStore(), Options{Archive: archive}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, archive.Len())

	transfers, err := archive.ListBySymbol(ctx, "SOUL", storage.Page{})
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, "tx1", transfers[0].TransactionHash)
	assert.Equal(t, uint64(2), transfers[0].BlockHeight)
	assert.Equal(t, mainAddress, transfers[0].ChainAddress)
}

func TestSeeder_ArchiveFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	archive := &failingArchive{}
	store := memory.NewStore()

	result, err := New(newScenario(), store, Options{Archive: archive}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, archive.calls)
	assert.Equal(t, 2, result.Transfers)

	exists, err := store.ChainsExist(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSeeder_GeneratesRunID(t *testing.T) {
	s := New(newScenario(), memory.NewStore(), Options{})
	assert.Len(t, s.RunID(), 36)

	other := New(newScenario(), memory.NewStore(), Options{})
	assert.NotEqual(t, s.RunID(), other.RunID())
}
