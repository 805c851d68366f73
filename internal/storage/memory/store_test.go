package memory

import (
	"context"
	"errors"
	"testing"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/storage"
)

func testChainBatch(address string, heights int) *storage.ChainBatch {
	chain := &domain.Chain{Address: address, Name: address, Height: uint64(heights)}
	for h := 1; h <= heights; h++ {
		chain.Blocks = append(chain.Blocks, &domain.Block{
			Hash:         address + "-B" + string(rune('0'+h)),
			Height:       uint64(h),
			ChainAddress: address,
		})
	}
	return &storage.ChainBatch{
		Chain: chain,
		Writes: storage.Writes{
			Accounts: []*domain.Account{{Address: address, Kind: domain.AccountKindSystem}},
		},
		Progress: storage.SyncProgress{ChainAddress: address, Height: uint64(heights), RunID: "run-1"},
	}
}

func TestStore_ExistenceChecks(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for name, check := range map[string]func(context.Context) (bool, error){
		"chains": store.ChainsExist,
		"apps":   store.AppsExist,
		"tokens": store.TokensExist,
	} {
		ok, err := check(ctx)
		if err != nil || ok {
			t.Fatalf("%s on empty store: got %v, %v", name, ok, err)
		}
	}

	if err := store.UpsertApp(ctx, &domain.App{ID: "nachomen"}); err != nil {
		t.Fatalf("UpsertApp failed: %v", err)
	}
	if err := store.UpsertToken(ctx, &domain.Token{Symbol: "SOUL"}); err != nil {
		t.Fatalf("UpsertToken failed: %v", err)
	}
	if err := store.SaveChain(ctx, testChainBatch("main", 0)); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	for name, check := range map[string]func(context.Context) (bool, error){
		"chains": store.ChainsExist,
		"apps":   store.AppsExist,
		"tokens": store.TokensExist,
	} {
		ok, err := check(ctx)
		if err != nil || !ok {
			t.Errorf("%s after insert: got %v, %v", name, ok, err)
		}
	}
}

func TestStore_UpsertTokenKeepsCounter(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.UpsertToken(ctx, &domain.Token{Symbol: "SOUL", Name: "Soul"}); err != nil {
		t.Fatalf("UpsertToken failed: %v", err)
	}
	if err := store.IncrementTokenTransferCount(ctx, "SOUL", 3); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if err := store.UpsertToken(ctx, &domain.Token{Symbol: "SOUL", Name: "Phantasma Stake", TransactionCount: 99}); err != nil {
		t.Fatalf("UpsertToken failed: %v", err)
	}

	tok, err := store.GetToken(ctx, "SOUL")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if tok.Name != "Phantasma Stake" {
		t.Errorf("Name: got %s", tok.Name)
	}
	if tok.TransactionCount != 3 {
		t.Errorf("TransactionCount: got %d, want 3", tok.TransactionCount)
	}
}

func TestStore_UpsertTokenNormalizesSupply(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	token := &domain.Token{Symbol: "SOUL", MaxSupply: "1.50", CurrentSupply: "0009124000"}
	if err := store.UpsertToken(ctx, token); err != nil {
		t.Fatalf("UpsertToken failed: %v", err)
	}

	tok, err := store.GetToken(ctx, "SOUL")
	if err != nil {
		t.Fatalf("GetToken failed: %v", err)
	}
	if tok.MaxSupply != "1.5" {
		t.Errorf("MaxSupply: got %s, want 1.5", tok.MaxSupply)
	}
	if tok.CurrentSupply != "9124000" {
		t.Errorf("CurrentSupply: got %s, want 9124000", tok.CurrentSupply)
	}

	err = store.UpsertToken(ctx, &domain.Token{Symbol: "BAD", MaxSupply: "1.5e"})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("invalid supply: got %v, want ErrInvalidInput", err)
	}
}

func TestStore_IncrementUnknownToken(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.IncrementTokenTransferCount(ctx, "NOPE", 1); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	if _, err := store.GetToken(ctx, "NOPE"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.IncrementTokenTransferCount(ctx, "NOPE", -1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for negative delta, got %v", err)
	}
}

func TestStore_LinkAccountTransactionIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.LinkAccountTransaction(ctx, "addr1", "T1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown account, got %v", err)
	}

	if err := store.CreateAccount(ctx, &domain.Account{Address: "addr1"}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := store.CreateAccount(ctx, &domain.Account{Address: "addr1", Name: "ignored"}); err != nil {
		t.Fatalf("second CreateAccount failed: %v", err)
	}

	created, err := store.LinkAccountTransaction(ctx, "addr1", "T1")
	if err != nil || !created {
		t.Fatalf("first link: got %v, %v", created, err)
	}
	created, err = store.LinkAccountTransaction(ctx, "addr1", "T1")
	if err != nil || created {
		t.Fatalf("second link: got %v, %v", created, err)
	}

	has, err := store.AccountHasTransaction(ctx, "addr1", "T1")
	if err != nil || !has {
		t.Errorf("AccountHasTransaction: got %v, %v", has, err)
	}
	if n := len(store.accountTxs["addr1"]); n != 1 {
		t.Errorf("expected exactly one link row, got %d", n)
	}

	acc, err := store.FindAccount(ctx, "addr1")
	if err != nil {
		t.Fatalf("FindAccount failed: %v", err)
	}
	if acc.Name != "" || acc.Kind != domain.AccountKindUnknown {
		t.Errorf("account was overwritten: %+v", acc)
	}
}

func TestStore_SaveChain(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.UpsertToken(ctx, &domain.Token{Symbol: "SOUL"}); err != nil {
		t.Fatalf("UpsertToken failed: %v", err)
	}

	batch := testChainBatch("main", 2)
	batch.Chain.Blocks[1].Transactions = []*domain.Transaction{{
		Hash: "T1",
		Events: []*domain.Event{
			{Index: 0, Kind: domain.EventTokenSend, Address: "addr1", TokenSymbol: "SOUL"},
			{Index: 1, Kind: domain.EventTokenReceive, Address: "addr1", TokenSymbol: "SOUL"},
		},
	}}
	batch.Accounts = append(batch.Accounts, &domain.Account{Address: "addr1"})
	batch.Links = []domain.AccountTransaction{
		{AccountAddress: "addr1", TransactionHash: "T1"},
		{AccountAddress: "addr1", TransactionHash: "T1"},
	}
	batch.TokenCounts = map[string]int64{"SOUL": 2, "UNKNOWN": 5}

	if err := store.SaveChain(ctx, batch); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	blocks, err := store.ListBlocks(ctx, "main", storage.Page{})
	if err != nil {
		t.Fatalf("ListBlocks failed: %v", err)
	}
	if len(blocks) != 2 || blocks[0].Height != 1 || blocks[1].Height != 2 {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}

	b, err := store.GetBlockByHeight(ctx, "main", 2)
	if err != nil {
		t.Fatalf("GetBlockByHeight failed: %v", err)
	}
	if len(b.Transactions) != 1 || len(b.Transactions[0].Events) != 2 {
		t.Fatalf("block not fully loaded: %+v", b)
	}
	if b.Transactions[0].BlockHash != b.Hash || b.Transactions[0].Events[1].TransactionHash != "T1" {
		t.Errorf("ownership keys not set")
	}

	txs, err := store.ListAccountTransactions(ctx, "addr1", storage.Page{})
	if err != nil {
		t.Fatalf("ListAccountTransactions failed: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("expected one linked transaction, got %d", len(txs))
	}

	tok, _ := store.GetToken(ctx, "SOUL")
	if tok.TransactionCount != 2 {
		t.Errorf("TransactionCount: got %d, want 2", tok.TransactionCount)
	}

	transfers, err := store.ListTokenTransfers(ctx, "SOUL", storage.Page{})
	if err != nil {
		t.Fatalf("ListTokenTransfers failed: %v", err)
	}
	if len(transfers) != 2 || transfers[0].Index != 1 {
		t.Errorf("expected newest transfer first, got %+v", transfers)
	}

	p, err := store.GetProgress(ctx, "main")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if p.Height != 2 || p.RunID != "run-1" || p.UpdatedAt == 0 {
		t.Errorf("unexpected progress: %+v", p)
	}
}

func TestStore_SaveChainDuplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveChain(ctx, testChainBatch("main", 1)); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}
	if err := store.SaveChain(ctx, testChainBatch("main", 1)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	chains, _ := store.ListChains(ctx)
	if len(chains) != 1 {
		t.Errorf("expected 1 chain, got %d", len(chains))
	}
}

func TestStore_SaveChainAtomic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveChain(ctx, testChainBatch("main", 1)); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	// second chain reuses a block hash of the first
	batch := testChainBatch("side", 2)
	batch.Chain.Blocks[1].Hash = "main-B1"
	batch.Accounts = append(batch.Accounts, &domain.Account{Address: "addr9"})

	if err := store.SaveChain(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetChain(ctx, "side"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("partial chain visible: %v", err)
	}
	if _, err := store.FindAccount(ctx, "addr9"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("partial account visible: %v", err)
	}
	if _, err := store.GetBlockByHash(ctx, "side-B1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("partial block visible: %v", err)
	}
}

func TestStore_SaveChainRejectsGaps(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	batch := testChainBatch("main", 2)
	batch.Chain.Blocks[1].Height = 3

	if err := store.SaveChain(ctx, batch); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStore_ApplyBlock(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveChain(ctx, testChainBatch("main", 1)); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	next := &storage.BlockBatch{
		ChainAddress: "main",
		Block:        &domain.Block{Hash: "main-B2", Height: 2},
		Progress:     storage.SyncProgress{ChainAddress: "main", Height: 2, RunID: "follow-1"},
	}
	if err := store.ApplyBlock(ctx, next); err != nil {
		t.Fatalf("ApplyBlock failed: %v", err)
	}

	chain, _ := store.GetChain(ctx, "main")
	if chain.Height != 2 {
		t.Errorf("chain height: got %d, want 2", chain.Height)
	}
	p, _ := store.GetProgress(ctx, "main")
	if p.Height != 2 || p.RunID != "follow-1" {
		t.Errorf("unexpected progress: %+v", p)
	}

	// replaying the same block is rejected
	if err := store.ApplyBlock(ctx, next); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput on replay, got %v", err)
	}

	gap := &storage.BlockBatch{
		ChainAddress: "main",
		Block:        &domain.Block{Hash: "main-B4", Height: 4},
		Progress:     storage.SyncProgress{ChainAddress: "main", Height: 4},
	}
	if err := store.ApplyBlock(ctx, gap); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput on gap, got %v", err)
	}

	unknown := &storage.BlockBatch{
		ChainAddress: "nope",
		Block:        &domain.Block{Hash: "x", Height: 1},
		Progress:     storage.SyncProgress{ChainAddress: "nope", Height: 1},
	}
	if err := store.ApplyBlock(ctx, unknown); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListAccountTransactionsPaging(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	batch := testChainBatch("main", 1)
	for _, h := range []string{"T1", "T2", "T3"} {
		batch.Chain.Blocks[0].Transactions = append(batch.Chain.Blocks[0].Transactions, &domain.Transaction{Hash: h})
		batch.Links = append(batch.Links, domain.AccountTransaction{AccountAddress: "main", TransactionHash: h})
	}
	if err := store.SaveChain(ctx, batch); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	txs, err := store.ListAccountTransactions(ctx, "main", storage.Page{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("ListAccountTransactions failed: %v", err)
	}
	if len(txs) != 1 || txs[0].Hash != "T2" {
		t.Errorf("unexpected page: %+v", txs)
	}

	txs, _ = store.ListAccountTransactions(ctx, "main", storage.Page{Offset: 10})
	if len(txs) != 0 {
		t.Errorf("expected empty page, got %d", len(txs))
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.SaveChain(ctx, testChainBatch("main", 1)); err != nil {
		t.Fatalf("SaveChain failed: %v", err)
	}

	chain, _ := store.GetChain(ctx, "main")
	chain.Name = "mutated"

	again, _ := store.GetChain(ctx, "main")
	if again.Name != "main" {
		t.Errorf("store state mutated through returned value")
	}
}
