package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/observability"
	"phantasma-explorer/internal/storage"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	pool *Pool
	now  func() time.Time
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// ChainsExist reports whether at least one chain is recorded.
func (s *Store) ChainsExist(ctx context.Context) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM chains)`)
}

// AppsExist reports whether at least one app is recorded.
func (s *Store) AppsExist(ctx context.Context) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM apps)`)
}

// TokensExist reports whether at least one token is recorded.
func (s *Store) TokensExist(ctx context.Context) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM tokens)`)
}

func (s *Store) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists query: %w", err)
	}
	return ok, nil
}

// UpsertApp inserts or replaces an app keyed by ID.
func (s *Store) UpsertApp(ctx context.Context, app *domain.App) error {
	if app == nil || app.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO apps (id, title, url, description, icon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			description = EXCLUDED.description,
			icon = EXCLUDED.icon
	`
	if _, err := s.pool.Exec(ctx, query, app.ID, app.Title, app.URL, app.Description, app.Icon); err != nil {
		return fmt.Errorf("upsert app: %w", err)
	}
	return nil
}

// UpsertToken inserts or replaces a token keyed by symbol, keeping its counter.
func (s *Store) UpsertToken(ctx context.Context, token *domain.Token) error {
	if token == nil || token.Symbol == "" {
		return storage.ErrInvalidInput
	}
	maxSupply, err := domain.NormalizeSupply(token.MaxSupply)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	currentSupply, err := domain.NormalizeSupply(token.CurrentSupply)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO tokens (
			symbol, name, decimals, flags, max_supply, current_supply, owner_address, platform, hash
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			decimals = EXCLUDED.decimals,
			flags = EXCLUDED.flags,
			max_supply = EXCLUDED.max_supply,
			current_supply = EXCLUDED.current_supply,
			owner_address = EXCLUDED.owner_address,
			platform = EXCLUDED.platform,
			hash = EXCLUDED.hash
	`
	_, err = s.pool.Exec(ctx, query,
		token.Symbol,
		token.Name,
		int64(token.Decimals),
		int64(token.Flags),
		maxSupply,
		currentSupply,
		token.OwnerAddress,
		token.Platform,
		token.Hash,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// FindAccount returns the account with the given address.
func (s *Store) FindAccount(ctx context.Context, address string) (*domain.Account, error) {
	var a domain.Account
	var kind string
	err := s.pool.QueryRow(ctx,
		`SELECT address, name, kind FROM accounts WHERE address = $1`, address,
	).Scan(&a.Address, &a.Name, &kind)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	a.Kind = domain.AccountKind(kind)
	return &a, nil
}

// CreateAccount records an account. No-op if the address exists.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	if account == nil || account.Address == "" {
		return storage.ErrInvalidInput
	}
	if _, err := s.pool.Exec(ctx, insertAccountSQL, account.Address, account.Name, accountKind(account)); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// AccountHasTransaction reports whether the account is linked to the transaction.
func (s *Store) AccountHasTransaction(ctx context.Context, address, txHash string) (bool, error) {
	return s.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM account_transactions WHERE account_address = $1 AND transaction_hash = $2)`,
		address, txHash)
}

// LinkAccountTransaction links an account to a transaction at most once.
func (s *Store) LinkAccountTransaction(ctx context.Context, address, txHash string) (bool, error) {
	if address == "" || txHash == "" {
		return false, storage.ErrInvalidInput
	}
	tag, err := s.pool.Exec(ctx, insertLinkSQL, address, txHash)
	if err != nil {
		if isForeignKeyError(err) {
			return false, fmt.Errorf("link %s: account %w", address, storage.ErrNotFound)
		}
		return false, fmt.Errorf("link account transaction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementTokenTransferCount adds delta to a token's TransactionCount.
func (s *Store) IncrementTokenTransferCount(ctx context.Context, symbol string, delta int64) error {
	if delta < 0 {
		return storage.ErrInvalidInput
	}
	if _, err := s.pool.Exec(ctx, incrementTokenSQL, symbol, delta); err != nil {
		return fmt.Errorf("increment token count: %w", err)
	}
	return nil
}

// SaveChain atomically records a chain and everything collected for it.
func (s *Store) SaveChain(ctx context.Context, batch *storage.ChainBatch) (err error) {
	if err := batch.Validate(); err != nil {
		return err
	}

	start := s.now()
	defer func() {
		observability.RecordDBQuery("postgres", "save_chain", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c := batch.Chain
	_, err = tx.Exec(ctx,
		`INSERT INTO chains (address, name, height, parent_address) VALUES ($1, $2, $3, $4)`,
		c.Address, c.Name, int64(c.Height), c.ParentAddress,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("chain %s: %w", c.Address, storage.ErrDuplicateKey)
		}
		return fmt.Errorf("insert chain: %w", err)
	}

	if err := insertBlocks(ctx, tx, c.Address, c.Blocks); err != nil {
		return err
	}
	if err := applyWrites(ctx, tx, &batch.Writes); err != nil {
		return err
	}
	if err := s.setProgress(ctx, tx, batch.Progress); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ApplyBlock atomically appends one block to a recorded chain.
func (s *Store) ApplyBlock(ctx context.Context, batch *storage.BlockBatch) (err error) {
	if err := batch.Validate(); err != nil {
		return err
	}

	start := s.now()
	defer func() {
		observability.RecordDBQuery("postgres", "apply_block", time.Since(start).Seconds(), err)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the chain row so concurrent followers serialize per chain.
	var chainHeight int64
	err = tx.QueryRow(ctx,
		`SELECT height FROM chains WHERE address = $1 FOR UPDATE`, batch.ChainAddress,
	).Scan(&chainHeight)
	if err != nil {
		if isNotFoundError(err) {
			return fmt.Errorf("chain %s: %w", batch.ChainAddress, storage.ErrNotFound)
		}
		return fmt.Errorf("lock chain: %w", err)
	}

	var current int64
	err = tx.QueryRow(ctx,
		`SELECT height FROM sync_progress WHERE chain_address = $1`, batch.ChainAddress,
	).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get progress: %w", err)
	}
	if batch.Block.Height != uint64(current)+1 {
		return fmt.Errorf("%w: chain %s at height %d cannot apply block %d",
			storage.ErrInvalidInput, batch.ChainAddress, current, batch.Block.Height)
	}

	if err := insertBlocks(ctx, tx, batch.ChainAddress, []*domain.Block{batch.Block}); err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE chains SET height = GREATEST(height, $2) WHERE address = $1`,
		batch.ChainAddress, int64(batch.Block.Height),
	)
	if err != nil {
		return fmt.Errorf("update chain height: %w", err)
	}
	if err := applyWrites(ctx, tx, &batch.Writes); err != nil {
		return err
	}
	if err := s.setProgress(ctx, tx, batch.Progress); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	insertAccountSQL = `
		INSERT INTO accounts (address, name, kind) VALUES ($1, $2, $3)
		ON CONFLICT (address) DO NOTHING
	`
	insertLinkSQL = `
		INSERT INTO account_transactions (account_address, transaction_hash) VALUES ($1, $2)
		ON CONFLICT (account_address, transaction_hash) DO NOTHING
	`
	incrementTokenSQL = `
		UPDATE tokens SET transaction_count = transaction_count + $2 WHERE symbol = $1
	`
	insertBlockSQL = `
		INSERT INTO blocks (
			hash, chain_address, chain_name, height, previous_hash, timestamp, payload, reward, validator_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	insertTransactionSQL = `
		INSERT INTO transactions (hash, block_hash, tx_index, timestamp, script, result, fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	insertEventSQL = `
		INSERT INTO events (
			transaction_hash, event_index, kind, raw_kind, address, contract, data, token_symbol
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
)

// insertBlocks queues blocks, transactions and events in height order on one batch.
func insertBlocks(ctx context.Context, tx pgx.Tx, chainAddress string, blocks []*domain.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, block := range blocks {
		b.Queue(insertBlockSQL,
			block.Hash,
			chainAddress,
			block.ChainName,
			int64(block.Height),
			block.PreviousHash,
			block.Timestamp,
			block.Payload,
			block.Reward,
			block.ValidatorAddress,
		)
		for i, t := range block.Transactions {
			b.Queue(insertTransactionSQL, t.Hash, block.Hash, i, t.Timestamp, t.Script, t.Result, t.Fee)
			for _, ev := range t.Events {
				b.Queue(insertEventSQL,
					t.Hash,
					ev.Index,
					string(ev.Kind),
					ev.RawKind,
					ev.Address,
					ev.Contract,
					ev.Data,
					nullable(ev.TokenSymbol),
				)
			}
		}
	}

	return execBatch(ctx, tx, b, "insert blocks")
}

// applyWrites records accounts, links and counter deltas in that order.
func applyWrites(ctx context.Context, tx pgx.Tx, w *storage.Writes) error {
	b := &pgx.Batch{}
	for _, a := range w.Accounts {
		b.Queue(insertAccountSQL, a.Address, a.Name, accountKind(a))
	}
	for _, l := range w.Links {
		b.Queue(insertLinkSQL, l.AccountAddress, l.TransactionHash)
	}
	for symbol, delta := range w.TokenCounts {
		b.Queue(incrementTokenSQL, symbol, delta)
	}
	if b.Len() == 0 {
		return nil
	}
	return execBatch(ctx, tx, b, "apply writes")
}

func (s *Store) setProgress(ctx context.Context, tx pgx.Tx, p storage.SyncProgress) error {
	if p.UpdatedAt == 0 {
		p.UpdatedAt = s.now().Unix()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO sync_progress (chain_address, height, run_id, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain_address) DO UPDATE SET
			height = EXCLUDED.height,
			run_id = EXCLUDED.run_id,
			updated_at = EXCLUDED.updated_at
	`, p.ChainAddress, int64(p.Height), p.RunID, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func execBatch(ctx context.Context, tx pgx.Tx, b *pgx.Batch, op string) error {
	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return fmt.Errorf("%s: %w", op, storage.ErrDuplicateKey)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func accountKind(a *domain.Account) string {
	if a.Kind == "" {
		return string(domain.AccountKindUnknown)
	}
	return string(a.Kind)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
