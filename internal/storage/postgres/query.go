package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/storage"
)

const (
	chainColumns       = `address, name, height, parent_address`
	blockColumns       = `hash, chain_address, chain_name, height, previous_hash, timestamp, payload, reward, validator_address`
	transactionColumns = `hash, block_hash, tx_index, timestamp, script, result, fee`
	eventColumns       = `transaction_hash, event_index, kind, raw_kind, address, contract, data, COALESCE(token_symbol, '')`
	tokenColumns       = `symbol, name, decimals, flags, max_supply::text, current_supply::text, owner_address, platform, hash, transaction_count`
)

// GetChain returns a chain without its blocks.
func (s *Store) GetChain(ctx context.Context, address string) (*domain.Chain, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+chainColumns+` FROM chains WHERE address = $1`, address)
	if err != nil {
		return nil, fmt.Errorf("get chain: %w", err)
	}
	defer rows.Close()

	chains, err := scanChains(rows)
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return nil, storage.ErrNotFound
	}
	return chains[0], nil
}

// ListChains returns all chains in the order they were recorded.
func (s *Store) ListChains(ctx context.Context) ([]*domain.Chain, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+chainColumns+` FROM chains ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	return scanChains(rows)
}

// ListBlocks returns blocks of a chain ordered by height ASC.
func (s *Store) ListBlocks(ctx context.Context, chainAddress string, page storage.Page) ([]*domain.Block, error) {
	page = page.Normalize()
	rows, err := s.pool.Query(ctx, `
		SELECT `+blockColumns+`
		FROM blocks
		WHERE chain_address = $1
		ORDER BY height ASC
		LIMIT $2 OFFSET $3
	`, chainAddress, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	return scanBlocks(rows)
}

// GetBlockByHash returns a block with its transactions and events.
func (s *Store) GetBlockByHash(ctx context.Context, hash string) (*domain.Block, error) {
	return s.getBlock(ctx, `SELECT `+blockColumns+` FROM blocks WHERE hash = $1`, hash)
}

// GetBlockByHeight returns a block with its transactions and events.
func (s *Store) GetBlockByHeight(ctx context.Context, chainAddress string, height uint64) (*domain.Block, error) {
	return s.getBlock(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE chain_address = $1 AND height = $2`,
		chainAddress, int64(height))
}

func (s *Store) getBlock(ctx context.Context, query string, args ...interface{}) (*domain.Block, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	blocks, err := scanBlocks(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, storage.ErrNotFound
	}
	block := blocks[0]

	rows, err = s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE block_hash = $1 ORDER BY tx_index ASC`, block.Hash)
	if err != nil {
		return nil, fmt.Errorf("get block transactions: %w", err)
	}
	txs, err := scanTransactions(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events e JOIN transactions t ON t.hash = e.transaction_hash
		WHERE t.block_hash = $1
		ORDER BY t.tx_index ASC, e.event_index ASC
	`, block.Hash)
	if err != nil {
		return nil, fmt.Errorf("get block events: %w", err)
	}
	events, err := scanEvents(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	byTx := make(map[string]*domain.Transaction, len(txs))
	for _, tx := range txs {
		byTx[tx.Hash] = tx
	}
	for _, ev := range events {
		if tx, ok := byTx[ev.TransactionHash]; ok {
			tx.Events = append(tx.Events, ev)
		}
	}
	block.Transactions = txs
	return block, nil
}

// GetTransaction returns a transaction with its events.
func (s *Store) GetTransaction(ctx context.Context, hash string) (*domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE hash = $1`, hash)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	txs, err := scanTransactions(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, storage.ErrNotFound
	}

	rows, err = s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE transaction_hash = $1 ORDER BY event_index ASC`, hash)
	if err != nil {
		return nil, fmt.Errorf("get transaction events: %w", err)
	}
	defer rows.Close()

	txs[0].Events, err = scanEvents(rows)
	if err != nil {
		return nil, err
	}
	return txs[0], nil
}

// GetAccount returns an account.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	return s.FindAccount(ctx, address)
}

// ListAccountTransactions returns transactions linked to an account, newest link first.
func (s *Store) ListAccountTransactions(ctx context.Context, address string, page storage.Page) ([]*domain.Transaction, error) {
	page = page.Normalize()
	rows, err := s.pool.Query(ctx, `
		SELECT t.hash, t.block_hash, t.tx_index, t.timestamp, t.script, t.result, t.fee
		FROM account_transactions at
		JOIN transactions t ON t.hash = at.transaction_hash
		WHERE at.account_address = $1
		ORDER BY at.id DESC
		LIMIT $2 OFFSET $3
	`, address, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetToken returns a token.
func (s *Store) GetToken(ctx context.Context, symbol string) (*domain.Token, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE symbol = $1`, symbol)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	defer rows.Close()

	tokens, err := scanTokens(rows)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, storage.ErrNotFound
	}
	return tokens[0], nil
}

// ListTokens returns all tokens ordered by symbol.
func (s *Store) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// ListApps returns all apps ordered by ID.
func (s *Store) ListApps(ctx context.Context) ([]*domain.App, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, url, description, icon FROM apps ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}
	defer rows.Close()

	var apps []*domain.App
	for rows.Next() {
		var a domain.App
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Description, &a.Icon); err != nil {
			return nil, fmt.Errorf("scan app row: %w", err)
		}
		apps = append(apps, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate app rows: %w", err)
	}
	return apps, nil
}

// ListTokenTransfers returns transfer events of a token, newest first.
func (s *Store) ListTokenTransfers(ctx context.Context, symbol string, page storage.Page) ([]*domain.Event, error) {
	page = page.Normalize()
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE token_symbol = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, symbol, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list token transfers: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetProgress returns the watermark of a chain.
func (s *Store) GetProgress(ctx context.Context, chainAddress string) (*storage.SyncProgress, error) {
	var p storage.SyncProgress
	var height int64
	err := s.pool.QueryRow(ctx,
		`SELECT chain_address, height, run_id, updated_at FROM sync_progress WHERE chain_address = $1`, chainAddress,
	).Scan(&p.ChainAddress, &height, &p.RunID, &p.UpdatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p.Height = uint64(height)
	return &p, nil
}

// ListProgress returns all watermarks ordered by chain address.
func (s *Store) ListProgress(ctx context.Context) ([]*storage.SyncProgress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT chain_address, height, run_id, updated_at FROM sync_progress ORDER BY chain_address ASC`)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []*storage.SyncProgress
	for rows.Next() {
		var p storage.SyncProgress
		var height int64
		if err := rows.Scan(&p.ChainAddress, &height, &p.RunID, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		p.Height = uint64(height)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress rows: %w", err)
	}
	return out, nil
}

func scanChains(rows pgx.Rows) ([]*domain.Chain, error) {
	var chains []*domain.Chain
	for rows.Next() {
		var c domain.Chain
		var height int64
		if err := rows.Scan(&c.Address, &c.Name, &height, &c.ParentAddress); err != nil {
			return nil, fmt.Errorf("scan chain row: %w", err)
		}
		c.Height = uint64(height)
		chains = append(chains, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chain rows: %w", err)
	}
	return chains, nil
}

func scanBlocks(rows pgx.Rows) ([]*domain.Block, error) {
	var blocks []*domain.Block
	for rows.Next() {
		var b domain.Block
		var height int64
		err := rows.Scan(
			&b.Hash,
			&b.ChainAddress,
			&b.ChainName,
			&height,
			&b.PreviousHash,
			&b.Timestamp,
			&b.Payload,
			&b.Reward,
			&b.ValidatorAddress,
		)
		if err != nil {
			return nil, fmt.Errorf("scan block row: %w", err)
		}
		b.Height = uint64(height)
		blocks = append(blocks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate block rows: %w", err)
	}
	return blocks, nil
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.Hash, &t.BlockHash, &t.Index, &t.Timestamp, &t.Script, &t.Result, &t.Fee); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txs, nil
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event
	for rows.Next() {
		var e domain.Event
		var kind string
		err := rows.Scan(
			&e.TransactionHash,
			&e.Index,
			&kind,
			&e.RawKind,
			&e.Address,
			&e.Contract,
			&e.Data,
			&e.TokenSymbol,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

func scanTokens(rows pgx.Rows) ([]*domain.Token, error) {
	var tokens []*domain.Token
	for rows.Next() {
		var t domain.Token
		var decimals, flags int64
		err := rows.Scan(
			&t.Symbol,
			&t.Name,
			&decimals,
			&flags,
			&t.MaxSupply,
			&t.CurrentSupply,
			&t.OwnerAddress,
			&t.Platform,
			&t.Hash,
			&t.TransactionCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		t.Decimals = uint32(decimals)
		t.Flags = domain.TokenFlags(flags)
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}
