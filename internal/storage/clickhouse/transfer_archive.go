package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/observability"
	"phantasma-explorer/internal/storage"
)

// TransferArchive implements storage.TransferArchive using ClickHouse.
// Rows collapse on (symbol, transaction_hash, event_index) at merge time.
type TransferArchive struct {
	conn *Conn
}

// NewTransferArchive creates a new TransferArchive.
func NewTransferArchive(conn *Conn) *TransferArchive {
	return &TransferArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferArchive = (*TransferArchive)(nil)

// InsertTransfers appends transfers in one batch.
func (a *TransferArchive) InsertTransfers(ctx context.Context, transfers []*domain.Transfer) (err error) {
	if len(transfers) == 0 {
		return nil
	}
	amounts := make([]decimal.Decimal, len(transfers))
	for i, t := range transfers {
		if t == nil || t.TransactionHash == "" || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return fmt.Errorf("%w: amount %q: %v", storage.ErrInvalidInput, t.Amount, err)
		}
		amounts[i] = amount
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_transfers", time.Since(start).Seconds(), err)
	}()

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO token_transfers (
			symbol, kind, address, amount, chain_address, transaction_hash, event_index, block_height, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, t := range transfers {
		err = batch.Append(
			t.Symbol,
			string(t.Kind),
			t.Address,
			amounts[i],
			t.ChainAddress,
			t.TransactionHash,
			uint32(t.EventIndex),
			t.BlockHeight,
			time.Unix(t.Timestamp, 0).UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListBySymbol returns transfers of a token, newest block first.
func (a *TransferArchive) ListBySymbol(ctx context.Context, symbol string, page storage.Page) ([]*domain.Transfer, error) {
	page = page.Normalize()
	query := `
		SELECT symbol, kind, address, amount, chain_address, transaction_hash, event_index, block_height, timestamp
		FROM token_transfers FINAL
		WHERE symbol = ?
		ORDER BY block_height DESC, transaction_hash ASC, event_index ASC
		LIMIT ? OFFSET ?
	`

	rows, err := a.conn.Query(ctx, query, symbol, uint64(page.Limit), uint64(page.Offset))
	if err != nil {
		return nil, fmt.Errorf("query transfers by symbol: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

func scanTransfers(rows driver.Rows) ([]*domain.Transfer, error) {
	var out []*domain.Transfer
	for rows.Next() {
		var (
			t          domain.Transfer
			kind       string
			amount     decimal.Decimal
			eventIndex uint32
			ts         time.Time
		)
		err := rows.Scan(
			&t.Symbol,
			&kind,
			&t.Address,
			&amount,
			&t.ChainAddress,
			&t.TransactionHash,
			&eventIndex,
			&t.BlockHeight,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		t.Kind = domain.EventKind(kind)
		t.Amount = amount.String()
		t.EventIndex = int(eventIndex)
		t.Timestamp = ts.Unix()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}
	return out, nil
}
