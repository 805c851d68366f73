package seed

import (
	"context"
	"fmt"

	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/events"
	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/storage"
)

// convertBlock turns an RPC block into its read-model form. Every event is
// classified, its account linked to the transaction, and transfer events
// with a recoverable symbol counted once in w.TokenCounts.
// Returns the transfers found, in block order.
func convertBlock(ctx context.Context, chain *domain.Chain, height uint64, src *phantasma.Block, lk *linker, w *storage.Writes) (*domain.Block, []*domain.Transfer, error) {
	if src.Height != 0 && uint64(src.Height) != height {
		return nil, nil, &phantasma.Error{
			Kind:    phantasma.ErrorKindMalformedResponse,
			Method:  "getBlockByHeight",
			Message: fmt.Sprintf("requested height %d, got %d", height, src.Height),
		}
	}

	block := &domain.Block{
		Hash:             src.Hash,
		PreviousHash:     src.PreviousHash,
		Timestamp:        int64(src.Timestamp),
		Height:           height,
		ChainAddress:     chain.Address,
		ChainName:        chain.Name,
		Payload:          src.Payload,
		Reward:           src.Reward,
		ValidatorAddress: src.ValidatorAddress,
		Transactions:     make([]*domain.Transaction, 0, len(src.Txs)),
	}

	var transfers []*domain.Transfer
	for i, srcTx := range src.Txs {
		timestamp := int64(srcTx.Timestamp)
		if timestamp == 0 {
			timestamp = block.Timestamp
		}

		tx := &domain.Transaction{
			Hash:      srcTx.Hash,
			BlockHash: block.Hash,
			Index:     i,
			Timestamp: timestamp,
			Script:    srcTx.Script,
			Result:    srcTx.Result,
			Fee:       srcTx.Fee,
			Events:    make([]*domain.Event, 0, len(srcTx.Events)),
		}

		for j, srcEv := range srcTx.Events {
			ev := &domain.Event{
				TransactionHash: tx.Hash,
				Index:           j,
				Kind:            events.Classify(srcEv.Kind),
				RawKind:         srcEv.Kind,
				Address:         srcEv.Address,
				Contract:        srcEv.Contract,
				Data:            srcEv.Data,
			}

			if err := lk.link(ctx, ev.Address, tx.Hash, w); err != nil {
				return nil, nil, fmt.Errorf("tx %s: event %d: %w", tx.Hash, j, err)
			}

			if events.IsTransferEvent(ev.Kind) {
				if symbol, ok := events.TokenSymbolFromEvent(ev); ok {
					ev.TokenSymbol = symbol
					if w.TokenCounts == nil {
						w.TokenCounts = make(map[string]int64)
					}
					w.TokenCounts[symbol]++
				}
				if tr, ok := events.ToTransfer(ev, block, tx); ok {
					transfers = append(transfers, tr)
				}
			}

			tx.Events = append(tx.Events, ev)
		}

		block.Transactions = append(block.Transactions, tx)
	}

	return block, transfers, nil
}

// blockStats counts the contents of committed blocks.
type blockStats struct {
	transactions int
	events       int
	kinds        map[domain.EventKind]int
}

func countBlocks(blocks []*domain.Block) blockStats {
	s := blockStats{kinds: make(map[domain.EventKind]int)}
	for _, b := range blocks {
		s.transactions += len(b.Transactions)
		for _, tx := range b.Transactions {
			s.events += len(tx.Events)
			for _, ev := range tx.Events {
				s.kinds[ev.Kind]++
			}
		}
	}
	return s
}
