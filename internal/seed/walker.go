package seed

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"phantasma-explorer/internal/phantasma"
)

// fetched is a block delivered by a fetch worker.
type fetched struct {
	height uint64
	block  *phantasma.Block
}

// fetchBlock retrieves one block under the per-call timeout.
func (e *engine) fetchBlock(ctx context.Context, chainAddress string, height uint64) (*phantasma.Block, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	block, err := e.rpc.GetBlockByHeight(ctx, chainAddress, height)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", height, err)
	}
	return block, nil
}

// blockHeight retrieves the current height of a chain under the per-call timeout.
func (e *engine) blockHeight(ctx context.Context, chainAddress string) (uint64, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.rpc.GetBlockHeight(ctx, chainAddress)
}

// walk fetches heights from..to of a chain and calls apply for each block
// strictly in ascending height order. With more than one worker, blocks are
// fetched ahead into a reorder buffer bounded by a window of heights.
// The first fetch or apply error stops the walk and is returned.
func (e *engine) walk(ctx context.Context, chainAddress string, from, to uint64, apply func(height uint64, b *phantasma.Block) error) error {
	if from > to {
		return nil
	}

	if e.fetchConcurrency <= 1 {
		for h := from; h <= to; h++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := e.fetchBlock(ctx, chainAddress, h)
			if err != nil {
				return err
			}
			if err := apply(h, b); err != nil {
				return err
			}
		}
		return nil
	}

	workers := e.fetchConcurrency
	g, gctx := errgroup.WithContext(ctx)

	heights := make(chan uint64)
	results := make(chan fetched, workers)
	// A slot is taken per issued height and released once it is applied.
	window := make(chan struct{}, workers*4)

	g.Go(func() error {
		defer close(heights)
		for h := from; h <= to; h++ {
			select {
			case window <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case heights <- h:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for h := range heights {
				b, err := e.fetchBlock(gctx, chainAddress, h)
				if err != nil {
					return err
				}
				select {
				case results <- fetched{height: h, block: b}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		pending := make(map[uint64]*phantasma.Block)
		next := from
		for r := range results {
			pending[r.height] = r.block
			for {
				b, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := apply(next, b); err != nil {
					return err
				}
				<-window
				next++
			}
		}
		// An incomplete walk means a worker or the producer failed;
		// their error is the one reported.
		return nil
	})

	return g.Wait()
}
