package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/phantasma/stub"
	"phantasma-explorer/internal/storage/memory"
)

func newWalkStub(height uint64) *stub.RPCClient {
	rpc := stub.NewRPCClient()
	rpc.AddChain(phantasma.Chain{Name: "main", Address: mainAddress}, height)
	for h := uint64(1); h <= height; h++ {
		rpc.AddBlock(mainAddress, &phantasma.Block{Height: phantasma.Uint64(h)})
	}
	return rpc
}

func TestWalk_AppliesInOrder(t *testing.T) {
	for _, workers := range []int{1, 2, 5, 16} {
		rpc := &slowRPC{RPCClient: newWalkStub(30), max: 30}
		e := newEngine(rpc, memory.NewStore(), Options{FetchConcurrency: workers})

		var got []uint64
		err := e.walk(context.Background(), mainAddress, 1, 30, func(h uint64, b *phantasma.Block) error {
			assert.Equal(t, h, uint64(b.Height))
			got = append(got, h)
			return nil
		})
		require.NoError(t, err, "workers=%d", workers)
		require.Len(t, got, 30, "workers=%d", workers)
		for i, h := range got {
			assert.Equal(t, uint64(i+1), h, "workers=%d", workers)
		}
	}
}

func TestWalk_EmptyRange(t *testing.T) {
	rpc := newWalkStub(0)
	e := newEngine(rpc, memory.NewStore(), Options{FetchConcurrency: 4})

	err := e.walk(context.Background(), mainAddress, 1, 0, func(uint64, *phantasma.Block) error {
		t.Fatal("apply called on empty range")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rpc.TotalCalls())
}

func TestWalk_FetchErrorStopsBeforeGap(t *testing.T) {
	for _, workers := range []int{1, 4} {
		rpc := newWalkStub(20)
		rpc.FailBlock(mainAddress, 7, webError("getBlockByHeight"))
		e := newEngine(rpc, memory.NewStore(), Options{FetchConcurrency: workers})

		var last uint64
		err := e.walk(context.Background(), mainAddress, 1, 20, func(h uint64, _ *phantasma.Block) error {
			last = h
			return nil
		})
		require.Error(t, err, "workers=%d", workers)
		assert.ErrorIs(t, err, phantasma.ErrWebRequest)
		assert.Contains(t, err.Error(), "block 7")
		// Fetch-ahead may stop before applying blocks already fetched.
		assert.LessOrEqual(t, last, uint64(6), "workers=%d", workers)
		if workers == 1 {
			assert.Equal(t, uint64(6), last)
		}
	}
}

func TestWalk_ApplyErrorStops(t *testing.T) {
	errApply := errors.New("apply failed")
	for _, workers := range []int{1, 4} {
		rpc := newWalkStub(50)
		e := newEngine(rpc, memory.NewStore(), Options{FetchConcurrency: workers})

		err := e.walk(context.Background(), mainAddress, 1, 50, func(h uint64, _ *phantasma.Block) error {
			if h == 3 {
				return errApply
			}
			return nil
		})
		assert.ErrorIs(t, err, errApply, "workers=%d", workers)
		// The window keeps workers from running far past the failure.
		assert.LessOrEqual(t, rpc.Calls("getBlockByHeight"), 3+workers*4+workers, "workers=%d", workers)
	}
}

func TestWalk_PartialRange(t *testing.T) {
	rpc := newWalkStub(10)
	e := newEngine(rpc, memory.NewStore(), Options{FetchConcurrency: 3})

	var got []uint64
	err := e.walk(context.Background(), mainAddress, 8, 10, func(h uint64, _ *phantasma.Block) error {
		got = append(got, h)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 9, 10}, got)
	assert.Equal(t, 3, rpc.Calls("getBlockByHeight"))
}
