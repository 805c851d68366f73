package seed

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"phantasma-explorer/internal/address"
	"phantasma-explorer/internal/domain"
	"phantasma-explorer/internal/phantasma"
	"phantasma-explorer/internal/phantasma/stub"
	"phantasma-explorer/internal/storage"
)

// mainAddress is a system address, as chain addresses are on the node.
var mainAddress = func() string {
	raw := make([]byte, address.Length)
	raw[0] = byte(address.KindSystem)
	copy(raw[2:], "main")
	a, err := address.FromBytes(raw)
	if err != nil {
		panic(err)
	}
	return a.String()
}()

// symbolData encodes a token payload carrying only a symbol.
func symbolData(symbol string) string {
	return fmt.Sprintf("%02x", len(symbol)) + hex.EncodeToString([]byte(symbol))
}

// newScenario returns a node with one chain "main" at height 2. Block 1 is
// empty; block 2 holds one transaction with two SOUL transfer events for addr1.
func newScenario() *stub.RPCClient {
	rpc := stub.NewRPCClient()
	rpc.Apps = []phantasma.App{{ID: "nachomen", Title: "Nacho Men", URL: "https://nachomen.io"}}
	rpc.Tokens = []phantasma.Token{
		{Symbol: "SOUL", Name: "Phantasma Stake", Decimals: 8, Flags: "Transferable,Fungible,Finite,Divisible,Stakable", MaxSupply: "100000000", CurrentSupply: "91136374"},
		{Symbol: "KCAL", Name: "Phantasma Energy", Decimals: 10, Flags: "Transferable,Fungible,Divisible,Fuel,Burnable", CurrentSupply: "5000000"},
	}
	rpc.AddChain(phantasma.Chain{Name: "main", Address: mainAddress}, 2)
	rpc.AddBlock(mainAddress, &phantasma.Block{Height: 1, Timestamp: 1000})
	rpc.AddBlock(mainAddress, &phantasma.Block{
		Height:    2,
		Timestamp: 1010,
		Txs: []phantasma.Transaction{{
			Hash: "tx1",
			Events: []phantasma.Event{
				{Address: "addr1", Kind: "TokenSend", Contract: "token", Data: symbolData("SOUL")},
				{Address: "addr1", Kind: "TokenReceive", Contract: "token", Data: symbolData("SOUL")},
			},
		}},
	})
	return rpc
}

// addTxBlock appends a block with one transaction to a stub chain.
func addTxBlock(rpc *stub.RPCClient, chainAddress string, height uint64, txHash string, evs ...phantasma.Event) {
	rpc.AddBlock(chainAddress, &phantasma.Block{
		Height:    phantasma.Uint64(height),
		Timestamp: phantasma.Uint64(1000 + 10*height),
		Txs:       []phantasma.Transaction{{Hash: txHash, Events: evs}},
	})
}

// slowRPC delays block fetches so that higher heights complete first.
type slowRPC struct {
	*stub.RPCClient
	max uint64
}

func (s *slowRPC) GetBlockByHeight(ctx context.Context, chainAddress string, height uint64) (*phantasma.Block, error) {
	delay := time.Duration(s.max-height) * 200 * time.Microsecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.RPCClient.GetBlockByHeight(ctx, chainAddress, height)
}

// failingArchive rejects every insert.
type failingArchive struct {
	calls int
}

func (a *failingArchive) InsertTransfers(_ context.Context, _ []*domain.Transfer) error {
	a.calls++
	return errors.New("archive unavailable")
}

func (a *failingArchive) ListBySymbol(_ context.Context, _ string, _ storage.Page) ([]*domain.Transfer, error) {
	return nil, nil
}

func webError(method string) error {
	return &phantasma.Error{Kind: phantasma.ErrorKindWebRequest, Method: method, Message: "connection reset"}
}
