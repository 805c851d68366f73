package events

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"phantasma-explorer/internal/address"
	"phantasma-explorer/internal/domain"
)

// ErrInvalidPayload is returned when event data cannot be decoded.
var ErrInvalidPayload = errors.New("invalid event payload")

// TokenEventData is the payload of a token movement event.
type TokenEventData struct {
	Symbol       string
	Value        string // decimal string in base units
	ChainAddress string // empty when the payload carries no chain
}

// DecodeTokenEventData decodes hex event data holding a serialized token
// payload: symbol, value, then the chain address, each length-prefixed.
// When a later field is malformed the fields decoded before it are still
// returned along with the error.
func DecodeTokenEventData(data string) (TokenEventData, error) {
	var out TokenEventData

	r, symbol, err := readSymbol(data)
	if err != nil {
		return out, err
	}
	out.Symbol = symbol
	out.Value = "0"

	if r.done() {
		return out, nil
	}
	value, err := r.bytes()
	if err != nil {
		return out, fmt.Errorf("%w: value: %v", ErrInvalidPayload, err)
	}
	out.Value = signedLittleEndian(value).String()

	if r.done() {
		return out, nil
	}
	chain, err := r.bytes()
	if err != nil {
		return out, fmt.Errorf("%w: chain: %v", ErrInvalidPayload, err)
	}
	addr, err := address.FromBytes(chain)
	if err != nil {
		return out, fmt.Errorf("%w: chain: %v", ErrInvalidPayload, err)
	}
	out.ChainAddress = addr.String()

	return out, nil
}

// TokenSymbolFromEvent recovers the token symbol of an event. It never
// fails; ok is false when no symbol can be extracted.
func TokenSymbolFromEvent(ev *domain.Event) (string, bool) {
	if ev == nil || ev.Data == "" {
		return "", false
	}
	if _, symbol, err := readSymbol(ev.Data); err == nil {
		return symbol, true
	}

	var obj struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal([]byte(ev.Data), &obj); err == nil && validSymbol(obj.Symbol) {
		return obj.Symbol, true
	}
	return "", false
}

// ToTransfer builds the archive row of a transfer event. ok is false for
// non-transfer events and undecodable payloads.
func ToTransfer(ev *domain.Event, block *domain.Block, tx *domain.Transaction) (*domain.Transfer, bool) {
	if ev == nil || !IsTransferEvent(ev.Kind) {
		return nil, false
	}

	t := &domain.Transfer{
		Kind:            ev.Kind,
		Address:         ev.Address,
		Amount:          "0",
		ChainAddress:    block.ChainAddress,
		TransactionHash: tx.Hash,
		EventIndex:      ev.Index,
		BlockHeight:     block.Height,
		Timestamp:       tx.Timestamp,
	}

	if d, _ := DecodeTokenEventData(ev.Data); d.Symbol != "" {
		t.Symbol = d.Symbol
		t.Amount = d.Value
		if d.ChainAddress != "" {
			t.ChainAddress = d.ChainAddress
		}
		return t, true
	}
	if symbol, ok := TokenSymbolFromEvent(ev); ok {
		t.Symbol = symbol
		return t, true
	}
	return nil, false
}

// readSymbol decodes the leading symbol field of a hex payload and returns
// the reader positioned after it.
func readSymbol(data string) (*reader, string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(data), "0x"))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	r := &reader{buf: raw}

	symbol, err := r.bytes()
	if err != nil {
		return nil, "", fmt.Errorf("%w: symbol: %v", ErrInvalidPayload, err)
	}
	if !validSymbol(string(symbol)) {
		return nil, "", fmt.Errorf("%w: symbol %q", ErrInvalidPayload, symbol)
	}
	return r, string(symbol), nil
}

func validSymbol(s string) bool {
	if s == "" || len(s) > 16 {
		return false
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// signedLittleEndian reads a two's complement little-endian integer.
func signedLittleEndian(b []byte) decimal.Decimal {
	if len(b) == 0 {
		return decimal.Zero
	}
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	n := new(big.Int).SetBytes(be)
	if b[len(b)-1]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return decimal.NewFromBigInt(n, 0)
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) done() bool {
	return r.pos >= len(r.buf)
}

func (r *reader) varint() (uint64, error) {
	if r.done() {
		return 0, errors.New("unexpected end of data")
	}
	prefix := r.buf[r.pos]
	r.pos++

	var size int
	switch prefix {
	case 0xFD:
		size = 2
	case 0xFE:
		size = 4
	case 0xFF:
		size = 8
	default:
		return uint64(prefix), nil
	}
	if r.pos+size > len(r.buf) {
		return 0, errors.New("truncated varint")
	}
	var scratch [8]byte
	copy(scratch[:], r.buf[r.pos:r.pos+size])
	r.pos += size
	return binary.LittleEndian.Uint64(scratch[:]), nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.varint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)-r.pos) {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, len(r.buf)-r.pos)
	}
	out := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}
