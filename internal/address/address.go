// Package address decodes Phantasma address text and infers what kind of
// account an address belongs to.
package address

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"phantasma-explorer/internal/domain"
)

// Length is the size of a serialized address.
const Length = 34

// Kind is the address kind stored in the first byte.
type Kind byte

const (
	KindInvalid Kind = iota
	KindUser
	KindSystem
	KindInterop
)

// ErrInvalidAddress is returned for text or bytes that do not form an address.
var ErrInvalidAddress = errors.New("invalid address")

var prefixes = map[Kind]byte{
	KindUser:    'P',
	KindSystem:  'S',
	KindInterop: 'X',
}

// Address is a decoded address.
type Address struct {
	raw [Length]byte
}

// Kind returns the address kind.
func (a Address) Kind() Kind {
	return Kind(a.raw[0])
}

// Bytes returns the serialized address.
func (a Address) Bytes() []byte {
	out := make([]byte, Length)
	copy(out, a.raw[:])
	return out
}

// PublicKey returns the ed25519 public key of a user address.
func (a Address) PublicKey() []byte {
	return append([]byte(nil), a.raw[2:]...)
}

// String renders the address as prefixed base58 text.
func (a Address) String() string {
	p, ok := prefixes[a.Kind()]
	if !ok {
		p = '?'
	}
	return string(p) + base58.Encode(a.raw[:])
}

// FromBytes builds an address from its serialized form.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Length {
		return a, fmt.Errorf("%w: %d bytes", ErrInvalidAddress, len(b))
	}
	copy(a.raw[:], b)
	if _, ok := prefixes[a.Kind()]; !ok {
		return a, fmt.Errorf("%w: kind %d", ErrInvalidAddress, a.raw[0])
	}
	return a, nil
}

// FromPublicKey builds a user address from an ed25519 public key.
func FromPublicKey(pub []byte) (Address, error) {
	if len(pub) != 32 {
		return Address{}, fmt.Errorf("%w: public key is %d bytes", ErrInvalidAddress, len(pub))
	}
	b := make([]byte, Length)
	b[0] = byte(KindUser)
	copy(b[2:], pub)
	return FromBytes(b)
}

// Decode parses prefixed base58 address text.
func Decode(text string) (Address, error) {
	if len(text) < 2 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}
	raw, err := base58.Decode(text[1:])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	a, err := FromBytes(raw)
	if err != nil {
		return a, err
	}
	if prefixes[a.Kind()] != text[0] {
		return a, fmt.Errorf("%w: prefix %q does not match kind %d", ErrInvalidAddress, text[0], a.Kind())
	}
	return a, nil
}

// AccountKind infers the account kind of address text. User addresses must
// carry a valid ed25519 point; anything undecodable is unknown.
func AccountKind(text string) domain.AccountKind {
	a, err := Decode(text)
	if err != nil {
		return domain.AccountKindUnknown
	}
	switch a.Kind() {
	case KindSystem:
		return domain.AccountKindSystem
	case KindUser:
		if _, err := new(edwards25519.Point).SetBytes(a.raw[2:]); err != nil {
			return domain.AccountKindUnknown
		}
		return domain.AccountKindUser
	default:
		return domain.AccountKindUnknown
	}
}
