package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenFlags is the capability bitset of a token.
type TokenFlags uint32

// Token flag bits, in wire order.
const (
	TokenFlagTransferable TokenFlags = 1 << iota
	TokenFlagFungible
	TokenFlagFinite
	TokenFlagDivisible
	TokenFlagFuel
	TokenFlagStakable
	TokenFlagFiat
	TokenFlagSwappable
	TokenFlagBurnable
)

// TokenFlagsNone is the empty flag set.
const TokenFlagsNone TokenFlags = 0

var tokenFlagNames = []struct {
	flag TokenFlags
	name string
}{
	{TokenFlagTransferable, "Transferable"},
	{TokenFlagFungible, "Fungible"},
	{TokenFlagFinite, "Finite"},
	{TokenFlagDivisible, "Divisible"},
	{TokenFlagFuel, "Fuel"},
	{TokenFlagStakable, "Stakable"},
	{TokenFlagFiat, "Fiat"},
	{TokenFlagSwappable, "Swappable"},
	{TokenFlagBurnable, "Burnable"},
}

// Has reports whether all bits of f are set.
func (t TokenFlags) Has(f TokenFlags) bool {
	return t&f == f
}

// String renders the set as a comma-separated list of names, "None" if empty.
func (t TokenFlags) String() string {
	if t == TokenFlagsNone {
		return "None"
	}
	var names []string
	for _, fn := range tokenFlagNames {
		if t.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseTokenFlags decodes the wire representation of token flags.
// Accepts a decimal integer ("11") or a comma/space separated list of
// flag names ("Transferable, Fungible"). Names are case-insensitive.
func ParseTokenFlags(s string) (TokenFlags, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "None") {
		return TokenFlagsNone, nil
	}

	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return TokenFlags(n), nil
	}

	var flags TokenFlags
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '|' })
	for _, part := range parts {
		found := false
		for _, fn := range tokenFlagNames {
			if strings.EqualFold(part, fn.name) {
				flags |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return TokenFlagsNone, fmt.Errorf("unknown token flag %q", part)
		}
	}
	return flags, nil
}
