package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Token represents a token registered on the nexus.
// Corresponds to tokens table in PostgreSQL.
type Token struct {
	Symbol           string     // natural key
	Name             string     // display name
	Decimals         uint32     // number of fractional digits
	Flags            TokenFlags // capability bitset
	MaxSupply        string     // decimal string, "0" when unbounded
	CurrentSupply    string     // decimal string
	OwnerAddress     string     // token owner account (may be empty)
	Platform         string     // originating platform, "phantasma" for native tokens
	Hash             string     // token contract hash
	TransactionCount int64      // number of transfer events seen for this token
}

// NormalizeSupply validates an arbitrary-precision decimal string and returns
// its canonical form. Empty input normalizes to "0".
func NormalizeSupply(s string) (string, error) {
	if s == "" {
		return "0", nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid supply %q: %w", s, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("invalid supply %q: negative", s)
	}
	return d.String(), nil
}
