package phantasma

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// App is an application directory entry.
type App struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Token is a token directory entry. Flags stay in wire form and are
// decoded by the seeder.
type Token struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Decimals      Uint64 `json:"decimals"`
	CurrentSupply string `json:"currentSupply"`
	MaxSupply     string `json:"maxSupply"`
	Platform      string `json:"platform"`
	Hash          string `json:"hash"`
	Flags         string `json:"flags"`
	OwnerAddress  string `json:"owner"`
}

// Chain is a chain of the nexus.
type Chain struct {
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	ParentAddress string   `json:"parentAddress"`
	Height        Uint64   `json:"height"`
	Contracts     []string `json:"contracts"`
}

// Block is a block with its transactions.
type Block struct {
	Hash             string        `json:"hash"`
	PreviousHash     string        `json:"previousHash"`
	Timestamp        Uint64        `json:"timestamp"`
	Height           Uint64        `json:"height"`
	ChainAddress     string        `json:"chainAddress"`
	Protocol         Uint64        `json:"protocol"`
	Txs              []Transaction `json:"txs"`
	ValidatorAddress string        `json:"validatorAddress"`
	Reward           string        `json:"reward"`
	Payload          string        `json:"payload"`
}

// Transaction is a transaction with its events.
type Transaction struct {
	Hash         string  `json:"hash"`
	ChainAddress string  `json:"chainAddress"`
	Timestamp    Uint64  `json:"timestamp"`
	BlockHeight  Uint64  `json:"blockHeight"`
	BlockHash    string  `json:"blockHash"`
	Script       string  `json:"script"`
	Events       []Event `json:"events"`
	Result       string  `json:"result"`
	Fee          string  `json:"fee"`
}

// Event is a raw transaction event.
type Event struct {
	Address  string `json:"address"`
	Contract string `json:"contract"`
	Kind     string `json:"kind"`
	Data     string `json:"data"`
}

// Uint64 decodes an unsigned integer sent either as a JSON number or as a
// decimal string. Nodes are not consistent about this across methods.
type Uint64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint64) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*u = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("decode uint64 %s: %w", string(b), err)
	}
	*u = Uint64(n)
	return nil
}
