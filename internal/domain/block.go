package domain

// Block represents a block of a chain.
// Corresponds to blocks table in PostgreSQL. (chain_address, height) is unique.
type Block struct {
	Hash             string // natural key
	PreviousHash     string
	Timestamp        int64  // unix seconds
	Height           uint64 // height within chain
	ChainAddress     string // owning chain
	ChainName        string // denormalized for listings
	Payload          string // opaque block payload
	Reward           string // decimal string
	ValidatorAddress string
	Transactions     []*Transaction // in block order
}
