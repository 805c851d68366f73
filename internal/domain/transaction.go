package domain

// Transaction represents a transaction included in a block.
// Corresponds to transactions table in PostgreSQL.
type Transaction struct {
	Hash      string   // natural key
	BlockHash string   // owning block
	Index     int      // position within block
	Timestamp int64    // unix seconds
	Script    string   // hex-encoded script
	Result    string   // opaque return payload
	Fee       string   // decimal string
	Events    []*Event // in emission order
}
