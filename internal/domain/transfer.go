package domain

// Transfer is a denormalized token movement derived from a transfer-kind event.
// Corresponds to token_transfers table in ClickHouse.
type Transfer struct {
	Symbol          string    // token symbol
	Kind            EventKind // send / receive / mint / burn / ...
	Address         string    // implicated account
	Amount          string    // decimal string in token base units
	ChainAddress    string    // chain the value moved on
	TransactionHash string
	EventIndex      int
	BlockHeight     uint64
	Timestamp       int64 // unix seconds
}
