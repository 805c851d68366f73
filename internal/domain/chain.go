package domain

// Chain represents a chain of the nexus.
// Corresponds to chains table in PostgreSQL. The chain address is also
// the address of the chain's root account.
type Chain struct {
	Address       string   // natural key
	Name          string   // chain name ("main", ...)
	Height        uint64   // observed height at last sync
	ParentAddress *string  // nil for the root chain
	Blocks        []*Block // ordered by height ASC
}
