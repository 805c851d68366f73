package domain

// AccountKind classifies an address.
type AccountKind string

const (
	AccountKindUser    AccountKind = "user"
	AccountKindSystem  AccountKind = "system"
	AccountKindUnknown AccountKind = "unknown"
)

// Account represents an address that appeared in the chain data.
// Corresponds to accounts table in PostgreSQL.
type Account struct {
	Address string      // natural key
	Name    string      // registered name, may be empty
	Kind    AccountKind // inferred from the address encoding
}

// AccountTransaction links an account to a transaction that touched it.
// (AccountAddress, TransactionHash) is unique.
type AccountTransaction struct {
	AccountAddress  string
	TransactionHash string
}
