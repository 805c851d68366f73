package domain

// App is an entry of the node's application directory.
// Corresponds to apps table in PostgreSQL. Immutable once seeded.
type App struct {
	ID          string // natural key
	Title       string
	URL         string
	Description string
	Icon        string
}
