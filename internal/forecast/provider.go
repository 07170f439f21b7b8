package forecast

import "context"

// Source abstracts where a raw forecast document comes from (local file, CWA API, ...).
type Source interface {
	Name() string
	Fetch(ctx context.Context) (Payload, error)
}

// Repository is the contract the relational stores (and the in-memory store) must satisfy.
// The repository is the only owner of the forecast table: Replace rewrites it, everything
// else only reads.
type Repository interface {
	// Exists reports whether the forecast table has been created.
	Exists(ctx context.Context) (bool, error)

	// Replace makes the table hold exactly records, atomically. runID tags the rows
	// written by this call.
	Replace(ctx context.Context, runID string, records []Record) (int, error)

	Records(ctx context.Context, filter Filter) ([]Record, error)
	Locations(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
