package etl

import "context"

// ── Collection ─────────────────────────────────────────────
// The school collection is both the input and the destination of a
// merge: it is loaded once, enriched in memory and saved back.

// Collection loads and saves the school collection.
type Collection interface {
	// Load reads the whole collection. Any failure is fatal to the run.
	Load(ctx context.Context) (*SchoolStore, error)

	// Save writes the collection and returns the size written in bytes.
	Save(ctx context.Context, store *SchoolStore) (int64, error)
}
