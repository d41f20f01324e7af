// Package recordstore abstracts the durable line store the engine loads
// from at startup and writes back after each mutation. A collection is
// an ordered sequence of flat delimited text lines; the engine owns the
// line format, the backend only moves lines.
package recordstore

import "context"

// Collection names used by the engine.
const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionUsers    = "users"
)

// Store reads and rewrites whole collections. WriteAll replaces the
// collection; there is no partial update. Implementations must tolerate
// a collection that has never been written (ReadAll returns no lines).
type Store interface {
	ReadAll(ctx context.Context, collection string) ([]string, error)
	WriteAll(ctx context.Context, collection string, lines []string) error
}
