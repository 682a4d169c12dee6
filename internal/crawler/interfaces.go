package crawler

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the response body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store persists the extracted entity graph. All writes are idempotent
// with respect to the uniqueness keys: product URL, review fingerprint,
// material name, and the full product-material tuple.
type Store interface {
	UpsertProduct(ctx context.Context, p Product) (int64, error)
	InsertVariant(ctx context.Context, productID int64, v Variant) error
	InsertReview(ctx context.Context, productID int64, r Review) error
	UpsertMaterial(ctx context.Context, name string) (int64, error)
	InsertProductMaterial(ctx context.Context, productID, materialID int64, m Mention) error
	Close()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
