package etl

import (
	"context"

	"github.com/mpawlak/statsync/pkg/models"
)

// Store is the destination-store boundary. Any document store that can
// upsert a batch atomically and count a collection satisfies it.
type Store interface {
	// UpsertMany writes one batch as a single insert-or-replace operation
	// keyed by Document.Key. On error the whole batch is treated as not
	// applied.
	UpsertMany(ctx context.Context, collection string, docs []models.Document) error

	// Count returns the number of documents currently in a collection.
	Count(ctx context.Context, collection string) (int64, error)
}

// Source produces the raw rows for one category, already aggregated into a
// single ordered sequence.
type Source interface {
	Rows(ctx context.Context, cat models.Category) ([]models.RawRecord, error)
}
