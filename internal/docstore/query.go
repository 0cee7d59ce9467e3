package docstore

import (
	"context"
	"encoding/json"
)

// VectorQuery ranks results by cosine similarity against a query embedding.
// Higher scores are more similar; results are ordered descending.
type VectorQuery struct {
	// Field is the JSON field holding the document embedding.
	Field string

	// Query is the embedding to compare against.
	Query []float32

	// MinScore, when non-nil, is an exclusive lower bound on the
	// similarity score. Documents at or below the bound are dropped.
	MinScore *float64
}

// Query describes a paginated document query.
type Query struct {
	// Partition scopes the query. A zero key scans the whole container.
	Partition PartitionKey

	// PrefixScope widens Partition to match every partition it prefixes.
	// Used for ranging over all sessions of a (tenant, user) pair.
	PrefixScope bool

	// Filters are equality conditions on top-level JSON fields.
	Filters map[string]any

	// Distinct drops duplicate documents (by id) from the result set.
	Distinct bool

	// TopN caps the total result count when positive.
	TopN int

	// Projection restricts returned documents to the named fields.
	Projection []string

	// Vector, when set, orders results by descending similarity.
	Vector *VectorQuery

	// PageSize overrides the container's default page size when positive.
	PageSize int
}

// Page is one page of query results.
type Page struct {
	Items []json.RawMessage
}

// Iterator drains paginated query results. Callers must loop until HasMore
// reports false; partial drains observe only a prefix of the result set.
type Iterator interface {
	// HasMore reports whether another page is available.
	HasMore() bool

	// ReadNext returns the next page. Calling it after HasMore reports
	// false returns an empty page.
	ReadNext(ctx context.Context) (Page, error)
}

// All drains every page of an iterator and decodes each item into T.
func All[T any](ctx context.Context, it Iterator) ([]T, error) {
	var out []T
	for it.HasMore() {
		page, err := it.ReadNext(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, err
			}
			out = append(out, item)
		}
	}
	return out, nil
}
