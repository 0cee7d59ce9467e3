package docstore

import "context"

// Container is the document-store capability consumed by the chat, cache,
// and catalog services. Implementations must be safe for concurrent use and
// long-lived: one container handle is constructed at startup and shared.
type Container interface {
	// ReadItem performs a point read and decodes the document into out.
	// Returns ErrNotFound if the id is absent from the partition.
	ReadItem(ctx context.Context, pk PartitionKey, id string, out any) error

	// CreateItem inserts a new document. Returns ErrConflict if a document
	// with the same id already exists in the partition.
	CreateItem(ctx context.Context, pk PartitionKey, item any) error

	// ReplaceItem overwrites an existing document in full. Returns
	// ErrNotFound if the id is absent.
	ReplaceItem(ctx context.Context, pk PartitionKey, id string, item any) error

	// UpsertItem inserts or fully replaces a document.
	UpsertItem(ctx context.Context, pk PartitionKey, item any) error

	// DeleteItem removes a document. Returns ErrNotFound if absent.
	DeleteItem(ctx context.Context, pk PartitionKey, id string) error

	// Query executes a paginated query.
	Query(ctx context.Context, q Query) (Iterator, error)

	// NewBatch starts a transactional batch scoped to one partition key.
	NewBatch(pk PartitionKey) TransactionalBatch
}

// TransactionalBatch accumulates operations confined to a single partition
// and executes them as one all-or-nothing unit. Operations queued after
// Execute are ignored.
type TransactionalBatch interface {
	// Upsert queues an insert-or-replace of a document.
	Upsert(item any)

	// Delete queues a removal by id.
	Delete(id string)

	// Len returns the number of queued operations.
	Len() int

	// Execute submits the batch. Either every queued operation is applied
	// or none are. Cancellation before submission leaves the store
	// untouched; once accepted, the batch commits as a unit.
	Execute(ctx context.Context) error
}
