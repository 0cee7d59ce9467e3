package docstore

import "errors"

// Sentinel errors for document store operations.
var (
	// ErrNotFound is returned by point reads, replaces, and deletes on an
	// id that does not exist in the target partition.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when creating a document whose id already
	// exists in the target partition.
	ErrConflict = errors.New("document already exists")

	// ErrInvalidArgument indicates a malformed request: an empty partition
	// key component, a document without an id, a mixed-partition batch, or
	// a malformed embedding vector.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnavailable indicates a transient store failure. Callers must not
	// collapse it into an empty result.
	ErrUnavailable = errors.New("store unavailable")
)
