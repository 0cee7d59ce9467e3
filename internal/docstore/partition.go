package docstore

import (
	"fmt"
	"strings"
)

// PartitionKey is a hierarchical partition key. A key with fewer components
// is a prefix scope: a query scoped to (tenant, user) ranges over every
// (tenant, user, session) partition sharing that prefix.
type PartitionKey struct {
	components []string
}

// NewPartitionKey builds a single-component partition key.
func NewPartitionKey(component string) (PartitionKey, error) {
	return NewPartitionKeyBuilder().Append(component).Build()
}

// Components returns a copy of the key's components, outermost first.
func (k PartitionKey) Components() []string {
	out := make([]string, len(k.components))
	copy(out, k.components)
	return out
}

// Depth returns the number of components in the key.
func (k PartitionKey) Depth() int {
	return len(k.components)
}

// IsZero reports whether the key has no components.
func (k PartitionKey) IsZero() bool {
	return len(k.components) == 0
}

// Equal reports whether two keys have identical components.
func (k PartitionKey) Equal(other PartitionKey) bool {
	if len(k.components) != len(other.components) {
		return false
	}
	for i, c := range k.components {
		if other.components[i] != c {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether k is a (possibly equal) prefix of other.
func (k PartitionKey) IsPrefixOf(other PartitionKey) bool {
	if len(k.components) > len(other.components) {
		return false
	}
	for i, c := range k.components {
		if other.components[i] != c {
			return false
		}
	}
	return true
}

// String renders the key as a path, e.g. "/tenant/user/session".
func (k PartitionKey) String() string {
	return "/" + strings.Join(k.components, "/")
}

// PartitionKeyBuilder assembles a hierarchical partition key one component at
// a time, outermost first.
type PartitionKeyBuilder struct {
	components []string
}

// NewPartitionKeyBuilder returns an empty builder.
func NewPartitionKeyBuilder() *PartitionKeyBuilder {
	return &PartitionKeyBuilder{}
}

// Append adds the next component to the key.
func (b *PartitionKeyBuilder) Append(component string) *PartitionKeyBuilder {
	b.components = append(b.components, component)
	return b
}

// Build validates and returns the assembled key. Every component must be
// non-empty and at least one component is required.
func (b *PartitionKeyBuilder) Build() (PartitionKey, error) {
	if len(b.components) == 0 {
		return PartitionKey{}, fmt.Errorf("%w: partition key requires at least one component", ErrInvalidArgument)
	}
	for i, c := range b.components {
		if c == "" {
			return PartitionKey{}, fmt.Errorf("%w: empty partition key component at level %d", ErrInvalidArgument, i)
		}
	}
	components := make([]string, len(b.components))
	copy(components, b.components)
	return PartitionKey{components: components}, nil
}
