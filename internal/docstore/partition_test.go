package docstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/semstore/internal/docstore"
)

func TestPartitionKeyBuilder_Build(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		wantError  bool
		wantString string
	}{
		{
			name:       "single component",
			components: []string{"tenant-1"},
			wantString: "/tenant-1",
		},
		{
			name:       "three components",
			components: []string{"tenant-1", "user-1", "session-1"},
			wantString: "/tenant-1/user-1/session-1",
		},
		{
			name:      "no components",
			wantError: true,
		},
		{
			name:       "empty component",
			components: []string{"tenant-1", "", "session-1"},
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := docstore.NewPartitionKeyBuilder()
			for _, c := range tt.components {
				b.Append(c)
			}
			pk, err := b.Build()
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, docstore.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantString, pk.String())
			assert.Equal(t, len(tt.components), pk.Depth())
		})
	}
}

func TestPartitionKey_IsPrefixOf(t *testing.T) {
	full, err := docstore.NewPartitionKeyBuilder().
		Append("tenant-1").Append("user-1").Append("session-1").Build()
	require.NoError(t, err)

	twoLevel, err := docstore.NewPartitionKeyBuilder().
		Append("tenant-1").Append("user-1").Build()
	require.NoError(t, err)

	otherUser, err := docstore.NewPartitionKeyBuilder().
		Append("tenant-1").Append("user-2").Build()
	require.NoError(t, err)

	assert.True(t, twoLevel.IsPrefixOf(full))
	assert.True(t, full.IsPrefixOf(full))
	assert.False(t, full.IsPrefixOf(twoLevel))
	assert.False(t, otherUser.IsPrefixOf(full))
}

func TestPartitionKey_Equal(t *testing.T) {
	a, err := docstore.NewPartitionKey("tenant-1")
	require.NoError(t, err)
	b, err := docstore.NewPartitionKey("tenant-1")
	require.NoError(t, err)
	c, err := docstore.NewPartitionKey("tenant-2")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(docstore.PartitionKey{}))
}

func TestPartitionKey_ComponentsCopies(t *testing.T) {
	pk, err := docstore.NewPartitionKeyBuilder().Append("a").Append("b").Build()
	require.NoError(t, err)

	components := pk.Components()
	components[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, pk.Components())
}
