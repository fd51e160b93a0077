package sequence

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueIDStartsAboveSeed(t *testing.T) {
	src := NewMemory(10000)
	id, err := src.UniqueID(context.Background(), NameTransportRun)
	require.NoError(t, err)
	assert.Equal(t, "10001", id)
}

func TestUniqueIDDefaultSeed(t *testing.T) {
	src := NewMemory(0)
	id, err := src.UniqueID(context.Background(), NameTestRun)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(DefaultSeed+1), id)
}

func TestUniqueValueOpaque(t *testing.T) {
	src := NewMemory(10000)
	v1, err := src.UniqueValue(context.Background(), NameStatus)
	require.NoError(t, err)
	v2, err := src.UniqueValue(context.Background(), NameStatus)
	require.NoError(t, err)

	assert.Len(t, v1, 24)
	assert.NotEqual(t, v1, v2)
	assert.NotContains(t, v1, "10001")
}

func TestSequencesAreIndependent(t *testing.T) {
	src := NewMemory(10000)
	ctx := context.Background()

	a, err := src.UniqueID(ctx, "a")
	require.NoError(t, err)
	b, err := src.UniqueID(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, "10001", a)
	assert.Equal(t, "10001", b)
}

func TestConcurrentCallersGetDistinctValues(t *testing.T) {
	const n = 200
	src := NewMemory(10000)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := src.UniqueID(ctx, NameStatus)
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, n)

	// max observed equals total successful increments
	assert.Equal(t, int64(10000+n), src.Max(NameStatus))
}
