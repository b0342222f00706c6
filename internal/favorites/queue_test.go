package favorites

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/shop"
)

func TestWriteQueueFIFO(t *testing.T) {
	q := newWriteQueue()
	for _, id := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(job{product: shop.Product{ID: id}}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, j.product.ID)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestWriteQueueSignalCoalesces(t *testing.T) {
	q := newWriteQueue()
	q.Enqueue(job{})
	q.Enqueue(job{})

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("expected a single coalesced signal")
	default:
	}
}

func TestWriteQueueClose(t *testing.T) {
	q := newWriteQueue()
	require.True(t, q.Enqueue(job{product: shop.Product{ID: "kept"}}))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(job{}))

	_, open := <-q.Wait()
	assert.False(t, open)

	j, ok := q.TryDequeue()
	require.True(t, ok, "jobs queued before Close still drain")
	assert.Equal(t, "kept", j.product.ID)
}

func TestWriteQueueConcurrentEnqueue(t *testing.T) {
	q := newWriteQueue()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(job{})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, q.Len())
}
