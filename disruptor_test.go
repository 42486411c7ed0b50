package backtest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcHandler[T any] struct {
	fn func(T)
}

func (h *funcHandler[T]) OnEvent(event T) {
	h.fn(event)
}

func TestRingBuffer_Order(t *testing.T) {
	var processed []int64
	rb := NewRingBuffer[int64](16, &funcHandler[int64]{fn: func(v int64) {
		processed = append(processed, v)
	}})
	rb.Start()

	// more events than slots: the producer has to wait for the consumer
	for i := int64(1); i <= 100; i++ {
		require.True(t, rb.Publish(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	require.Len(t, processed, 100)
	for i, v := range processed {
		assert.Equal(t, int64(i+1), v)
	}
	assert.Equal(t, int64(0), rb.PendingEvents())
}

func TestRingBuffer_PublishAfterShutdown(t *testing.T) {
	var count atomic.Int64
	rb := NewRingBuffer[int](4, &funcHandler[int]{fn: func(int) { count.Add(1) }})
	rb.Start()

	require.True(t, rb.Publish(1))
	require.NoError(t, rb.Shutdown(context.Background()))

	assert.False(t, rb.Publish(2))
	assert.Equal(t, int64(1), count.Load())
}

func TestRingBuffer_ShutdownTimeout(t *testing.T) {
	release := make(chan struct{})
	rb := NewRingBuffer[int](2, &funcHandler[int]{fn: func(int) { <-release }})
	rb.Start()

	rb.Publish(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rb.Shutdown(ctx), ErrTimeout)

	close(release)
	require.NoError(t, rb.Shutdown(context.Background()))
}

func TestRingBuffer_MultipleProducers(t *testing.T) {
	const producers, perProducer = 8, 500

	var mu sync.Mutex
	seen := make(map[int]int)
	rb := NewRingBuffer[int](64, &funcHandler[int]{fn: func(v int) {
		mu.Lock()
		seen[v]++
		mu.Unlock()
	}})
	rb.Start()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				rb.Publish(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rb.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, producers*perProducer)
	for v, n := range seen {
		assert.Equal(t, 1, n, "event %d", v)
	}
}

func TestNewRingBuffer_Capacity(t *testing.T) {
	assert.Panics(t, func() { NewRingBuffer[int](0, &funcHandler[int]{}) })
	assert.Panics(t, func() { NewRingBuffer[int](12, &funcHandler[int]{}) })
	assert.NotPanics(t, func() { NewRingBuffer[int](1, &funcHandler[int]{}) })
}
