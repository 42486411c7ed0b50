package backtest

import (
	"context"
	"runtime"
	"sync/atomic"
)

// EventHandler consumes the events of a RingBuffer on its single consumer goroutine.
type EventHandler[T any] interface {
	OnEvent(event T)
}

// RingBuffer is a bounded MPSC hand-off between tick readers and the replay loop.
// Events are delivered to the handler in claim order.
type RingBuffer[T any] struct {
	// Cache line padding to avoid false sharing
	_                [56]byte
	producerSequence atomic.Int64
	_                [56]byte
	consumerSequence atomic.Int64
	_                [56]byte

	buffer     []T
	bufferMask int64
	capacity   int64

	// published[i] holds the sequence last written to slot i
	published []int64

	handler EventHandler[T]

	isShutdown atomic.Bool
}

// isPowerOfTwo reports whether n can be used as a RingBuffer capacity.
func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

// NewRingBuffer creates a RingBuffer. capacity must be a power of 2.
func NewRingBuffer[T any](capacity int64, handler EventHandler[T]) *RingBuffer[T] {
	if !isPowerOfTwo(capacity) {
		panic("ring buffer capacity must be a power of 2")
	}

	rb := &RingBuffer[T]{
		buffer:     make([]T, capacity),
		published:  make([]int64, capacity),
		capacity:   capacity,
		bufferMask: capacity - 1,
		handler:    handler,
	}

	rb.producerSequence.Store(-1)
	rb.consumerSequence.Store(-1)

	for i := range rb.published {
		atomic.StoreInt64(&rb.published[i], -1)
	}

	return rb
}

// Publish claims the next slot and hands event to the consumer.
// It blocks while the buffer is full and returns false once Shutdown has been called.
func (rb *RingBuffer[T]) Publish(event T) bool {
	var nextSeq int64
	for {
		if rb.isShutdown.Load() {
			return false
		}

		current := rb.producerSequence.Load()
		nextSeq = current + 1

		// the producer may not lap the consumer
		if nextSeq-rb.capacity > rb.consumerSequence.Load() {
			runtime.Gosched()
			continue
		}

		if rb.producerSequence.CompareAndSwap(current, nextSeq) {
			break
		}
		runtime.Gosched()
	}

	index := nextSeq & rb.bufferMask
	rb.buffer[index] = event
	atomic.StoreInt64(&rb.published[index], nextSeq)
	return true
}

// Start launches the consumer goroutine.
func (rb *RingBuffer[T]) Start() {
	go rb.consumerLoop()
}

// Shutdown stops accepting events and waits until every claimed event has been handled.
func (rb *RingBuffer[T]) Shutdown(ctx context.Context) error {
	rb.isShutdown.Store(true)

	for rb.ConsumerSequence() < rb.ProducerSequence() {
		select {
		case <-ctx.Done():
			return ErrTimeout
		default:
			runtime.Gosched()
		}
	}
	return nil
}

func (rb *RingBuffer[T]) consumerLoop() {
	next := rb.consumerSequence.Load() + 1

	for {
		available := rb.producerSequence.Load()

		if rb.isShutdown.Load() {
			rb.drain(next)
			return
		}

		if next > available {
			runtime.Gosched()
			continue
		}
		for ; next <= available; next++ {
			rb.consume(next)
		}
	}
}

// drain handles the events claimed before shutdown.
func (rb *RingBuffer[T]) drain(next int64) {
	for available := rb.producerSequence.Load(); next <= available; next++ {
		rb.consume(next)
	}
}

func (rb *RingBuffer[T]) consume(seq int64) {
	index := seq & rb.bufferMask

	// a claimed slot may not be written yet
	for atomic.LoadInt64(&rb.published[index]) != seq {
		runtime.Gosched()
	}

	event := rb.buffer[index]
	var zero T
	rb.buffer[index] = zero
	rb.handler.OnEvent(event)

	rb.consumerSequence.Store(seq)
}

// ConsumerSequence returns the last handled sequence.
func (rb *RingBuffer[T]) ConsumerSequence() int64 {
	return rb.consumerSequence.Load()
}

// ProducerSequence returns the last claimed sequence.
func (rb *RingBuffer[T]) ProducerSequence() int64 {
	return rb.producerSequence.Load()
}

// PendingEvents returns the number of claimed events not yet handled.
func (rb *RingBuffer[T]) PendingEvents() int64 {
	return rb.producerSequence.Load() - rb.consumerSequence.Load()
}
