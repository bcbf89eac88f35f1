package snchan

import "fmt"

// Queue is a bounded, multi-producer, single-consumer FIFO.
//
// Neither side ever blocks:
// [Queue.TryPush] fails immediately when the queue is at capacity,
// and [Queue.TryPop] returns immediately when it is empty.
// A consumer that prefers to block in a select statement
// may read from [Queue.C] directly.
//
// The queue is never closed.
// Producers may hold references to it for the lifetime of the process,
// and a send on a closed channel would panic.
type Queue[T any] struct {
	ch chan T
}

// NewQueue returns a queue that holds at most capacity items.
// NewQueue panics if capacity is not positive.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic(fmt.Errorf("BUG: queue capacity must be positive (got %d)", capacity))
	}

	return &Queue[T]{ch: make(chan T, capacity)}
}

// TryPush appends v to the queue,
// reporting false without blocking if the queue is full.
func (q *Queue[T]) TryPush(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// TryPop removes and returns the oldest item in the queue.
// The boolean result is false if the queue was empty.
func (q *Queue[T]) TryPop() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// C returns the receive side of the queue,
// for consumers that select over multiple sources.
func (q *Queue[T]) C() <-chan T {
	return q.ch
}

// Len reports the number of items currently queued.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap reports the fixed capacity of the queue.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
