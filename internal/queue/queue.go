// Package queue holds a bounded FIFO shared between goroutines.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO. When a limit is set, pushing past it
// discards the oldest items.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// New creates an unbounded queue.
func New[T any]() *Queue[T] {
	return NewBounded[T](0)
}

// NewBounded creates a queue holding at most limit items; limit <= 0 means unbounded.
func NewBounded[T any](limit int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		limit: limit,
	}
}

// Push appends items and returns how many old items were discarded to make room.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.limit <= 0 || len(q.items) <= q.limit {
		return 0
	}
	n := len(q.items) - q.limit
	q.items = append(q.items[:0:0], q.items[n:]...)
	q.dropped += uint64(n)
	return n
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of items discarded by the limit.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
