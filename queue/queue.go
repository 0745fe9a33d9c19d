// Package queue provides the fixed-capacity ring buffers holding
// pending verification and commitment work, FIFO with explicit head
// and tail cursors so the state can be persisted as plain integers.
package queue

import "errors"

var (
	ErrQueueFull     = errors.New("queue is full")
	ErrQueueEmpty    = errors.New("queue is empty")
	ErrInvalidAccess = errors.New("invalid queue access")
)

// Ring is a FIFO over capacity+1 slots. head points at the first
// element, tail at the next insertion slot; head == tail means empty,
// one slot always stays unused so full is head == (tail+1) mod size.
type Ring[T any] struct {
	head uint32
	tail uint32
	data []T
}

func NewRing[T any](capacity int) *Ring[T] {
	return &Ring[T]{data: make([]T, capacity+1)}
}

func (q *Ring[T]) size() uint32 {
	return uint32(len(q.data))
}

func (q *Ring[T]) Enqueue(v T) error {
	nextTail := (q.tail + 1) % q.size()
	if nextTail == q.head {
		return ErrQueueFull
	}
	q.data[q.tail] = v
	q.tail = nextTail
	return nil
}

// ViewFirst reads the first element without removing it.
func (q *Ring[T]) ViewFirst() (T, error) {
	return q.View(0)
}

func (q *Ring[T]) View(offset uint32) (T, error) {
	var zero T
	if q.head == q.tail {
		return zero, ErrQueueEmpty
	}
	if offset >= q.Len() {
		return zero, ErrInvalidAccess
	}
	return q.data[(q.head+offset)%q.size()], nil
}

func (q *Ring[T]) DequeueFirst() (T, error) {
	var zero T
	if q.head == q.tail {
		return zero, ErrQueueEmpty
	}
	v := q.data[q.head]
	q.head = (q.head + 1) % q.size()
	return v, nil
}

// Remove drops the first count elements.
func (q *Ring[T]) Remove(count uint32) error {
	if q.Len() < count {
		return ErrInvalidAccess
	}
	q.head = (q.head + count) % q.size()
	return nil
}

func (q *Ring[T]) Len() uint32 {
	if q.tail >= q.head {
		return q.tail - q.head
	}
	return q.size() - q.head + q.tail
}

func (q *Ring[T]) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Ring[T]) EmptySlots() uint32 {
	return uint32(len(q.data)) - 1 - q.Len()
}

func (q *Ring[T]) Clear() {
	q.head = 0
	q.tail = 0
}
