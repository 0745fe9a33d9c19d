package compute

import "fmt"

// RAM is a fixed-capacity, frame-addressed slot store backed by a byte
// region. Each slot holds one element of a fixed byte size, preceded by
// a presence byte. Elements are deserialized on first read and written
// back only if changed, so advancing a computation by a few rounds
// touches a minimum of account bytes.
//
// Frames let a nested computation address its slots from zero: the
// caller bumps the frame by the number of slots it holds live before
// dispatching a callee round, and drops it after.
type RAM[T any] struct {
	data  []byte
	size  int
	frame int

	put func([]byte, *T)
	get func([]byte, *T)

	cache   []T
	present []bool
	loaded  []bool
	changed []bool
}

// RAMSize is the byte footprint of a RAM region with the given slot
// count and element size.
func RAMSize(slots, elemSize int) int {
	return slots * (1 + elemSize)
}

func NewRAM[T any](data []byte, slots, elemSize int, put func([]byte, *T), get func([]byte, *T)) (*RAM[T], error) {
	if len(data) != RAMSize(slots, elemSize) {
		return nil, fmt.Errorf("ram region is %d bytes, need %d", len(data), RAMSize(slots, elemSize))
	}
	r := &RAM[T]{
		data:    data,
		size:    elemSize,
		put:     put,
		get:     get,
		cache:   make([]T, slots),
		present: make([]bool, slots),
		loaded:  make([]bool, slots),
		changed: make([]bool, slots),
	}
	for i := 0; i < slots; i++ {
		r.present[i] = data[i*(1+elemSize)] == 1
	}
	return r, nil
}

func (r *RAM[T]) IncFrame(n int) {
	r.frame += n
}

func (r *RAM[T]) DecFrame(n int) {
	r.frame -= n
}

func (r *RAM[T]) Write(index int, v *T) {
	i := r.frame + index
	r.cache[i] = *v
	r.present[i] = true
	r.loaded[i] = true
	r.changed[i] = true
}

// Read returns the element in a slot. Reading a slot that was never
// written, or was freed, is a program error in the round dispatch.
func (r *RAM[T]) Read(index int) T {
	i := r.frame + index
	if !r.present[i] {
		panic(fmt.Sprintf("read of unset ram slot %d (frame %d)", index, r.frame))
	}
	if !r.loaded[i] {
		r.get(r.data[i*(1+r.size)+1:], &r.cache[i])
		r.loaded[i] = true
	}
	return r.cache[i]
}

// Free clears a slot's presence without touching its bytes.
func (r *RAM[T]) Free(index int) {
	i := r.frame + index
	var zero T
	r.cache[i] = zero
	r.present[i] = false
	r.loaded[i] = true
	r.changed[i] = true
}

// Flush serializes every changed slot back into the byte region.
func (r *RAM[T]) Flush() {
	for i := range r.cache {
		if !r.changed[i] {
			continue
		}
		off := i * (1 + r.size)
		if r.present[i] {
			r.data[off] = 1
			r.put(r.data[off+1:], &r.cache[i])
		} else {
			r.data[off] = 0
		}
		r.changed[i] = false
	}
}
