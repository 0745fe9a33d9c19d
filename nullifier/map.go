// Package nullifier stores spent-note hashes in a fixed set of sorted,
// byte-backed map accounts with an overflow protocol that keeps the
// union globally sorted.
package nullifier

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Key is a 256-bit hash in little-endian byte order.
type Key [32]byte

// CompareKeys orders keys as little-endian 256-bit integers.
func CompareKeys(a, b *Key) int {
	for i := 31; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// KeyFromUint64 builds a key from a small integer.
func KeyFromUint64(v uint64) Key {
	var k Key
	binary.LittleEndian.PutUint64(k[:8], v)
	return k
}

var (
	errDuplicateKey = errors.New("key already contained")
	errKeyTooLarge  = errors.New("key larger than the maximum of a full map")
)

// The mid-ptr tree is a binary tree over the sorted order that bounds
// the pointer walks of a lookup to roughly len/16 steps.
const (
	midPtrHeight = 3
	midPtrCount  = 1<<(midPtrHeight+1) - 1
	subsections  = midPtrCount + 1
)

const (
	offLen    = 0
	offMinPtr = 4
	offMaxPtr = 6
	offMidPtr = 8
	mapHeader = offMidPtr + 2*midPtrCount
)

// MapSize is the buffer size of a map with the given capacity.
func MapSize(capacity int) int {
	// next, prev and key regions follow the header
	return mapHeader + capacity*(2+2+32)
}

// Map is a write-efficient, append-only, insertion-sorted map of keys
// over a raw byte buffer. Entries are stored in insertion order and
// linked into sorted order through next/prev pointer arrays; min, max
// and mid pointers are persisted so lookups never scan the full list.
//
// The capacity upper bound is 2^16, the range of a pointer.
type Map struct {
	data     []byte
	capacity int

	nextOff int
	prevOff int
	keysOff int
}

// NewMap attaches to a map buffer. A zeroed buffer is a valid empty
// map.
func NewMap(data []byte, capacity int) (*Map, error) {
	if capacity <= 0 || capacity > 1<<16 {
		return nil, fmt.Errorf("map capacity %d out of range", capacity)
	}
	if len(data) != MapSize(capacity) {
		return nil, fmt.Errorf("map buffer is %d bytes, need %d", len(data), MapSize(capacity))
	}
	return &Map{
		data:     data,
		capacity: capacity,
		nextOff:  mapHeader,
		prevOff:  mapHeader + capacity*2,
		keysOff:  mapHeader + capacity*4,
	}, nil
}

func (m *Map) Len() int {
	return int(binary.LittleEndian.Uint32(m.data[offLen:]))
}

func (m *Map) setLen(n uint32) {
	binary.LittleEndian.PutUint32(m.data[offLen:], n)
}

func (m *Map) IsEmpty() bool { return m.Len() == 0 }
func (m *Map) IsFull() bool  { return m.Len() == m.capacity }

func (m *Map) minPtr() uint16 {
	return binary.LittleEndian.Uint16(m.data[offMinPtr:])
}

func (m *Map) setMinPtr(p uint16) {
	binary.LittleEndian.PutUint16(m.data[offMinPtr:], p)
}

func (m *Map) maxPtr() uint16 {
	return binary.LittleEndian.Uint16(m.data[offMaxPtr:])
}

func (m *Map) setMaxPtr(p uint16) {
	binary.LittleEndian.PutUint16(m.data[offMaxPtr:], p)
}

func (m *Map) midPtr(i int) uint16 {
	return binary.LittleEndian.Uint16(m.data[offMidPtr+2*i:])
}

func (m *Map) setMidPtr(i int, p uint16) {
	binary.LittleEndian.PutUint16(m.data[offMidPtr+2*i:], p)
}

func (m *Map) next(p uint16) uint16 {
	return binary.LittleEndian.Uint16(m.data[m.nextOff+2*int(p):])
}

func (m *Map) prev(p uint16) uint16 {
	return binary.LittleEndian.Uint16(m.data[m.prevOff+2*int(p):])
}

func (m *Map) linkPtrs(a, b uint16) {
	binary.LittleEndian.PutUint16(m.data[m.nextOff+2*int(a):], b)
	binary.LittleEndian.PutUint16(m.data[m.prevOff+2*int(b):], a)
}

func (m *Map) key(p uint16) Key {
	var k Key
	copy(k[:], m.data[m.keysOff+32*int(p):])
	return k
}

func (m *Map) setKey(p uint16, k *Key) {
	copy(m.data[m.keysOff+32*int(p):], k[:])
}

// Min is the smallest key; undefined on an empty map.
func (m *Map) Min() Key { return m.key(m.minPtr()) }

// Max is the largest key; undefined on an empty map.
func (m *Map) Max() Key { return m.key(m.maxPtr()) }

// Contains reports whether the key is in the map.
func (m *Map) Contains(k *Key) bool {
	_, err := m.binarySearch(k)
	return errors.Is(err, errDuplicateKey)
}

// TryInsert inserts a key into its sorted position. When the map is
// already full, the largest entry is dropped to make room and returned;
// a key larger than the maximum of a full map bounces back as that
// dropped entry. Inserting a duplicate fails.
func (m *Map) TryInsert(k Key) (*Key, error) {
	index, err := m.binarySearch(&k)
	if err != nil {
		if errors.Is(err, errKeyTooLarge) {
			return &k, nil
		}
		return nil, err
	}
	return m.insertAt(&k, index)
}

// binarySearch finds the sorted position of a key, walking the pointer
// list with mid-ptr shortcuts.
func (m *Map) binarySearch(k *Key) (uint32, error) {
	if m.IsEmpty() {
		return 0, nil
	}

	min := m.Min()
	switch CompareKeys(k, &min) {
	case 0:
		return 0, errDuplicateKey
	case -1:
		return 0, nil
	}

	max := m.Max()
	switch CompareKeys(k, &max) {
	case 0:
		return 0, errDuplicateKey
	case 1:
		if m.IsFull() {
			return 0, errKeyTooLarge
		}
		return uint32(m.Len()), nil
	}

	var mid uint32
	low := uint32(0)
	high := uint32(m.Len())

	lowPtr := m.minPtr()
	var midPtr uint16

	for low < high {
		mid = low + (high-low)/2
		midPtr = m.getPtr(lowPtr, low, mid-low)

		key := m.key(midPtr)
		switch CompareKeys(k, &key) {
		case -1:
			high = mid
		case 1:
			low = mid + 1
			lowPtr = m.next(midPtr)
		case 0:
			return 0, errDuplicateKey
		}
	}

	key := m.key(midPtr)
	if CompareKeys(k, &key) == 1 {
		mid++
	}
	return mid, nil
}

func (m *Map) insertAt(k *Key, index uint32) (*Key, error) {
	length := uint32(m.Len())
	if index > length {
		return nil, fmt.Errorf("insertion index %d past length %d", index, length)
	}

	isFull := m.IsFull()
	var maxKey Key
	if isFull {
		maxKey = m.Max()
	}
	maxPtrPredecessor := m.prev(m.maxPtr())

	var newPtr uint16
	if !isFull {
		// the underlying arrays fill linearly
		newPtr = uint16(length)
	} else {
		// a full map overrides the maximum, which is dropped anyway
		newPtr = m.maxPtr()
	}

	m.setKey(newPtr, k)

	switch index {
	case 0:
		ptr := m.minPtr()
		m.linkPtrs(newPtr, ptr)
		m.setMinPtr(newPtr)
	case length:
		ptr := m.maxPtr()
		m.linkPtrs(ptr, newPtr)
		m.setMaxPtr(newPtr)
	default:
		prev := m.getPtr(m.minPtr(), 0, index-1)
		next := m.next(prev)
		m.linkPtrs(prev, newPtr)
		m.linkPtrs(newPtr, next)
	}

	m.updateMidPtrs(index)

	if isFull {
		if index == length {
			m.setMaxPtr(newPtr)
		} else {
			m.setMaxPtr(maxPtrPredecessor)
		}
		return &maxKey, nil
	}

	m.setLen(length + 1)
	return nil, nil
}

func computeMid(midPtrIndex, length uint32) uint32 {
	return (1 + midPtrIndex) * length / subsections
}

func (m *Map) updateMidPtrs(insertionIndex uint32) {
	length := uint32(m.Len())
	isFull := m.IsFull()
	newLength := length
	if !isFull {
		newLength++
	}

	for i := 0; i < midPtrCount; i++ {
		mid := computeMid(uint32(i), length)
		newMid := computeMid(uint32(i), newLength)

		if insertionIndex <= mid {
			if mid == newMid || isFull {
				m.setMidPtr(i, m.prev(m.midPtr(i)))
			}
		} else if mid != newMid {
			m.setMidPtr(i, m.next(m.midPtr(i)))
		}
	}
}

// getPtr returns the pointer offset steps past basePtr in sorted order,
// shortcutting through the mid-ptr tree when the walk is long enough to
// profit.
func (m *Map) getPtr(basePtr uint16, basePtrOffset, offset uint32) uint16 {
	length := uint32(m.Len())
	distance := length / subsections

	if distance == 0 || offset <= 1 {
		return m.walk(basePtr, offset)
	}

	index := basePtrOffset + offset
	step := midPtrCount / 2
	midPtrIndex := step
	for i := 1; i <= midPtrHeight; i++ {
		mid := computeMid(uint32(midPtrIndex), length)
		step = 1 << (midPtrHeight - i)

		switch {
		case index < mid:
			midPtrIndex -= step
		case index == mid:
			return m.midPtr(midPtrIndex)
		default:
			midPtrIndex += step
		}
	}

	mid := computeMid(uint32(midPtrIndex), length)
	var d uint32
	var ptr uint16
	switch {
	case index < mid:
		var base uint32
		if midPtrIndex == 0 {
			ptr = m.minPtr()
		} else {
			base = computeMid(uint32(midPtrIndex)-1, length)
			ptr = m.midPtr(midPtrIndex - 1)
		}
		d = index - base
	case index == mid:
		return m.midPtr(midPtrIndex)
	default:
		ptr = m.midPtr(midPtrIndex)
		d = index - mid
	}

	if offset < d {
		return m.walk(basePtr, offset)
	}
	return m.walk(ptr, d)
}

func (m *Map) walk(base uint16, offset uint32) uint16 {
	ptr := base
	for i := uint32(0); i < offset; i++ {
		ptr = m.next(ptr)
	}
	return ptr
}

// SortedKeys walks the list from the minimum and returns all keys in
// ascending order.
func (m *Map) SortedKeys() []Key {
	keys := make([]Key, 0, m.Len())
	ptr := m.minPtr()
	for i := 0; i < m.Len(); i++ {
		keys = append(keys, m.key(ptr))
		ptr = m.next(ptr)
	}
	return keys
}

// Reset empties the map in place.
func (m *Map) Reset() {
	m.setLen(0)
	m.setMinPtr(0)
	m.setMaxPtr(0)
	m.linkPtrs(0, 0)
}
