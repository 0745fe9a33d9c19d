package nullifier

import (
	"errors"
	"sort"
)

const (
	// TreeHeight bounds the total set size to one hash per tree leaf.
	TreeHeight = 20

	// Capacity is the total number of keys the set can hold.
	Capacity = 1 << TreeHeight

	// KeysPerChild is the capacity of one child map, bounded by the
	// pointer width.
	KeysPerChild = 1 << 16

	// ChildCount is the number of child maps backing one set.
	ChildCount = (Capacity + KeysPerChild - 1) / KeysPerChild

	// MaxMovedValues bounds the overflow entries a single insertion
	// batch can leave in transit.
	MaxMovedValues = 4
)

// ErrCouldNotInsert covers every failed insertion: duplicates, a full
// set, and keys colliding with an in-transit moved value.
var ErrCouldNotInsert = errors.New("could not insert nullifier hash")

// ErrNoMovedValues signals a movement call with nothing in transit.
var ErrNoMovedValues = errors.New("no moved values to relocate")

type movedValue struct {
	key    Key
	target uint8
}

// Set holds up to Capacity keys across ChildCount sorted child maps.
// Children fill in order; once child i is full, every key in it is
// smaller than every key in child i+1 after the moved values drain.
type Set struct {
	children  [ChildCount]*Map
	maxValues [ChildCount]*Key

	count uint32
	moved []movedValue
}

func NewSet() *Set {
	return &Set{}
}

// child lazily allocates the backing buffer of a child map.
func (s *Set) child(i int) *Map {
	if s.children[i] == nil {
		m, err := NewMap(make([]byte, MapSize(KeysPerChild)), KeysPerChild)
		if err != nil {
			panic(err)
		}
		s.children[i] = m
	}
	return s.children[i]
}

// Count is the number of keys inserted so far, including moved values
// still in transit.
func (s *Set) Count() uint32 {
	return s.count
}

// findChildIndex is the smallest index whose max value bounds the key,
// falling through to the first non-full child.
func (s *Set) findChildIndex(k *Key) int {
	fullChildren := int(s.count) / KeysPerChild
	for i := 0; i < fullChildren; i++ {
		if s.maxValues[i] != nil && CompareKeys(k, s.maxValues[i]) <= 0 {
			return i
		}
	}
	return fullChildren
}

// CanInsert reports whether the key is absent from the set and the in-
// transit moved values, and the set has room.
func (s *Set) CanInsert(k Key) (bool, error) {
	if s.count >= Capacity {
		return false, ErrCouldNotInsert
	}

	for _, mv := range s.moved {
		if CompareKeys(&mv.key, &k) == 0 {
			return false, nil
		}
	}

	index := s.findChildIndex(&k)
	return !s.child(index).Contains(&k), nil
}

// TryInsert inserts the key into the child map covering its range. When
// that map is full its previous maximum is ousted and parked as a moved
// value targeting the next child; MoveToNextChild relocates it later.
func (s *Set) TryInsert(k Key) error {
	if s.count >= Capacity {
		return ErrCouldNotInsert
	}

	index := s.findChildIndex(&k)

	for _, mv := range s.moved {
		if CompareKeys(&mv.key, &k) == 0 {
			return ErrCouldNotInsert
		}
	}

	// When a moved value targeting this child is larger than the key,
	// swap the two so only minima ever enter a map.
	movedModified := false
	for i := range s.moved {
		if int(s.moved[i].target) == index && CompareKeys(&k, &s.moved[i].key) == -1 {
			s.moved[i].key, k = k, s.moved[i].key
			movedModified = true
			break
		}
	}

	child := s.child(index)

	// An insert into a full child ousts its maximum into the transit
	// list, which holds at most MaxMovedValues entries.
	if child.IsFull() && len(s.moved) >= MaxMovedValues {
		return ErrCouldNotInsert
	}

	ousted, err := child.TryInsert(k)
	if err != nil {
		return ErrCouldNotInsert
	}
	if ousted != nil {
		s.moved = append(s.moved, movedValue{key: *ousted, target: uint8(index) + 1})
		movedModified = true
	}

	s.count++
	max := child.Max()
	s.maxValues[index] = &max

	if movedModified {
		sortMovedValues(s.moved)
	}
	return nil
}

// MovedValuesEmpty reports whether relocation work is pending.
func (s *Set) MovedValuesEmpty() bool {
	return len(s.moved) == 0
}

// MoveToNextChild drains every moved value aimed at the smallest
// pending target into that child, large to small so the map only sees
// new minima. Maxima ousted along the way re-enter the transit list one
// child further.
func (s *Set) MoveToNextChild() error {
	if len(s.moved) == 0 {
		return ErrNoMovedValues
	}

	target := uint8(255)
	for _, mv := range s.moved {
		if mv.target < target {
			target = mv.target
		}
	}

	var pending, remaining []movedValue
	for _, mv := range s.moved {
		if mv.target == target {
			pending = append(pending, mv)
		} else {
			remaining = append(remaining, mv)
		}
	}

	child := s.child(int(target))
	for _, mv := range pending {
		ousted, err := child.TryInsert(mv.key)
		if err != nil {
			return ErrCouldNotInsert
		}
		if ousted != nil {
			remaining = append(remaining, movedValue{key: *ousted, target: target + 1})
		}
	}

	max := child.Max()
	s.maxValues[target] = &max

	sortMovedValues(remaining)
	s.moved = remaining
	return nil
}

// sortMovedValues orders large to small.
func sortMovedValues(moved []movedValue) {
	sort.Slice(moved, func(i, j int) bool {
		return CompareKeys(&moved[i].key, &moved[j].key) == 1
	})
}

// NumberOfMovementInstructions predicts how many MoveToNextChild calls
// inserting the given keys will require at the current fill level, so
// clients can plan their transaction sequence up front.
func (s *Set) NumberOfMovementInstructions(keys []Key) int {
	count := int(s.count)

	buckets := make([]bool, ChildCount)
	for i, k := range keys {
		fullChildren := (count + i) / KeysPerChild
		index := s.findChildIndex(&k)
		if index < fullChildren {
			for j := index; j < ChildCount; j++ {
				if j < fullChildren || j == index {
					buckets[j] = true
				}
			}
		}
	}

	movements := 0
	for _, b := range buckets {
		if b {
			movements++
		}
	}
	return movements
}

// SortedKeys returns the union of all child maps in ascending order.
// Only meaningful once the moved values have drained.
func (s *Set) SortedKeys() []Key {
	var keys []Key
	for i := 0; i < ChildCount; i++ {
		if s.children[i] == nil {
			continue
		}
		keys = append(keys, s.children[i].SortedKeys()...)
	}
	return keys
}
