package nullifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetInsertAndLookup(t *testing.T) {
	s := NewSet()

	for _, v := range []uint64{5, 1, 9} {
		require.NoError(t, s.TryInsert(KeyFromUint64(v)))
	}
	assert.Equal(t, uint32(3), s.Count())

	ok, err := s.CanInsert(KeyFromUint64(5))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CanInsert(KeyFromUint64(6))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetRejectsDuplicate(t *testing.T) {
	s := NewSet()

	require.NoError(t, s.TryInsert(KeyFromUint64(3)))
	assert.ErrorIs(t, s.TryInsert(KeyFromUint64(3)), ErrCouldNotInsert)
	assert.Equal(t, uint32(1), s.Count())
}

func TestSetMoveWithNothingPending(t *testing.T) {
	s := NewSet()
	assert.True(t, s.MovedValuesEmpty())
	assert.ErrorIs(t, s.MoveToNextChild(), ErrNoMovedValues)
}

// Filling past two children in descending order forces every overflow
// path: full-map ousting, transit collisions, and cascaded movement into
// the third child.
func TestSetChainsAcrossChildren(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises two full child maps")
	}

	const total = 1<<17 + 100
	s := NewSet()

	for i := total - 1; i >= 0; i-- {
		k := KeyFromUint64(uint64(i))
		require.NoError(t, s.TryInsert(k))

		if i == KeysPerChild-1 {
			// The first child just ousted its maximum, which is in
			// transit and collides with a repeat insertion.
			inTransit := KeyFromUint64(uint64(2*KeysPerChild - 1))
			require.False(t, s.MovedValuesEmpty())
			ok, err := s.CanInsert(inTransit)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.ErrorIs(t, s.TryInsert(inTransit), ErrCouldNotInsert)
		}

		for !s.MovedValuesEmpty() {
			require.NoError(t, s.MoveToNextChild())
		}
	}

	assert.Equal(t, uint32(total), s.Count())

	keys := s.SortedKeys()
	require.Len(t, keys, total)
	for i, k := range keys {
		assert.Equal(t, KeyFromUint64(uint64(i)), k)
	}

	for _, v := range []uint64{0, KeysPerChild - 1, KeysPerChild, total - 1} {
		ok, err := s.CanInsert(KeyFromUint64(v))
		require.NoError(t, err)
		assert.False(t, ok, "key %d should be contained", v)
	}
	ok, err := s.CanInsert(KeyFromUint64(total))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNumberOfMovementInstructions(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises two full child maps")
	}

	const total = 2 * KeysPerChild
	s := NewSet()
	for i := total - 1; i >= 0; i-- {
		require.NoError(t, s.TryInsert(KeyFromUint64(uint64(i))))
		for !s.MovedValuesEmpty() {
			require.NoError(t, s.MoveToNextChild())
		}
	}

	// A key landing in the first of two full children drains through
	// both; one landing past the fill line moves nothing.
	low := []Key{KeyFromUint64(0)}
	assert.Equal(t, 0, s.NumberOfMovementInstructions(nil))
	assert.Equal(t, 2, s.NumberOfMovementInstructions(low))
	assert.Equal(t, 0, s.NumberOfMovementInstructions([]Key{KeyFromUint64(total + 1)}))
}

func TestSetTransitCapacityBound(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises a full child map")
	}

	s := NewSet()
	for i := 0; i < KeysPerChild; i++ {
		require.NoError(t, s.TryInsert(KeyFromUint64(uint64(i+100))))
	}

	// Each new minimum ousts the full child's maximum into transit.
	// The transit list holds MaxMovedValues entries, then insertion
	// stalls until a movement drains them.
	for i := 0; i < MaxMovedValues; i++ {
		require.NoError(t, s.TryInsert(KeyFromUint64(uint64(i))))
	}
	count := s.Count()
	blocked := KeyFromUint64(uint64(MaxMovedValues))
	assert.ErrorIs(t, s.TryInsert(blocked), ErrCouldNotInsert)
	assert.Equal(t, count, s.Count())

	for !s.MovedValuesEmpty() {
		require.NoError(t, s.MoveToNextChild())
	}
	require.NoError(t, s.TryInsert(blocked))
}

func TestSetTransitSwapKeepsMinimaOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises a full child map")
	}

	s := NewSet()
	for i := 0; i < KeysPerChild; i++ {
		require.NoError(t, s.TryInsert(KeyFromUint64(uint64(2*i))))
	}

	// Oust the maximum, then insert a key between it and the new
	// maximum: the transit entry and the key swap so the map only
	// receives new minima.
	require.NoError(t, s.TryInsert(KeyFromUint64(1)))
	require.False(t, s.MovedValuesEmpty())
	require.NoError(t, s.TryInsert(KeyFromUint64(uint64(2*KeysPerChild-3))))

	for !s.MovedValuesEmpty() {
		require.NoError(t, s.MoveToNextChild())
	}

	keys := s.SortedKeys()
	require.Len(t, keys, KeysPerChild+2)
	for i := 1; i < len(keys); i++ {
		assert.Equal(t, -1, CompareKeys(&keys[i-1], &keys[i]))
	}
}
