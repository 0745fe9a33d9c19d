package nullifier

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T, capacity int) *Map {
	t.Helper()
	m, err := NewMap(make([]byte, MapSize(capacity)), capacity)
	require.NoError(t, err)
	return m
}

func TestCompareKeysIsLittleEndian(t *testing.T) {
	var a, b Key
	a[31] = 1
	b[0] = 0xff

	// The high byte lives at index 31.
	assert.Equal(t, 1, CompareKeys(&a, &b))
	assert.Equal(t, -1, CompareKeys(&b, &a))
	assert.Equal(t, 0, CompareKeys(&a, &a))
}

func TestMapInsertKeepsSortedOrder(t *testing.T) {
	m := newTestMap(t, 16)

	for _, v := range []uint64{8, 3, 12, 1, 9, 15, 2} {
		k := KeyFromUint64(v)
		ousted, err := m.TryInsert(k)
		require.NoError(t, err)
		assert.Nil(t, ousted)
	}

	assert.Equal(t, 7, m.Len())
	assert.Equal(t, KeyFromUint64(1), m.Min())
	assert.Equal(t, KeyFromUint64(15), m.Max())

	keys := m.SortedKeys()
	for i := 1; i < len(keys); i++ {
		assert.Equal(t, -1, CompareKeys(&keys[i-1], &keys[i]))
	}
}

func TestMapRejectsDuplicate(t *testing.T) {
	m := newTestMap(t, 4)

	_, err := m.TryInsert(KeyFromUint64(7))
	require.NoError(t, err)
	_, err = m.TryInsert(KeyFromUint64(7))
	assert.Error(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestMapContains(t *testing.T) {
	m := newTestMap(t, 8)

	for _, v := range []uint64{2, 4, 6} {
		_, err := m.TryInsert(KeyFromUint64(v))
		require.NoError(t, err)
	}

	for _, v := range []uint64{2, 4, 6} {
		k := KeyFromUint64(v)
		assert.True(t, m.Contains(&k))
	}
	for _, v := range []uint64{1, 3, 5, 7} {
		k := KeyFromUint64(v)
		assert.False(t, m.Contains(&k))
	}
}

func TestMapFullOustsMaximum(t *testing.T) {
	m := newTestMap(t, 4)

	for _, v := range []uint64{1, 3, 5, 7} {
		_, err := m.TryInsert(KeyFromUint64(v))
		require.NoError(t, err)
	}
	require.True(t, m.IsFull())

	ousted, err := m.TryInsert(KeyFromUint64(4))
	require.NoError(t, err)
	require.NotNil(t, ousted)
	assert.Equal(t, KeyFromUint64(7), *ousted)

	assert.Equal(t, 4, m.Len())
	assert.Equal(t, []Key{
		KeyFromUint64(1), KeyFromUint64(3), KeyFromUint64(4), KeyFromUint64(5),
	}, m.SortedKeys())
}

func TestMapFullBouncesLargerKey(t *testing.T) {
	m := newTestMap(t, 4)

	for _, v := range []uint64{1, 3, 5, 7} {
		_, err := m.TryInsert(KeyFromUint64(v))
		require.NoError(t, err)
	}

	k := KeyFromUint64(9)
	ousted, err := m.TryInsert(k)
	require.NoError(t, err)
	require.NotNil(t, ousted)
	assert.Equal(t, k, *ousted)
	assert.Equal(t, KeyFromUint64(7), m.Max())
}

func TestMapNewMinimumIntoFullMap(t *testing.T) {
	m := newTestMap(t, 4)

	for _, v := range []uint64{10, 20, 30, 40} {
		_, err := m.TryInsert(KeyFromUint64(v))
		require.NoError(t, err)
	}

	ousted, err := m.TryInsert(KeyFromUint64(5))
	require.NoError(t, err)
	require.NotNil(t, ousted)
	assert.Equal(t, KeyFromUint64(40), *ousted)
	assert.Equal(t, KeyFromUint64(5), m.Min())
	assert.Equal(t, KeyFromUint64(30), m.Max())
}

func TestMapRandomizedOrdering(t *testing.T) {
	const capacity = 1000
	m := newTestMap(t, capacity)
	rng := rand.New(rand.NewSource(42))

	values := rng.Perm(capacity)
	want := make([]uint64, capacity)
	for i, v := range values {
		want[i] = uint64(v)
		_, err := m.TryInsert(KeyFromUint64(uint64(v)))
		require.NoError(t, err)
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	keys := m.SortedKeys()
	require.Len(t, keys, capacity)
	for i, v := range want {
		assert.Equal(t, KeyFromUint64(v), keys[i])
	}

	for _, v := range want {
		k := KeyFromUint64(v)
		assert.True(t, m.Contains(&k))
	}
}

func TestMapReset(t *testing.T) {
	m := newTestMap(t, 8)
	for _, v := range []uint64{1, 2, 3} {
		_, err := m.TryInsert(KeyFromUint64(v))
		require.NoError(t, err)
	}

	m.Reset()
	assert.True(t, m.IsEmpty())

	k := KeyFromUint64(2)
	assert.False(t, m.Contains(&k))
	_, err := m.TryInsert(k)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestMapRejectsBadArguments(t *testing.T) {
	_, err := NewMap(make([]byte, 10), 8)
	assert.Error(t, err)

	_, err = NewMap(nil, 0)
	assert.Error(t, err)

	_, err = NewMap(nil, 1<<17)
	assert.Error(t, err)
}
