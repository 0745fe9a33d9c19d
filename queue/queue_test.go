package queue

import (
	"math/big"
	"testing"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingFIFO(t *testing.T) {
	q := NewRing[int](4)

	for i := 1; i <= 4; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, uint32(4), q.Len())

	for i := 1; i <= 4; i++ {
		v, err := q.DequeueFirst()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.IsEmpty())
}

func TestRingFull(t *testing.T) {
	q := NewRing[int](2)

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	assert.ErrorIs(t, q.Enqueue(3), ErrQueueFull)
	assert.Equal(t, uint32(0), q.EmptySlots())

	_, err := q.DequeueFirst()
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(3))
}

func TestRingEmpty(t *testing.T) {
	q := NewRing[int](2)

	_, err := q.DequeueFirst()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	_, err = q.ViewFirst()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingViewDoesNotRemove(t *testing.T) {
	q := NewRing[int](4)
	require.NoError(t, q.Enqueue(7))
	require.NoError(t, q.Enqueue(8))

	v, err := q.ViewFirst()
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = q.View(1)
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	_, err = q.View(2)
	assert.ErrorIs(t, err, ErrInvalidAccess)
	assert.Equal(t, uint32(2), q.Len())
}

func TestRingRemove(t *testing.T) {
	q := NewRing[int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(i))
	}

	require.NoError(t, q.Remove(3))
	assert.Equal(t, uint32(1), q.Len())
	v, err := q.ViewFirst()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	assert.ErrorIs(t, q.Remove(2), ErrInvalidAccess)
}

func TestRingWrapAround(t *testing.T) {
	q := NewRing[int](3)

	// Cycle enough times that the cursors wrap the backing array.
	next := 0
	for cycle := 0; cycle < 5; cycle++ {
		for i := 0; i < 3; i++ {
			require.NoError(t, q.Enqueue(next+i))
		}
		for i := 0; i < 3; i++ {
			v, err := q.DequeueFirst()
			require.NoError(t, err)
			assert.Equal(t, next+i, v)
		}
		next += 3
	}
	assert.True(t, q.IsEmpty())
}

func TestRingClear(t *testing.T) {
	q := NewRing[int](3)
	require.NoError(t, q.Enqueue(1))
	q.Clear()
	assert.True(t, q.IsEmpty())
	assert.Equal(t, uint32(3), q.EmptySlots())
}

func commitment(v uint64, feeVersion, rate uint32) CommitmentHashRequest {
	var c [32]byte
	c[0] = byte(v)
	c[1] = byte(v >> 8)
	return CommitmentHashRequest{Commitment: c, FeeVersion: feeVersion, MinBatchingRate: rate}
}

func TestNextBatchSingle(t *testing.T) {
	q := NewCommitmentQueue()
	require.NoError(t, q.Enqueue(commitment(1, 0, 0)))
	require.NoError(t, q.Enqueue(commitment(2, 0, 0)))

	batch, rate, err := q.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), rate)
	require.Len(t, batch, 1)
	assert.Equal(t, commitment(1, 0, 0), batch[0])

	// The batch stays in the queue.
	assert.Equal(t, uint32(2), q.Len())
}

func TestNextBatchGrowsWithBatchingRate(t *testing.T) {
	q := NewCommitmentQueue()

	// A leading rate-2 request stretches the batch to four commitments.
	require.NoError(t, q.Enqueue(commitment(1, 0, 2)))
	require.NoError(t, q.Enqueue(commitment(2, 0, 0)))
	require.NoError(t, q.Enqueue(commitment(3, 0, 0)))
	require.NoError(t, q.Enqueue(commitment(4, 0, 1)))

	batch, rate, err := q.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), rate)
	assert.Len(t, batch, 4)
}

func TestNextBatchStopsAtLowRateHead(t *testing.T) {
	q := NewCommitmentQueue()

	// A rate-0 head closes the batch immediately. Higher rates behind
	// it belong to later batches.
	require.NoError(t, q.Enqueue(commitment(1, 0, 0)))
	require.NoError(t, q.Enqueue(commitment(2, 0, 2)))

	batch, rate, err := q.NextBatch()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), rate)
	require.Len(t, batch, 1)
	assert.Equal(t, commitment(1, 0, 0), batch[0])
}

func TestNextBatchIncompleteQueue(t *testing.T) {
	q := NewCommitmentQueue()
	require.NoError(t, q.Enqueue(commitment(1, 0, 1)))

	_, _, err := q.NextBatch()
	assert.ErrorIs(t, err, ErrInvalidAccess)

	q.Clear()
	_, _, err = q.NextBatch()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestNextBatchRejectsMixedFeeVersions(t *testing.T) {
	q := NewCommitmentQueue()
	require.NoError(t, q.Enqueue(commitment(1, 0, 1)))
	require.NoError(t, q.Enqueue(commitment(2, 1, 1)))

	_, _, err := q.NextBatch()
	assert.ErrorIs(t, err, ErrInvalidFeeVersion)
}

func TestBatchRootSingleLeaf(t *testing.T) {
	batch := []CommitmentHashRequest{commitment(42, 0, 0)}

	root, err := BatchRoot(batch, 0)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), root)
}

func TestBatchRootPairsLeaves(t *testing.T) {
	batch := []CommitmentHashRequest{
		commitment(1, 0, 2), commitment(2, 0, 2),
		commitment(3, 0, 2), commitment(4, 0, 2),
	}

	root, err := BatchRoot(batch, 2)
	require.NoError(t, err)

	left, err := poseidon.Hash([]*big.Int{big.NewInt(1), big.NewInt(2)})
	require.NoError(t, err)
	right, err := poseidon.Hash([]*big.Int{big.NewInt(3), big.NewInt(4)})
	require.NoError(t, err)
	want, err := poseidon.Hash([]*big.Int{left, right})
	require.NoError(t, err)

	assert.Equal(t, want, root)
}

func TestBatchRootSizeMismatch(t *testing.T) {
	batch := []CommitmentHashRequest{commitment(1, 0, 1)}
	_, err := BatchRoot(batch, 1)
	assert.Error(t, err)
}

func TestVerificationQueueCapacity(t *testing.T) {
	q := NewVerificationQueue()
	for i := 0; i < VerificationQueueLen-1; i++ {
		require.NoError(t, q.Enqueue(VerificationRequest{FeeVersion: uint32(i)}))
	}
	assert.ErrorIs(t, q.Enqueue(VerificationRequest{}), ErrQueueFull)
}
