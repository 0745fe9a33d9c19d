package queue

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

// CommitmentQueueLen is the capacity of the commitment queue.
const CommitmentQueueLen = 240

// ErrInvalidFeeVersion signals mixed fee versions inside one batch.
var ErrInvalidFeeVersion = errors.New("fee version mismatch within batch")

// CommitmentHashRequest is one commitment awaiting batched insertion,
// the commitment value in 32-byte little-endian form.
type CommitmentHashRequest struct {
	Commitment      [32]byte
	FeeVersion      uint32
	MinBatchingRate uint32
}

// CommitmentsPerBatch is the committed batch size of a batching rate;
// the commitments of a batch form a hash sub-tree of that height.
func CommitmentsPerBatch(batchingRate uint32) int {
	return 1 << batchingRate
}

// CommitmentQueue orders commitments for sequential tree insertion.
type CommitmentQueue struct {
	Ring[CommitmentHashRequest]
}

func NewCommitmentQueue() *CommitmentQueue {
	return &CommitmentQueue{Ring: *NewRing[CommitmentHashRequest](CommitmentQueueLen - 1)}
}

// NextBatch walks the queue head accumulating requests until the
// highest batching rate seen declares a batch size equal to the length
// walked. All requests of a batch must share one fee version. The
// requests are not removed.
func (q *CommitmentQueue) NextBatch() ([]CommitmentHashRequest, uint32, error) {
	var requests []CommitmentHashRequest
	var highestBatchingRate uint32
	commitmentCount := int(^uint32(0))
	feeVersion := uint32(0)
	haveFeeVersion := false

	for len(requests) < commitmentCount {
		request, err := q.View(uint32(len(requests)))
		if err != nil {
			return nil, 0, err
		}

		if request.MinBatchingRate > highestBatchingRate {
			highestBatchingRate = request.MinBatchingRate
		}
		commitmentCount = CommitmentsPerBatch(highestBatchingRate)

		if haveFeeVersion && feeVersion != request.FeeVersion {
			return nil, 0, ErrInvalidFeeVersion
		}
		feeVersion = request.FeeVersion
		haveFeeVersion = true

		requests = append(requests, request)
	}

	if len(requests) == 0 {
		return nil, 0, ErrQueueEmpty
	}
	return requests, highestBatchingRate, nil
}

// BatchRoot hashes a committed batch into its sub-tree root with
// Poseidon, pairing leaves level by level.
func BatchRoot(requests []CommitmentHashRequest, batchingRate uint32) (*big.Int, error) {
	count := CommitmentsPerBatch(batchingRate)
	if len(requests) != count {
		return nil, fmt.Errorf("batch has %d commitments, rate %d needs %d", len(requests), batchingRate, count)
	}

	level := make([]*big.Int, count)
	for i, request := range requests {
		level[i] = commitmentToInt(&request.Commitment)
	}

	for len(level) > 1 {
		next := make([]*big.Int, len(level)/2)
		for i := range next {
			h, err := poseidon.Hash([]*big.Int{level[2*i], level[2*i+1]})
			if err != nil {
				return nil, err
			}
			next[i] = h
		}
		level = next
	}
	return level[0], nil
}

func commitmentToInt(commitment *[32]byte) *big.Int {
	var be [32]byte
	for i := range be {
		be[i] = commitment[31-i]
	}
	return new(big.Int).SetBytes(be[:])
}
