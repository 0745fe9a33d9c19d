package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prepareCost replays the cost model over a plan, returning per
// instruction costs.
func prepareCost(inputs [][32]byte, plan []uint32) []uint32 {
	costs := make([]uint32, 0, len(plan))
	round := 0
	for _, rounds := range plan {
		var cus uint32
		for r := round; r < round+int(rounds); r++ {
			input := inputs[r/PreparePublicInputsRounds]
			rr := r % PreparePublicInputsRounds
			switch {
			case rr == PreparePublicInputsRounds-1:
				if input != ([32]byte{}) {
					cus += addCost
				}
			case input[rr] != 0:
				cus += addMixedCost
			}
		}
		costs = append(costs, cus)
		round += int(rounds)
	}
	return costs
}

func preparePlanVectors() [][][32]byte {
	dense := [32]byte{}
	for i := range dense {
		dense[i] = byte(i + 1)
	}
	sparse := [32]byte{5: 1, 20: 9}

	return [][][32]byte{
		{{}},
		{dense},
		{dense, dense},
		{sparse, {}, dense},
		{{0: 42}, sparse},
	}
}

func TestPrepareInstructionsCoverAllRounds(t *testing.T) {
	for _, inputs := range preparePlanVectors() {
		plan := PreparePublicInputsInstructions(inputs)

		var total uint32
		for _, rounds := range plan {
			total += rounds
		}
		assert.Equal(t, uint32(PreparePublicInputsTotalRounds(len(inputs))), total)
	}
}

func TestPrepareInstructionsRespectBudget(t *testing.T) {
	for _, inputs := range preparePlanVectors() {
		plan := PreparePublicInputsInstructions(inputs)
		for i, cus := range prepareCost(inputs, plan) {
			assert.LessOrEqual(t, cus, uint32(maxPrepareCU), "instruction %d", i)
		}
	}
}

func TestPrepareZeroInputsAreFree(t *testing.T) {
	// Every round of a zero vector is free, so the plan collapses into a
	// single instruction.
	inputs := [][32]byte{{}, {}, {}}
	plan := PreparePublicInputsInstructions(inputs)
	require.Len(t, plan, 1)
	assert.Equal(t, uint32(3*PreparePublicInputsRounds), plan[0])
}

func TestPrepareDenseInputsSplit(t *testing.T) {
	dense := [32]byte{}
	for i := range dense {
		dense[i] = 0xff
	}

	// One dense input costs 32 mixed additions plus the fold, 734 units;
	// two no longer fit one instruction.
	plan := PreparePublicInputsInstructions([][32]byte{dense, dense})
	assert.Greater(t, len(plan), 1)
}
