// Package compute models long-running computations that are split into
// rounds and batched into instructions under a per-transaction
// compute-unit budget. A computation is described declaratively as a
// cost vector (one entry per round); the planner packs consecutive
// rounds into instructions so that no instruction exceeds its budget.
package compute

import "fmt"

// MaxComputeUnitLimit is the hard per-transaction budget ceiling.
const MaxComputeUnitLimit uint32 = 1_400_000

// ComputeUnitPadding is subtracted from every budget so an instruction
// never runs to the exact limit.
const ComputeUnitPadding uint32 = 10_000

// Costs is a per-round compute-unit vector.
type Costs []uint32

func Round(cu uint32) Costs {
	return Costs{cu}
}

func Rounds(cus ...uint32) Costs {
	return Costs(cus)
}

// Seq concatenates cost vectors in execution order.
func Seq(cs ...Costs) Costs {
	var out Costs
	for _, c := range cs {
		out = append(out, c...)
	}
	return out
}

// Zero returns a vector of the same round count with every cost zeroed.
// Skipped branches still consume their rounds but no compute.
func (c Costs) Zero() Costs {
	return make(Costs, len(c))
}

// Repeat appends n copies produced by f, which may vary per iteration.
func Repeat(n int, f func(i int) Costs) Costs {
	var out Costs
	for i := 0; i < n; i++ {
		out = append(out, f(i)...)
	}
	return out
}

// Computation is a planned partial computation.
type Computation struct {
	Budget     uint32
	RoundCosts Costs

	// InstructionRounds[i] is the number of consecutive rounds
	// instruction i executes.
	InstructionRounds []uint32

	TotalCompute uint64
}

// Plan batches rounds greedily: rounds are appended to the current
// instruction until the next one would push it past budget - padding.
func Plan(costs Costs, budget uint32) Computation {
	if budget > MaxComputeUnitLimit {
		panic(fmt.Sprintf("budget %d exceeds compute unit limit", budget))
	}
	maxCUs := budget - ComputeUnitPadding

	var instructions []uint32
	var rounds, cus uint32
	var total uint64

	for _, r := range costs {
		if r > maxCUs {
			panic(fmt.Sprintf("round cost %d exceeds instruction budget %d", r, maxCUs))
		}
		if cus+r > maxCUs {
			instructions = append(instructions, rounds)
			rounds = 1
			cus = r
		} else {
			rounds++
			cus += r
		}
		total += uint64(r)
	}
	if rounds > 0 {
		instructions = append(instructions, rounds)
	}

	if len(costs) > 0xffff {
		panic("computation rounds exceed the u16 round cursor")
	}

	return Computation{
		Budget:            budget,
		RoundCosts:        costs,
		InstructionRounds: instructions,
		TotalCompute:      total,
	}
}

func (c Computation) TotalRounds() int {
	return len(c.RoundCosts)
}

func (c Computation) InstructionCount() int {
	return len(c.InstructionRounds)
}

// TransactionCount is the number of maximum-budget transactions the
// instructions fit in.
func (c Computation) TransactionCount() int {
	perTx := MaxComputeUnitLimit / c.Budget
	if perTx == 0 {
		perTx = 1
	}
	n := len(c.InstructionRounds)
	return (n + int(perTx) - 1) / int(perTx)
}
