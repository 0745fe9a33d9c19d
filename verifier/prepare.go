package verifier

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"veil/veil-verifier/compute"
	"veil/veil-verifier/tower"
)

// PreparePublicInputsRounds is the number of rounds one public input
// takes: one per scalar byte plus the accumulation round.
const PreparePublicInputsRounds = 33

// Cost model of one preparation round, in thousandths of the
// transaction budget.
const (
	addMixedCost = 22
	addCost      = 30
	maxPrepareCU = 1_330
)

// PreparePublicInputsTotalRounds is the full preparation length for n
// public inputs.
func PreparePublicInputsTotalRounds(n int) int {
	return PreparePublicInputsRounds * n
}

// PreparePublicInputsInstructions batches the preparation rounds for a
// concrete input vector. Zero bytes cost nothing, so the plan depends
// on the inputs; clients derive the same plan off-line.
func PreparePublicInputsInstructions(publicInputs [][32]byte) []uint32 {
	var instructions []uint32
	var rounds, computeUnits uint32

	for _, input := range publicInputs {
		zero := input == [32]byte{}
		for b := 0; b < PreparePublicInputsRounds; b++ {
			var cus uint32
			switch {
			case b == 32:
				if !zero {
					cus = addCost
				}
			case input[b] != 0:
				cus = addMixedCost
			}

			if computeUnits+cus > maxPrepareCU {
				instructions = append(instructions, rounds)
				rounds = 1
				computeUnits = cus
			} else {
				rounds++
				computeUnits += cus
			}
		}
	}
	if rounds > 0 {
		instructions = append(instructions, rounds)
	}
	return instructions
}

func (va *VerificationAccount) preparePublicInputs(instruction, round int) error {
	if instruction >= len(va.prepareInstructions) {
		return ErrComputationIsAlreadyFinished
	}
	rounds := int(va.prepareInstructions[instruction])

	result := va.preparePublicInputsPartial(round, rounds)

	if round+rounds == PreparePublicInputsTotalRounds(va.vk.PublicInputsCount) {
		if result == nil {
			return ErrCouldNotProcessProof
		}
		va.SetPreparedInputs(result)
		va.setPhase(PhaseCombinedMillerLoop)
		va.setRound(0)
		va.setInstruction(0)
	} else {
		va.setRound(uint32(round + rounds))
		va.setInstruction(uint32(instruction + 1))
	}
	return nil
}

// preparePublicInputsPartial advances the multi-scalar accumulation:
// per input, 32 rounds add the table point of one scalar byte into the
// running accumulator (Fq RAM slots 3..5), and a final round folds the
// accumulator into g_ic (slots 0..2). Returns the affine result on the
// terminal round.
func (va *VerificationAccount) preparePublicInputsPartial(round, rounds int) *tower.G1Affine {
	// The accumulator slots are only populated once an input is under
	// way; at an input boundary the first round resets them anyway.
	var acc tower.G1Projective
	if round%PreparePublicInputsRounds != 0 {
		acc = readG1Projective(va.ramFq, 3)
	}
	inputIndex := round / PreparePublicInputsRounds
	input := va.PublicInput(inputIndex)

	for r := round; r < round+rounds; r++ {
		rr := r % PreparePublicInputsRounds
		if rr == 0 {
			acc.SetZero()
		}

		if rr < PreparePublicInputsRounds-1 {
			if input[rr] != 0 {
				p := va.vk.GammaABC(inputIndex, rr, input[rr])
				acc.AddMixed(&p)
			}
			continue
		}

		var gIC tower.G1Projective
		if inputIndex == 0 {
			gIC = va.vk.GammaABCBase()
		} else {
			gIC = readG1Projective(va.ramFq, 0)
		}
		if input != ([32]byte{}) {
			gIC.AddAssign(&acc)
		}

		if inputIndex < va.vk.PublicInputsCount-1 {
			writeG1Projective(va.ramFq, 0, &gIC)
			inputIndex++
			input = va.PublicInput(inputIndex)
		} else {
			out := gIC.ToAffine()
			return &out
		}
	}

	writeG1Projective(va.ramFq, 3, &acc)
	return nil
}

func readG1Projective(ram *compute.RAM[fp.Element], offset int) tower.G1Projective {
	var p tower.G1Projective
	p.X = ram.Read(offset)
	p.Y = ram.Read(offset + 1)
	p.Z = ram.Read(offset + 2)
	return p
}

func writeG1Projective(ram *compute.RAM[fp.Element], offset int, p *tower.G1Projective) {
	ram.Write(offset, &p.X)
	ram.Write(offset+1, &p.Y)
	ram.Write(offset+2, &p.Z)
}
