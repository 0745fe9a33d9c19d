package verifier

import (
	"veil/veil-verifier/compute"
	"veil/veil-verifier/tower"
)

const (
	inverseFq12Rounds = 4
	expByNegXRounds   = 2 + 2*63
)

// Non-adjacent form of the curve seed, least significant digit first.
// A digit of 2 encodes -1.
var seedNAF = [63]int8{
	1, 0, 0, 0, 1, 0, 1, 0, 0, 2, 0, 1, 0, 1, 0, 2,
	0, 0, 1, 0, 1, 0, 2, 0, 2, 0, 2, 0, 1, 0, 0, 0,
	1, 0, 0, 1, 0, 1, 0, 1, 0, 2, 0, 1, 0, 0, 1, 0,
	0, 0, 0, 1, 0, 1, 0, 0, 0, 0, 2, 0, 0, 0, 1,
}

var (
	inverseFq12Costs = compute.Rounds(28_500, 28_500, 150_000, 85_000)

	expByNegXCosts = compute.Seq(
		compute.Round(1_500),
		compute.Repeat(63, func(i int) compute.Costs {
			square := uint32(47_000)
			if i == 0 {
				square = 0
			}
			mul := uint32(129_000)
			if seedNAF[i] == 0 {
				mul = 0
			}
			return compute.Rounds(square, mul)
		}),
		compute.Round(1_500),
	)
)

// FinalExponentiation is the plan of the hard and easy parts of the
// final exponentiation, batched one instruction per transaction.
var FinalExponentiation = compute.Plan(compute.Seq(
	compute.Round(1_500),
	inverseFq12Costs,
	compute.Rounds(126_000, 55_000, 126_000),
	expByNegXCosts,
	compute.Rounds(90_000, 126_000),
	expByNegXCosts,
	compute.Round(45_000),
	expByNegXCosts,
	compute.Rounds(
		2_000,
		126_000, 126_000, 126_000, 126_000, 126_000,
		55_000, 126_000, 55_000, 127_000, 126_000, 55_000, 126_000,
	),
), 1_300_000)

// Round offsets within the final exponentiation.
const (
	feExpOneStart   = 8
	feTailOneStart  = feExpOneStart + expByNegXRounds
	feExpTwoStart   = feTailOneStart + 2
	feTailTwoStart  = feExpTwoStart + expByNegXRounds
	feExpThreeStart = feTailTwoStart + 1
	feTailLastStart = feExpThreeStart + expByNegXRounds
)

// finalExponentiation executes one instruction's rounds and, on the
// terminal round, compares the result against the pairing of alpha and
// beta to produce the verdict.
func (va *VerificationAccount) finalExponentiation(instruction, round int) (*bool, error) {
	if instruction >= FinalExponentiation.InstructionCount() {
		return nil, ErrComputationIsAlreadyFinished
	}
	rounds := int(FinalExponentiation.InstructionRounds[instruction])

	f := va.F()

	var result *tower.Fq12
	var err error
	for rr := round; rr < round+rounds; rr++ {
		result, err = va.finalExponentiationRound(rr, &f)
		if err != nil {
			return nil, err
		}
	}

	if round+rounds == FinalExponentiation.TotalRounds() {
		if result == nil {
			return nil, ErrCouldNotProcessProof
		}
		va.setF(result)
		alphaBeta := va.vk.AlphaBeta()
		verdict := result.Equal(&alphaBeta)
		va.setRound(uint32(round + rounds))
		va.setInstruction(uint32(instruction + 1))
		return &verdict, nil
	}

	va.setRound(uint32(round + rounds))
	va.setInstruction(uint32(instruction + 1))
	return nil, nil
}

// finalExponentiationRound dispatches a single round.
//
// Fq12 RAM slot assignment: 0 holds r, 1 holds f2 then y1 then y15,
// 2 holds y0 then y6 then y12, 3 holds y3 then y8, 4 holds y4 then y11
// then y13, 5 holds y7. The exponentiation sub-computation is framed
// past the live slots of its call site.
func (va *VerificationAccount) finalExponentiationRound(round int, f *tower.Fq12) (*tower.Fq12, error) {
	ram := va.ramFq12
	switch {
	case round == 0:
		var r tower.Fq12
		r.Conjugate(f)
		ram.Write(0, &r)
		ram.Write(1, f)

	case round < 1+inverseFq12Rounds:
		f2 := ram.Read(1)
		v, ok, err := va.inverseFq12(round-1, &f2)
		if err != nil {
			return nil, err
		}
		if ok {
			ram.Write(1, &v)
		}

	case round == 1+inverseFq12Rounds:
		r := ram.Read(0)
		f2 := ram.Read(1)
		r.Mul(&r, &f2)
		ram.Write(0, &r)
		ram.Write(1, &r)

	case round == 2+inverseFq12Rounds:
		r := ram.Read(0)
		r.Frobenius(&r, 2)
		ram.Write(0, &r)

	case round == 3+inverseFq12Rounds:
		r := ram.Read(0)
		f2 := ram.Read(1)
		r.Mul(&r, &f2)
		ram.Write(0, &r)
		ram.Write(2, &r)

	case round < feTailOneStart:
		va.runExpByNegX(round-feExpOneStart, 2, 3)

	case round == feTailOneStart:
		y0 := ram.Read(2)
		var y1, y2 tower.Fq12
		y1.CyclotomicSquare(&y0)
		y2.CyclotomicSquare(&y1)
		ram.Write(1, &y1)
		ram.Write(2, &y2)

	case round == feTailOneStart+1:
		y1 := ram.Read(1)
		y2 := ram.Read(2)
		var y3 tower.Fq12
		y3.Mul(&y2, &y1)
		ram.Write(3, &y3)
		ram.Write(4, &y3)

	case round < feTailTwoStart:
		va.runExpByNegX(round-feExpTwoStart, 4, 5)

	case round == feTailTwoStart:
		y4 := ram.Read(4)
		var y5 tower.Fq12
		y5.CyclotomicSquare(&y4)
		ram.Write(2, &y5)

	case round < feTailLastStart:
		va.runExpByNegX(round-feExpThreeStart, 2, 5)

	case round == feTailLastStart:
		y3 := ram.Read(3)
		y6 := ram.Read(2)
		y3.Conjugate(&y3)
		y6.Conjugate(&y6)
		ram.Write(3, &y3)
		ram.Write(2, &y6)

	case round == feTailLastStart+1:
		y6 := ram.Read(2)
		y4 := ram.Read(4)
		var y7 tower.Fq12
		y7.Mul(&y6, &y4)
		ram.Write(5, &y7)

	case round == feTailLastStart+2:
		y7 := ram.Read(5)
		y3 := ram.Read(3)
		var y8 tower.Fq12
		y8.Mul(&y7, &y3)
		ram.Write(3, &y8)

	case round == feTailLastStart+3:
		y8 := ram.Read(3)
		y1 := ram.Read(1)
		var y9 tower.Fq12
		y9.Mul(&y8, &y1)
		ram.Write(1, &y9)

	case round == feTailLastStart+4:
		y8 := ram.Read(3)
		y4 := ram.Read(4)
		var y10 tower.Fq12
		y10.Mul(&y8, &y4)
		ram.Write(4, &y10)

	case round == feTailLastStart+5:
		y10 := ram.Read(4)
		r := ram.Read(0)
		var y11 tower.Fq12
		y11.Mul(&y10, &r)
		ram.Write(4, &y11)

	case round == feTailLastStart+6:
		y9 := ram.Read(1)
		var y12 tower.Fq12
		y12.Frobenius(&y9, 1)
		ram.Write(2, &y12)

	case round == feTailLastStart+7:
		y12 := ram.Read(2)
		y11 := ram.Read(4)
		var y13 tower.Fq12
		y13.Mul(&y12, &y11)
		ram.Write(4, &y13)

	case round == feTailLastStart+8:
		y8 := ram.Read(3)
		y8.Frobenius(&y8, 2)
		ram.Write(3, &y8)

	case round == feTailLastStart+9:
		y8 := ram.Read(3)
		y13 := ram.Read(4)
		var y14 tower.Fq12
		y14.Mul(&y8, &y13)
		ram.Write(3, &y14)
		r := ram.Read(0)
		r.Conjugate(&r)
		ram.Write(0, &r)

	case round == feTailLastStart+10:
		r := ram.Read(0)
		y9 := ram.Read(1)
		var y15 tower.Fq12
		y15.Mul(&r, &y9)
		ram.Write(1, &y15)

	case round == feTailLastStart+11:
		y15 := ram.Read(1)
		y15.Frobenius(&y15, 3)
		ram.Write(1, &y15)

	case round == feTailLastStart+12:
		y15 := ram.Read(1)
		y14 := ram.Read(3)
		var out tower.Fq12
		out.Mul(&y15, &y14)
		return &out, nil

	default:
		return nil, ErrPartialComputationError
	}

	return nil, nil
}

// runExpByNegX dispatches one round of the seed exponentiation against
// the Fq12 RAM slot argSlot, binding the result back on the final
// round. frame is the number of live caller slots to skip past.
func (va *VerificationAccount) runExpByNegX(round, argSlot, frame int) {
	fe := va.ramFq12.Read(argSlot)

	va.ramFq12.IncFrame(frame)
	v, ok := va.expByNegX(round, &fe)
	va.ramFq12.DecFrame(frame)

	if ok {
		va.ramFq12.Write(argSlot, &v)
	}
}

// expByNegX raises fe to the negated curve seed by a square-and-multiply
// walk over its non-adjacent form, two rounds per digit. Slots 0 and 1
// of the current frame hold the conjugate of fe and the accumulator.
func (va *VerificationAccount) expByNegX(round int, fe *tower.Fq12) (tower.Fq12, bool) {
	ram := va.ramFq12
	switch {
	case round == 0:
		var feInv, res tower.Fq12
		feInv.Conjugate(fe)
		res.SetOne()
		ram.Write(0, &feInv)
		ram.Write(1, &res)

	case round < 1+2*63:
		digit := (round - 1) / 2
		if (round-1)%2 == 0 {
			if digit > 0 {
				res := ram.Read(1)
				res.CyclotomicSquare(&res)
				ram.Write(1, &res)
			}
		} else {
			switch seedNAF[digit] {
			case 1:
				res := ram.Read(1)
				res.Mul(&res, fe)
				ram.Write(1, &res)
			case 2:
				feInv := ram.Read(0)
				res := ram.Read(1)
				res.Mul(&res, &feInv)
				ram.Write(1, &res)
			}
		}

	case round == 1+2*63:
		res := ram.Read(1)
		var out tower.Fq12
		out.Conjugate(&res)
		return out, true
	}
	return tower.Fq12{}, false
}

// inverseFq12 inverts f over four rounds, parking the Fq6 intermediates
// in RAM. Fails on a non-invertible input.
func (va *VerificationAccount) inverseFq12(round int, f *tower.Fq12) (tower.Fq12, bool, error) {
	ram := va.ramFq6
	switch round {
	case 0:
		var v1 tower.Fq6
		v1.Mul(&f.C1, &f.C1)
		ram.Write(0, &v1)

	case 1:
		var v2 tower.Fq6
		v2.Mul(&f.C0, &f.C0)
		ram.Write(1, &v2)

	case 2:
		v1 := ram.Read(0)
		v2 := ram.Read(1)
		var v0 tower.Fq6
		v0.MulByNonResidue(&v1)
		v0.Sub(&v2, &v0)
		if v0.IsZero() {
			return tower.Fq12{}, false, ErrPartialComputationError
		}
		var v3 tower.Fq6
		v3.Inverse(&v0)
		ram.Write(2, &v3)

	case 3:
		v3 := ram.Read(2)
		var out tower.Fq12
		out.C0.Mul(&f.C0, &v3)
		out.C1.Mul(&f.C1, &v3)
		out.C1.Neg(&out.C1)
		return out, true, nil
	}
	return tower.Fq12{}, false, nil
}
