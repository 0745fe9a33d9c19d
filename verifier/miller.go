package verifier

import (
	"veil/veil-verifier/compute"
	"veil/veil-verifier/tower"
)

// Round counts of the Miller loop sub-computations.
const (
	doublingStepRounds = 2
	additionStepRounds = 2
	mulByCharRounds    = 2
	mulBy034Rounds     = 3
	combinedEllRounds  = 3*mulBy034Rounds + 4

	millerIterRounds = 1 + doublingStepRounds + combinedEllRounds +
		additionStepRounds + combinedEllRounds

	millerTailOneStart = 1 + 64*millerIterRounds
	millerTailTwoStart = millerTailOneStart + mulByCharRounds +
		additionStepRounds + combinedEllRounds + mulByCharRounds
	millerFinalRound = millerTailTwoStart + additionStepRounds + combinedEllRounds
)

// Per-round compute-unit vectors, matching the round bodies below.
var (
	doublingStepCosts = compute.Rounds(43_000, 25_000)
	additionStepCosts = compute.Rounds(43_000, 42_000)
	mulByCharCosts    = compute.Rounds(12_000, 12_000)
	mulBy034Costs     = compute.Rounds(20_500, 55_500, 44_500)

	combinedEllCosts = compute.Seq(
		compute.Round(9_500), mulBy034Costs,
		compute.Round(9_200), mulBy034Costs,
		compute.Round(9_200), mulBy034Costs,
		compute.Round(1_000),
	)
)

// CombinedMillerLoop is the plan of the folded three-pairing Miller
// loop, batched under the default transaction budget.
var CombinedMillerLoop = compute.Plan(compute.Seq(
	compute.Round(3_000),
	compute.Repeat(64, func(i int) compute.Costs {
		square := compute.Round(88_000)
		if i == 0 {
			square = compute.Round(0)
		}
		addition := additionStepCosts
		secondEll := combinedEllCosts
		if ateLoopCount[i] == 0 {
			addition = addition.Zero()
			secondEll = secondEll.Zero()
		}
		return compute.Seq(square, doublingStepCosts, combinedEllCosts, addition, secondEll)
	}),
	mulByCharCosts, additionStepCosts, combinedEllCosts, mulByCharCosts,
	additionStepCosts, combinedEllCosts,
	compute.Round(500),
), 250_000)

// combinedMillerLoop executes one instruction's rounds of the Miller
// phase and persists the cursors.
func (va *VerificationAccount) combinedMillerLoop(instruction, round int) error {
	if instruction >= CombinedMillerLoop.InstructionCount() {
		return ErrComputationIsAlreadyFinished
	}
	rounds := int(CombinedMillerLoop.InstructionRounds[instruction])

	a := va.A()
	b := va.B()
	c := va.C()
	preparedInputs := va.PreparedInputs()
	r := va.r()
	altB := va.altB()
	coeffIndex := va.CoeffIndex()

	var result *tower.Fq12
	var err error
	for rr := round; rr < round+rounds; rr++ {
		result, err = va.combinedMillerLoopRound(rr, &a, &b, &c, &preparedInputs, &r, &coeffIndex, &altB)
		if err != nil {
			return err
		}
	}

	va.setCoeffIndex(coeffIndex)

	if round+rounds == CombinedMillerLoop.TotalRounds() {
		if result == nil {
			return ErrCouldNotProcessProof
		}
		va.setF(result)
		va.setPhase(PhaseFinalExponentiation)
		va.setRound(0)
		va.setInstruction(0)
	} else {
		va.setR(&r)
		va.setAltB(&altB)
		va.setRound(uint32(round + rounds))
		va.setInstruction(uint32(instruction + 1))
	}
	return nil
}

// combinedMillerLoopRound dispatches a single round.
//
// RAM layout at the loop level: Fq2 slots 0..2 hold the current line
// coefficients, Fq12 slot 0 holds the running f. Sub-computations are
// framed past those.
func (va *VerificationAccount) combinedMillerLoopRound(
	round int,
	a *tower.G1Affine,
	b *tower.G2Affine,
	c, preparedInputs *tower.G1Affine,
	r *tower.G2HomProjective,
	coeffIndex *int,
	altB *tower.G2Affine,
) (*tower.Fq12, error) {
	switch {
	case round == 0:
		r.X = b.X
		r.Y = b.Y
		r.Z.SetOne()

		var f tower.Fq12
		f.SetOne()
		va.ramFq12.Write(0, &f)

		altB.Neg(b)

		var zero tower.Fq2
		va.ramFq2.Write(0, &zero)
		va.ramFq2.Write(1, &zero)
		va.ramFq2.Write(2, &zero)

	case round < millerTailOneStart:
		i := (round - 1) / millerIterRounds
		sub := (round - 1) % millerIterRounds
		switch {
		case sub == 0:
			if i > 0 {
				f := va.ramFq12.Read(0)
				f.Square(&f)
				va.ramFq12.Write(0, &f)
			}

		case sub < 1+doublingStepRounds:
			va.enterSubComputation()
			coeffs, ok := va.doublingStep(sub-1, r)
			va.leaveSubComputation()
			if ok {
				va.writeCoeffs(&coeffs)
			}

		case sub < 1+doublingStepRounds+combinedEllRounds:
			va.runCombinedEll(sub-1-doublingStepRounds, a, preparedInputs, c, *coeffIndex, coeffIndex)

		case sub < 1+doublingStepRounds+combinedEllRounds+additionStepRounds:
			if ateLoopCount[i] != 0 {
				q := b
				if ateLoopCount[i] == 2 {
					q = altB
				}
				va.enterSubComputation()
				coeffs, ok := va.additionStep(sub-1-doublingStepRounds-combinedEllRounds, r, q)
				va.leaveSubComputation()
				if ok {
					va.writeCoeffs(&coeffs)
				}
			}

		default:
			if ateLoopCount[i] != 0 {
				va.runCombinedEll(sub-1-doublingStepRounds-combinedEllRounds-additionStepRounds, a, preparedInputs, c, *coeffIndex, coeffIndex)
			}
		}

	case round < millerTailTwoStart:
		sub := round - millerTailOneStart
		switch {
		case sub < mulByCharRounds:
			va.enterSubComputation()
			v, ok := va.mulByCharacteristics(sub, b)
			va.leaveSubComputation()
			if ok {
				altB.Set(&v)
			}

		case sub < mulByCharRounds+additionStepRounds:
			va.enterSubComputation()
			coeffs, ok := va.additionStep(sub-mulByCharRounds, r, altB)
			va.leaveSubComputation()
			if ok {
				va.writeCoeffs(&coeffs)
			}

		case sub < mulByCharRounds+additionStepRounds+combinedEllRounds:
			idx := coeffIndex
			if preparedInputs.IsZero() {
				idx = nil
			}
			va.runCombinedEll(sub-mulByCharRounds-additionStepRounds, a, preparedInputs, c, *coeffIndex, idx)

		default:
			va.enterSubComputation()
			v, ok := va.mulByCharacteristics(sub-mulByCharRounds-additionStepRounds-combinedEllRounds, altB)
			va.leaveSubComputation()
			if ok {
				altB.X = v.X
				altB.Y.Neg(&v.Y)
				altB.Infinity = v.Infinity
			}
		}

	case round < millerFinalRound:
		sub := round - millerTailTwoStart
		switch {
		case sub < additionStepRounds:
			va.enterSubComputation()
			coeffs, ok := va.additionStep(sub, r, altB)
			va.leaveSubComputation()
			if ok {
				va.writeCoeffs(&coeffs)
			}

		default:
			idx := coeffIndex
			if preparedInputs.IsZero() {
				idx = nil
			}
			va.runCombinedEll(sub-additionStepRounds, a, preparedInputs, c, *coeffIndex, idx)
		}

	case round == millerFinalRound:
		f := va.ramFq12.Read(0)
		return &f, nil

	default:
		return nil, ErrPartialComputationError
	}

	return nil, nil
}

func (va *VerificationAccount) enterSubComputation() {
	va.ramFq2.IncFrame(3)
	va.ramFq12.IncFrame(1)
}

func (va *VerificationAccount) leaveSubComputation() {
	va.ramFq2.DecFrame(3)
	va.ramFq12.DecFrame(1)
}

func (va *VerificationAccount) writeCoeffs(coeffs *tower.Coefficients) {
	va.ramFq2.Write(0, &coeffs.C0)
	va.ramFq2.Write(1, &coeffs.C1)
	va.ramFq2.Write(2, &coeffs.C2)
}

// runCombinedEll dispatches one round of the line evaluation against
// the current coefficient triple. bindIndex is nil when the result must
// be discarded; otherwise the folded f is bound on the final round and
// the coefficient cursor advances.
func (va *VerificationAccount) runCombinedEll(round int, a, preparedInputs, c *tower.G1Affine, coeffIndex int, bindIndex *int) {
	c0 := va.ramFq2.Read(0)
	c1 := va.ramFq2.Read(1)
	c2 := va.ramFq2.Read(2)
	f := va.ramFq12.Read(0)

	va.enterSubComputation()
	v, ok := va.combinedEll(round, a, preparedInputs, c, &c0, &c1, &c2, coeffIndex, &f)
	va.leaveSubComputation()

	if ok && bindIndex != nil {
		va.ramFq12.Write(0, &v)
		*bindIndex++
	}
}

// doublingStep doubles r and produces line coefficients, split over two
// rounds with the intermediate products parked in Fq2 RAM.
func (va *VerificationAccount) doublingStep(round int, r *tower.G2HomProjective) (tower.Coefficients, bool) {
	ram := va.ramFq2
	switch round {
	case 0:
		var a, bb, cc, e, f, g, h, t, eSquare tower.Fq2
		a.Mul(&r.X, &r.Y)
		a.MulByElement(&a, &tower.TwoInv)
		bb.Square(&r.Y)
		cc.Square(&r.Z)
		e.Double(&cc).Add(&e, &cc).Mul(&e, &tower.CoeffB)
		f.Double(&e).Add(&f, &e)
		g.Add(&bb, &f)
		g.MulByElement(&g, &tower.TwoInv)
		h.Add(&r.Y, &r.Z).Square(&h)
		t.Add(&bb, &cc)
		h.Sub(&h, &t)
		eSquare.Square(&e)

		ram.Write(0, &a)
		ram.Write(1, &bb)
		ram.Write(2, &e)
		ram.Write(3, &f)
		ram.Write(4, &g)
		ram.Write(5, &h)
		ram.Write(6, &eSquare)

	case 1:
		a := ram.Read(0)
		bb := ram.Read(1)
		e := ram.Read(2)
		f := ram.Read(3)
		g := ram.Read(4)
		h := ram.Read(5)
		eSquare := ram.Read(6)

		var i, j, t tower.Fq2
		i.Sub(&e, &bb)
		j.Square(&r.X)

		r.X.Sub(&bb, &f).Mul(&r.X, &a)
		t.Double(&eSquare).Add(&t, &eSquare)
		r.Y.Square(&g).Sub(&r.Y, &t)
		r.Z.Mul(&bb, &h)

		var out tower.Coefficients
		out.C0.Neg(&h)
		out.C1.Double(&j).Add(&out.C1, &j)
		out.C2 = i
		return out, true
	}
	return tower.Coefficients{}, false
}

// additionStep mixed-adds q into r, split over two rounds.
func (va *VerificationAccount) additionStep(round int, r *tower.G2HomProjective, q *tower.G2Affine) (tower.Coefficients, bool) {
	ram := va.ramFq2
	switch round {
	case 0:
		var theta, lambda, cc, d, e, f, g tower.Fq2
		theta.Mul(&q.Y, &r.Z)
		theta.Sub(&r.Y, &theta)
		lambda.Mul(&q.X, &r.Z)
		lambda.Sub(&r.X, &lambda)
		cc.Square(&theta)
		d.Square(&lambda)
		e.Mul(&lambda, &d)
		f.Mul(&r.Z, &cc)
		g.Mul(&r.X, &d)

		ram.Write(0, &theta)
		ram.Write(1, &lambda)
		ram.Write(2, &e)
		ram.Write(3, &f)
		ram.Write(4, &g)

	case 1:
		theta := ram.Read(0)
		lambda := ram.Read(1)
		e := ram.Read(2)
		f := ram.Read(3)
		g := ram.Read(4)

		var h, t tower.Fq2
		h.Add(&e, &f).Sub(&h, t.Double(&g))

		var rx, ry, rz, j tower.Fq2
		rx.Mul(&lambda, &h)
		ry.Sub(&g, &h).Mul(&ry, &theta)
		t.Mul(&e, &r.Y)
		ry.Sub(&ry, &t)
		rz.Mul(&r.Z, &e)
		j.Mul(&theta, &q.X)
		t.Mul(&lambda, &q.Y)
		j.Sub(&j, &t)

		r.X, r.Y, r.Z = rx, ry, rz

		var out tower.Coefficients
		out.C0 = lambda
		out.C1.Neg(&theta)
		out.C2 = j
		return out, true
	}
	return tower.Coefficients{}, false
}

// mulByCharacteristics maps a G2 point through the p-power Frobenius of
// the twist, one coordinate per round.
func (va *VerificationAccount) mulByCharacteristics(round int, p *tower.G2Affine) (tower.G2Affine, bool) {
	ram := va.ramFq2
	switch round {
	case 0:
		var x tower.Fq2
		x.Conjugate(&p.X).Mul(&x, &tower.TwistMulByQX)
		ram.Write(0, &x)

	case 1:
		var out tower.G2Affine
		out.X = ram.Read(0)
		out.Y.Conjugate(&p.Y).Mul(&out.Y, &tower.TwistMulByQY)
		out.Infinity = p.Infinity
		return out, true
	}
	return tower.G2Affine{}, false
}

// mulBy034 multiplies f by the sparse Fq12 element
// c0 + (d0 + d1 v) w, one Karatsuba limb per round.
func (va *VerificationAccount) mulBy034(round int, c0, d0, d1 *tower.Fq2, f *tower.Fq12) (tower.Fq12, bool) {
	ram := va.ramFq6
	switch round {
	case 0:
		var a tower.Fq6
		a.B0.Mul(&f.C0.B0, c0)
		a.B1.Mul(&f.C0.B1, c0)
		a.B2.Mul(&f.C0.B2, c0)
		ram.Write(0, &a)

	case 1:
		var b tower.Fq6
		b.MulBy01(&f.C1, d0, d1)
		ram.Write(1, &b)

	case 2:
		a := ram.Read(0)
		b := ram.Read(1)

		var sum tower.Fq6
		sum.Add(&f.C0, &f.C1)
		var c0d0 tower.Fq2
		c0d0.Add(c0, d0)
		var e tower.Fq6
		e.MulBy01(&sum, &c0d0, d1)

		var out tower.Fq12
		out.C0.MulByNonResidue(&b).Add(&out.C0, &a)
		var ab tower.Fq6
		ab.Add(&a, &b)
		out.C1.Sub(&e, &ab)
		return out, true
	}
	return tower.Fq12{}, false
}

// combinedEll evaluates the three line functions (proof a, prepared
// inputs, proof c) against the current coefficient triple and the
// pre-baked gamma and delta streams, folding each into f.
func (va *VerificationAccount) combinedEll(
	round int,
	a, preparedInputs, c *tower.G1Affine,
	c0, c1, c2 *tower.Fq2,
	coeffIndex int,
	f *tower.Fq12,
) (tower.Fq12, bool) {
	ram := va.ramFq2
	switch {
	case round == 0:
		va.ramFq12.Write(0, f)

		var a0, a1 tower.Fq2
		a0.MulByElement(c0, &a.Y)
		a1.MulByElement(c1, &a.X)
		ram.Write(0, &a0)
		ram.Write(1, &a1)

	case round < 1+mulBy034Rounds:
		if !a.IsZero() {
			a0 := ram.Read(0)
			a1 := ram.Read(1)
			r := va.ramFq12.Read(0)
			v, ok := va.mulBy034(round-1, &a0, &a1, c2, &r)
			if ok {
				va.ramFq12.Write(0, &v)
			}
		}

	case round == 1+mulBy034Rounds:
		g0 := va.vk.GammaNegPC(coeffIndex, 0)
		g1 := va.vk.GammaNegPC(coeffIndex, 1)
		var b0, b1 tower.Fq2
		b0.MulByElement(&g0, &preparedInputs.Y)
		b1.MulByElement(&g1, &preparedInputs.X)
		ram.Write(0, &b0)
		ram.Write(1, &b1)

	case round < 2+2*mulBy034Rounds:
		if !preparedInputs.IsZero() {
			b0 := ram.Read(0)
			b1 := ram.Read(1)
			g2 := va.vk.GammaNegPC(coeffIndex, 2)
			r := va.ramFq12.Read(0)
			v, ok := va.mulBy034(round-2-mulBy034Rounds, &b0, &b1, &g2, &r)
			if ok {
				va.ramFq12.Write(0, &v)
			}
		}

	case round == 2+2*mulBy034Rounds:
		d0 := va.vk.DeltaNegPC(coeffIndex, 0)
		d1 := va.vk.DeltaNegPC(coeffIndex, 1)
		var e0, e1 tower.Fq2
		e0.MulByElement(&d0, &c.Y)
		e1.MulByElement(&d1, &c.X)
		ram.Write(0, &e0)
		ram.Write(1, &e1)

	case round < 3+3*mulBy034Rounds:
		if !c.IsZero() {
			e0 := ram.Read(0)
			e1 := ram.Read(1)
			d2 := va.vk.DeltaNegPC(coeffIndex, 2)
			r := va.ramFq12.Read(0)
			v, ok := va.mulBy034(round-3-2*mulBy034Rounds, &e0, &e1, &d2, &r)
			if ok {
				va.ramFq12.Write(0, &v)
			}
		}

	case round == 3+3*mulBy034Rounds:
		return va.ramFq12.Read(0), true
	}
	return tower.Fq12{}, false
}
