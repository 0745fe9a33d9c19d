package tower

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// Conversions to and from gnark-crypto's curve types. Used for point
// validation at proof setup and as the arithmetic reference in tests.

func (p *G1Affine) FromCurve(a *bn254.G1Affine) *G1Affine {
	p.X = a.X
	p.Y = a.Y
	p.Infinity = a.IsInfinity()
	return p
}

func (p G1Affine) ToCurve() bn254.G1Affine {
	var out bn254.G1Affine
	if p.Infinity {
		return out
	}
	out.X = p.X
	out.Y = p.Y
	return out
}

func (p *G2Affine) FromCurve(a *bn254.G2Affine) *G2Affine {
	p.X.A0 = a.X.A0
	p.X.A1 = a.X.A1
	p.Y.A0 = a.Y.A0
	p.Y.A1 = a.Y.A1
	p.Infinity = a.IsInfinity()
	return p
}

func (p G2Affine) ToCurve() bn254.G2Affine {
	var out bn254.G2Affine
	if p.Infinity {
		return out
	}
	out.X.A0 = p.X.A0
	out.X.A1 = p.X.A1
	out.Y.A0 = p.Y.A0
	out.Y.A1 = p.Y.A1
	return out
}

func (z *Fq12) FromGT(gt *bn254.GT) *Fq12 {
	z.C0.B0.A0 = gt.C0.B0.A0
	z.C0.B0.A1 = gt.C0.B0.A1
	z.C0.B1.A0 = gt.C0.B1.A0
	z.C0.B1.A1 = gt.C0.B1.A1
	z.C0.B2.A0 = gt.C0.B2.A0
	z.C0.B2.A1 = gt.C0.B2.A1
	z.C1.B0.A0 = gt.C1.B0.A0
	z.C1.B0.A1 = gt.C1.B0.A1
	z.C1.B1.A0 = gt.C1.B1.A0
	z.C1.B1.A1 = gt.C1.B1.A1
	z.C1.B2.A0 = gt.C1.B2.A0
	z.C1.B2.A1 = gt.C1.B2.A1
	return z
}

func (z Fq12) ToGT() bn254.GT {
	var gt bn254.GT
	gt.C0.B0.A0 = z.C0.B0.A0
	gt.C0.B0.A1 = z.C0.B0.A1
	gt.C0.B1.A0 = z.C0.B1.A0
	gt.C0.B1.A1 = z.C0.B1.A1
	gt.C0.B2.A0 = z.C0.B2.A0
	gt.C0.B2.A1 = z.C0.B2.A1
	gt.C1.B0.A0 = z.C1.B0.A0
	gt.C1.B0.A1 = z.C1.B0.A1
	gt.C1.B1.A0 = z.C1.B1.A0
	gt.C1.B1.A1 = z.C1.B1.A1
	gt.C1.B2.A0 = z.C1.B2.A0
	gt.C1.B2.A1 = z.C1.B2.A1
	return gt
}
