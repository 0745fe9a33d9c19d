// Package tower implements the Bn254 extension-field tower
// Fq2 = Fq[u]/(u^2+1), Fq6 = Fq2[v]/(v^3-(9+u)), Fq12 = Fq6[w]/(w^2-v)
// on top of gnark-crypto's base field, together with the affine and
// projective curve point types the pairing computation works on.
package tower

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// Fq2 is a degree-two extension of Fq with u^2 = -1.
type Fq2 struct {
	A0, A1 fp.Element
}

func (z *Fq2) SetZero() *Fq2 {
	z.A0.SetZero()
	z.A1.SetZero()
	return z
}

func (z *Fq2) SetOne() *Fq2 {
	z.A0.SetOne()
	z.A1.SetZero()
	return z
}

func (z *Fq2) Set(x *Fq2) *Fq2 {
	*z = *x
	return z
}

// SetString sets z from the decimal representations of its two coordinates.
func (z *Fq2) SetString(a0, a1 string) *Fq2 {
	z.A0.SetString(a0)
	z.A1.SetString(a1)
	return z
}

func (z *Fq2) IsZero() bool {
	return z.A0.IsZero() && z.A1.IsZero()
}

func (z *Fq2) Equal(x *Fq2) bool {
	return z.A0.Equal(&x.A0) && z.A1.Equal(&x.A1)
}

func (z *Fq2) Add(x, y *Fq2) *Fq2 {
	z.A0.Add(&x.A0, &y.A0)
	z.A1.Add(&x.A1, &y.A1)
	return z
}

func (z *Fq2) Sub(x, y *Fq2) *Fq2 {
	z.A0.Sub(&x.A0, &y.A0)
	z.A1.Sub(&x.A1, &y.A1)
	return z
}

func (z *Fq2) Double(x *Fq2) *Fq2 {
	z.A0.Double(&x.A0)
	z.A1.Double(&x.A1)
	return z
}

func (z *Fq2) Neg(x *Fq2) *Fq2 {
	z.A0.Neg(&x.A0)
	z.A1.Neg(&x.A1)
	return z
}

func (z *Fq2) Conjugate(x *Fq2) *Fq2 {
	z.A0 = x.A0
	z.A1.Neg(&x.A1)
	return z
}

// Mul multiplies with the Karatsuba schoolbook over u^2 = -1.
func (z *Fq2) Mul(x, y *Fq2) *Fq2 {
	var t0, t1, s0, s1 fp.Element
	t0.Mul(&x.A0, &y.A0)
	t1.Mul(&x.A1, &y.A1)
	s0.Add(&x.A0, &x.A1)
	s1.Add(&y.A0, &y.A1)
	s0.Mul(&s0, &s1)
	s0.Sub(&s0, &t0).Sub(&s0, &t1)
	z.A0.Sub(&t0, &t1)
	z.A1 = s0
	return z
}

func (z *Fq2) Square(x *Fq2) *Fq2 {
	// (a0+a1)(a0-a1), 2 a0 a1
	var s, d, m fp.Element
	s.Add(&x.A0, &x.A1)
	d.Sub(&x.A0, &x.A1)
	m.Mul(&x.A0, &x.A1)
	z.A0.Mul(&s, &d)
	z.A1.Double(&m)
	return z
}

// MulByElement multiplies both coordinates by a base field element.
func (z *Fq2) MulByElement(x *Fq2, c *fp.Element) *Fq2 {
	z.A0.Mul(&x.A0, c)
	z.A1.Mul(&x.A1, c)
	return z
}

// MulByNonResidue multiplies by 9+u, the cubic non-residue the Fq6 tower
// is built over.
func (z *Fq2) MulByNonResidue(x *Fq2) *Fq2 {
	var nine, a0, a1 fp.Element
	nine.SetUint64(9)
	a0.Mul(&x.A0, &nine).Sub(&a0, &x.A1)
	a1.Mul(&x.A1, &nine).Add(&a1, &x.A0)
	z.A0 = a0
	z.A1 = a1
	return z
}

func (z *Fq2) Inverse(x *Fq2) *Fq2 {
	// 1/(a0 + a1 u) = (a0 - a1 u)/(a0^2 + a1^2)
	var t0, t1 fp.Element
	t0.Square(&x.A0)
	t1.Square(&x.A1)
	t0.Add(&t0, &t1)
	t0.Inverse(&t0)
	z.A0.Mul(&x.A0, &t0)
	t0.Neg(&t0)
	z.A1.Mul(&x.A1, &t0)
	return z
}

// Exp sets z to x^k. Only used at package init for the Frobenius and
// twist constants, so simple square-and-multiply is fine.
func (z *Fq2) Exp(x *Fq2, k *big.Int) *Fq2 {
	var res Fq2
	res.SetOne()
	b := k.Bytes()
	for i := 0; i < len(b); i++ {
		w := b[i]
		for j := 7; j >= 0; j-- {
			res.Square(&res)
			if (w>>j)&1 == 1 {
				res.Mul(&res, x)
			}
		}
	}
	return z.Set(&res)
}
