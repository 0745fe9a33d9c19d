package tower

// Fq6 is a degree-three extension of Fq2 with v^3 = 9+u.
type Fq6 struct {
	B0, B1, B2 Fq2
}

func (z *Fq6) SetZero() *Fq6 {
	z.B0.SetZero()
	z.B1.SetZero()
	z.B2.SetZero()
	return z
}

func (z *Fq6) SetOne() *Fq6 {
	z.B0.SetOne()
	z.B1.SetZero()
	z.B2.SetZero()
	return z
}

func (z *Fq6) Set(x *Fq6) *Fq6 {
	*z = *x
	return z
}

func (z *Fq6) IsZero() bool {
	return z.B0.IsZero() && z.B1.IsZero() && z.B2.IsZero()
}

func (z *Fq6) Equal(x *Fq6) bool {
	return z.B0.Equal(&x.B0) && z.B1.Equal(&x.B1) && z.B2.Equal(&x.B2)
}

func (z *Fq6) Add(x, y *Fq6) *Fq6 {
	z.B0.Add(&x.B0, &y.B0)
	z.B1.Add(&x.B1, &y.B1)
	z.B2.Add(&x.B2, &y.B2)
	return z
}

func (z *Fq6) Sub(x, y *Fq6) *Fq6 {
	z.B0.Sub(&x.B0, &y.B0)
	z.B1.Sub(&x.B1, &y.B1)
	z.B2.Sub(&x.B2, &y.B2)
	return z
}

func (z *Fq6) Double(x *Fq6) *Fq6 {
	z.B0.Double(&x.B0)
	z.B1.Double(&x.B1)
	z.B2.Double(&x.B2)
	return z
}

func (z *Fq6) Neg(x *Fq6) *Fq6 {
	z.B0.Neg(&x.B0)
	z.B1.Neg(&x.B1)
	z.B2.Neg(&x.B2)
	return z
}

// Mul multiplies with the Karatsuba interpolation of eprint 2010/354,
// Algorithm 13.
func (z *Fq6) Mul(x, y *Fq6) *Fq6 {
	var t0, t1, t2, c0, c1, c2, tmp Fq2
	t0.Mul(&x.B0, &y.B0)
	t1.Mul(&x.B1, &y.B1)
	t2.Mul(&x.B2, &y.B2)

	c0.Add(&x.B1, &x.B2)
	tmp.Add(&y.B1, &y.B2)
	c0.Mul(&c0, &tmp).Sub(&c0, &t1).Sub(&c0, &t2).MulByNonResidue(&c0).Add(&c0, &t0)

	c1.Add(&x.B0, &x.B1)
	tmp.Add(&y.B0, &y.B1)
	c1.Mul(&c1, &tmp).Sub(&c1, &t0).Sub(&c1, &t1)
	tmp.MulByNonResidue(&t2)
	c1.Add(&c1, &tmp)

	tmp.Add(&x.B0, &x.B2)
	c2.Add(&y.B0, &y.B2)
	c2.Mul(&c2, &tmp).Sub(&c2, &t0).Sub(&c2, &t2).Add(&c2, &t1)

	z.B0 = c0
	z.B1 = c1
	z.B2 = c2
	return z
}

func (z *Fq6) Square(x *Fq6) *Fq6 {
	return z.Mul(x, x)
}

// MulByNonResidue multiplies by v: (c0,c1,c2) -> ((9+u)c2, c0, c1).
func (z *Fq6) MulByNonResidue(x *Fq6) *Fq6 {
	z.B0, z.B1, z.B2 = x.B2, x.B0, x.B1
	z.B0.MulByNonResidue(&z.B0)
	return z
}

// MulBy01 multiplies by the sparse element c0 + c1 v.
func (z *Fq6) MulBy01(x *Fq6, c0, c1 *Fq2) *Fq6 {
	var v0, v1, t0, t1, t2, s Fq2
	v0.Mul(&x.B0, c0)
	v1.Mul(&x.B1, c1)

	t0.Add(&x.B1, &x.B2).Mul(&t0, c1).Sub(&t0, &v1).MulByNonResidue(&t0).Add(&t0, &v0)
	s.Add(c0, c1)
	t1.Add(&x.B0, &x.B1).Mul(&t1, &s).Sub(&t1, &v0).Sub(&t1, &v1)
	t2.Add(&x.B0, &x.B2).Mul(&t2, c0).Sub(&t2, &v0).Add(&t2, &v1)

	z.B0 = t0
	z.B1 = t1
	z.B2 = t2
	return z
}

// Inverse computes 1/x per Guide to Pairing-based Cryptography,
// Algorithm 5.23.
func (z *Fq6) Inverse(x *Fq6) *Fq6 {
	var t0, t1, t2, t3, t4, t5, c0, c1, c2, t6 Fq2
	t0.Square(&x.B0)
	t1.Square(&x.B1)
	t2.Square(&x.B2)
	t3.Mul(&x.B0, &x.B1)
	t4.Mul(&x.B0, &x.B2)
	t5.Mul(&x.B1, &x.B2)

	c0.MulByNonResidue(&t5)
	c0.Sub(&t0, &c0)
	c1.MulByNonResidue(&t2)
	c1.Sub(&c1, &t3)
	c2.Sub(&t1, &t4)

	t6.Mul(&x.B0, &c0)
	var tmp Fq2
	tmp.Mul(&x.B2, &c1)
	t6.Add(&t6, tmp.MulByNonResidue(&tmp))
	tmp.Mul(&x.B1, &c2)
	t6.Add(&t6, tmp.MulByNonResidue(&tmp))
	t6.Inverse(&t6)

	z.B0.Mul(&c0, &t6)
	z.B1.Mul(&c1, &t6)
	z.B2.Mul(&c2, &t6)
	return z
}
