package tower

// Fq12 is a quadratic extension of Fq6 with w^2 = v. The pairing target
// group lives here.
type Fq12 struct {
	C0, C1 Fq6
}

func (z *Fq12) SetZero() *Fq12 {
	z.C0.SetZero()
	z.C1.SetZero()
	return z
}

func (z *Fq12) SetOne() *Fq12 {
	z.C0.SetOne()
	z.C1.SetZero()
	return z
}

func (z *Fq12) Set(x *Fq12) *Fq12 {
	*z = *x
	return z
}

func (z *Fq12) IsOne() bool {
	var one Fq12
	one.SetOne()
	return z.Equal(&one)
}

func (z *Fq12) Equal(x *Fq12) bool {
	return z.C0.Equal(&x.C0) && z.C1.Equal(&x.C1)
}

func (z *Fq12) Conjugate(x *Fq12) *Fq12 {
	z.C0 = x.C0
	z.C1.Neg(&x.C1)
	return z
}

// Mul multiplies with Karatsuba over w^2 = v (eprint 2010/354,
// Algorithm 20).
func (z *Fq12) Mul(x, y *Fq12) *Fq12 {
	var v0, v1, c1, t Fq6
	v0.Mul(&x.C0, &y.C0)
	v1.Mul(&x.C1, &y.C1)

	c1.Add(&x.C0, &x.C1)
	t.Add(&y.C0, &y.C1)
	c1.Mul(&c1, &t).Sub(&c1, &v0).Sub(&c1, &v1)

	t.MulByNonResidue(&v1)
	z.C0.Add(&v0, &t)
	z.C1 = c1
	return z
}

func (z *Fq12) Square(x *Fq12) *Fq12 {
	// complex squaring over the quadratic extension
	var v0, t0, t1 Fq6
	v0.Mul(&x.C0, &x.C1)
	t0.MulByNonResidue(&x.C1)
	t0.Add(&x.C0, &t0)
	t1.Add(&x.C0, &x.C1)
	t0.Mul(&t0, &t1)
	t1.MulByNonResidue(&v0)
	t0.Sub(&t0, &v0).Sub(&t0, &t1)
	z.C0 = t0
	z.C1.Double(&v0)
	return z
}

// CyclotomicSquare squares an element of the cyclotomic subgroup
// (Granger-Scott, eprint 2009/565).
func (z *Fq12) CyclotomicSquare(x *Fq12) *Fq12 {
	var t [9]Fq2

	t[0].Square(&x.C1.B1)
	t[1].Square(&x.C0.B0)
	t[6].Add(&x.C1.B1, &x.C0.B0).Square(&t[6]).Sub(&t[6], &t[0]).Sub(&t[6], &t[1])
	t[2].Square(&x.C0.B2)
	t[3].Square(&x.C1.B0)
	t[7].Add(&x.C0.B2, &x.C1.B0).Square(&t[7]).Sub(&t[7], &t[2]).Sub(&t[7], &t[3])
	t[4].Square(&x.C1.B2)
	t[5].Square(&x.C0.B1)
	t[8].Add(&x.C1.B2, &x.C0.B1).Square(&t[8]).Sub(&t[8], &t[4]).Sub(&t[8], &t[5]).MulByNonResidue(&t[8])

	t[0].MulByNonResidue(&t[0]).Add(&t[0], &t[1])
	t[2].MulByNonResidue(&t[2]).Add(&t[2], &t[3])
	t[4].MulByNonResidue(&t[4]).Add(&t[4], &t[5])

	z.C0.B0.Sub(&t[0], &x.C0.B0).Double(&z.C0.B0).Add(&z.C0.B0, &t[0])
	z.C0.B1.Sub(&t[2], &x.C0.B1).Double(&z.C0.B1).Add(&z.C0.B1, &t[2])
	z.C0.B2.Sub(&t[4], &x.C0.B2).Double(&z.C0.B2).Add(&z.C0.B2, &t[4])
	z.C1.B0.Add(&t[8], &x.C1.B0).Double(&z.C1.B0).Add(&z.C1.B0, &t[8])
	z.C1.B1.Add(&t[6], &x.C1.B1).Double(&z.C1.B1).Add(&z.C1.B1, &t[6])
	z.C1.B2.Add(&t[7], &x.C1.B2).Double(&z.C1.B2).Add(&z.C1.B2, &t[7])
	return z
}

// Inverse computes 1/x per Guide to Pairing-based Cryptography,
// Algorithm 5.19.
func (z *Fq12) Inverse(x *Fq12) *Fq12 {
	var v0, v1, w Fq6
	v1.Square(&x.C1)
	v0.Square(&x.C0)
	w.MulByNonResidue(&v1)
	v0.Sub(&v0, &w)
	w.Inverse(&v0)

	z.C0.Mul(&x.C0, &w)
	z.C1.Mul(&x.C1, &w).Neg(&z.C1)
	return z
}

// Frobenius raises x to the p^power for power in 1..3.
func (z *Fq12) Frobenius(x *Fq12, power int) *Fq12 {
	z.Set(x)
	if power%2 == 1 {
		z.C0.B0.Conjugate(&z.C0.B0)
		z.C0.B1.Conjugate(&z.C0.B1)
		z.C0.B2.Conjugate(&z.C0.B2)
		z.C1.B0.Conjugate(&z.C1.B0)
		z.C1.B1.Conjugate(&z.C1.B1)
		z.C1.B2.Conjugate(&z.C1.B2)
	}
	z.C0.B1.Mul(&z.C0.B1, &frob6C1[power])
	z.C0.B2.Mul(&z.C0.B2, &frob6C2[power])
	z.C1.B1.Mul(&z.C1.B1, &frob6C1[power])
	z.C1.B2.Mul(&z.C1.B2, &frob6C2[power])

	z.C1.B0.Mul(&z.C1.B0, &frob12C1[power])
	z.C1.B1.Mul(&z.C1.B1, &frob12C1[power])
	z.C1.B2.Mul(&z.C1.B2, &frob12C1[power])
	return z
}
