package tower

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// G1Affine is a point on the base curve y^2 = x^3 + 3, with an explicit
// infinity flag so the identity survives fixed-size serialization.
type G1Affine struct {
	X, Y     fp.Element
	Infinity bool
}

func (p *G1Affine) IsZero() bool {
	return p.Infinity
}

func (p *G1Affine) Set(q *G1Affine) *G1Affine {
	*p = *q
	return p
}

func (p *G1Affine) Neg(q *G1Affine) *G1Affine {
	p.X = q.X
	p.Y.Neg(&q.Y)
	p.Infinity = q.Infinity
	return p
}

// G1Projective is a Jacobian point: (X/Z^2, Y/Z^3).
type G1Projective struct {
	X, Y, Z fp.Element
}

func (p *G1Projective) SetZero() *G1Projective {
	p.X.SetOne()
	p.Y.SetOne()
	p.Z.SetZero()
	return p
}

func (p *G1Projective) IsZero() bool {
	return p.Z.IsZero()
}

func (p *G1Projective) Set(q *G1Projective) *G1Projective {
	*p = *q
	return p
}

func (p *G1Projective) FromAffine(a *G1Affine) *G1Projective {
	if a.Infinity {
		return p.SetZero()
	}
	p.X = a.X
	p.Y = a.Y
	p.Z.SetOne()
	return p
}

// AddMixed adds an affine point (madd-2007-bl).
func (p *G1Projective) AddMixed(a *G1Affine) *G1Projective {
	if a.Infinity {
		return p
	}
	if p.IsZero() {
		return p.FromAffine(a)
	}

	var z1z1, u2, s2 fp.Element
	z1z1.Square(&p.Z)
	u2.Mul(&a.X, &z1z1)
	s2.Mul(&a.Y, &p.Z).Mul(&s2, &z1z1)

	if u2.Equal(&p.X) && s2.Equal(&p.Y) {
		return p.Double()
	}

	var h, hh, i, j, r, v, t fp.Element
	h.Sub(&u2, &p.X)
	hh.Square(&h)
	i.Double(&hh).Double(&i)
	j.Mul(&h, &i)
	r.Sub(&s2, &p.Y).Double(&r)
	v.Mul(&p.X, &i)

	var x3, y3, z3 fp.Element
	x3.Square(&r).Sub(&x3, &j)
	t.Double(&v)
	x3.Sub(&x3, &t)

	y3.Sub(&v, &x3).Mul(&y3, &r)
	t.Mul(&p.Y, &j).Double(&t)
	y3.Sub(&y3, &t)

	z3.Add(&p.Z, &h).Square(&z3).Sub(&z3, &z1z1).Sub(&z3, &hh)

	p.X, p.Y, p.Z = x3, y3, z3
	return p
}

// AddAssign adds another Jacobian point (add-2007-bl).
func (p *G1Projective) AddAssign(q *G1Projective) *G1Projective {
	if q.IsZero() {
		return p
	}
	if p.IsZero() {
		return p.Set(q)
	}

	var z1z1, z2z2, u1, u2, s1, s2 fp.Element
	z1z1.Square(&p.Z)
	z2z2.Square(&q.Z)
	u1.Mul(&p.X, &z2z2)
	u2.Mul(&q.X, &z1z1)
	s1.Mul(&p.Y, &q.Z).Mul(&s1, &z2z2)
	s2.Mul(&q.Y, &p.Z).Mul(&s2, &z1z1)

	if u1.Equal(&u2) && s1.Equal(&s2) {
		return p.Double()
	}

	var h, i, j, r, v, t fp.Element
	h.Sub(&u2, &u1)
	i.Double(&h).Square(&i)
	j.Mul(&h, &i)
	r.Sub(&s2, &s1).Double(&r)
	v.Mul(&u1, &i)

	var x3, y3, z3 fp.Element
	x3.Square(&r).Sub(&x3, &j)
	t.Double(&v)
	x3.Sub(&x3, &t)

	y3.Sub(&v, &x3).Mul(&y3, &r)
	t.Mul(&s1, &j).Double(&t)
	y3.Sub(&y3, &t)

	z3.Add(&p.Z, &q.Z).Square(&z3).Sub(&z3, &z1z1).Sub(&z3, &z2z2).Mul(&z3, &h)

	p.X, p.Y, p.Z = x3, y3, z3
	return p
}

// Double doubles in place (dbl-2007-bl).
func (p *G1Projective) Double() *G1Projective {
	if p.IsZero() {
		return p
	}

	var a, b, c, d, e, f, t fp.Element
	a.Square(&p.X)
	b.Square(&p.Y)
	c.Square(&b)
	d.Add(&p.X, &b).Square(&d).Sub(&d, &a).Sub(&d, &c).Double(&d)
	e.Double(&a).Add(&e, &a)
	f.Square(&e)

	var x3, y3, z3 fp.Element
	x3.Sub(&f, t.Double(&d))
	y3.Sub(&d, &x3).Mul(&y3, &e)
	t.Double(&c).Double(&t).Double(&t)
	y3.Sub(&y3, &t)
	z3.Mul(&p.Y, &p.Z).Double(&z3)

	p.X, p.Y, p.Z = x3, y3, z3
	return p
}

// ToAffine normalizes the point.
func (p *G1Projective) ToAffine() G1Affine {
	var out G1Affine
	if p.IsZero() {
		out.X.SetZero()
		out.Y.SetOne()
		out.Infinity = true
		return out
	}
	var zinv, zinv2 fp.Element
	zinv.Inverse(&p.Z)
	zinv2.Square(&zinv)
	out.X.Mul(&p.X, &zinv2)
	out.Y.Mul(&p.Y, &zinv2).Mul(&out.Y, &zinv)
	return out
}
