package tower

// G2Affine is a point on the twist y^2 = x^3 + 3/(9+u) over Fq2.
type G2Affine struct {
	X, Y     Fq2
	Infinity bool
}

func (p *G2Affine) IsZero() bool {
	return p.Infinity
}

func (p *G2Affine) Set(q *G2Affine) *G2Affine {
	*p = *q
	return p
}

func (p *G2Affine) Neg(q *G2Affine) *G2Affine {
	p.X = q.X
	p.Y.Neg(&q.Y)
	p.Infinity = q.Infinity
	return p
}

// MulByChar maps the point through the p-power Frobenius of the twist.
func (p *G2Affine) MulByChar(q *G2Affine) *G2Affine {
	p.X.Conjugate(&q.X).Mul(&p.X, &TwistMulByQX)
	p.Y.Conjugate(&q.Y).Mul(&p.Y, &TwistMulByQY)
	p.Infinity = q.Infinity
	return p
}

// G2HomProjective is the homogeneous projective representation the
// Miller loop line computation advances: (X/Z, Y/Z).
type G2HomProjective struct {
	X, Y, Z Fq2
}

// Coefficients is one line-evaluation triple produced by a doubling or
// addition step.
type Coefficients struct {
	C0, C1, C2 Fq2
}

// DoublingStep doubles r and returns the line coefficients
// (formulas 2009/615, as used for ate pairings on Bn curves).
func (r *G2HomProjective) DoublingStep() Coefficients {
	var a, b, c, e, f, g, h, t Fq2

	a.Mul(&r.X, &r.Y)
	a.MulByElement(&a, &TwoInv)
	b.Square(&r.Y)
	c.Square(&r.Z)
	e.Double(&c).Add(&e, &c).Mul(&e, &CoeffB)
	f.Double(&e).Add(&f, &e)
	g.Add(&b, &f)
	g.MulByElement(&g, &TwoInv)
	h.Add(&r.Y, &r.Z).Square(&h)
	t.Add(&b, &c)
	h.Sub(&h, &t)

	var i, j, eSquare Fq2
	i.Sub(&e, &b)
	j.Square(&r.X)
	eSquare.Square(&e)

	r.X.Sub(&b, &f).Mul(&r.X, &a)
	t.Double(&eSquare).Add(&t, &eSquare)
	r.Y.Square(&g).Sub(&r.Y, &t)
	r.Z.Mul(&b, &h)

	var out Coefficients
	out.C0.Neg(&h)
	out.C1.Double(&j).Add(&out.C1, &j)
	out.C2 = i
	return out
}

// AdditionStep mixed-adds q and returns the line coefficients.
func (r *G2HomProjective) AdditionStep(q *G2Affine) Coefficients {
	var theta, lambda, c, d, e, f, g, t Fq2

	theta.Mul(&q.Y, &r.Z)
	theta.Sub(&r.Y, &theta)
	lambda.Mul(&q.X, &r.Z)
	lambda.Sub(&r.X, &lambda)
	c.Square(&theta)
	d.Square(&lambda)
	e.Mul(&lambda, &d)
	f.Mul(&r.Z, &c)
	g.Mul(&r.X, &d)

	var h Fq2
	h.Add(&e, &f).Sub(&h, t.Double(&g))

	var rx, ry, rz, j Fq2
	rx.Mul(&lambda, &h)
	ry.Sub(&g, &h).Mul(&ry, &theta)
	t.Mul(&e, &r.Y)
	ry.Sub(&ry, &t)
	rz.Mul(&r.Z, &e)
	j.Mul(&theta, &q.X)
	t.Mul(&lambda, &q.Y)
	j.Sub(&j, &t)

	r.X, r.Y, r.Z = rx, ry, rz

	var out Coefficients
	out.C0 = lambda
	out.C1.Neg(&theta)
	out.C2 = j
	return out
}
