package tower

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// Fixed-size little-endian layouts. Field elements are stored as their
// four Montgomery limbs, least significant first; composite types
// concatenate coordinates in c0, c1, ... order; affine points carry a
// trailing infinity byte.
const (
	FqSize              = 32
	Fq2Size             = 2 * FqSize
	Fq6Size             = 3 * Fq2Size
	Fq12Size            = 2 * Fq6Size
	G1AffineSize        = 2*FqSize + 1
	G2AffineSize        = 2*Fq2Size + 1
	G2HomProjectiveSize = 3 * Fq2Size
	CoefficientsSize    = 3 * Fq2Size
)

func PutFq(b []byte, e *fp.Element) {
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(b[i*8:], e[i])
	}
}

func GetFq(b []byte, e *fp.Element) {
	for i := 0; i < 4; i++ {
		e[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
}

func (z *Fq2) PutBytes(b []byte) {
	PutFq(b, &z.A0)
	PutFq(b[FqSize:], &z.A1)
}

func (z *Fq2) SetBytes(b []byte) {
	GetFq(b, &z.A0)
	GetFq(b[FqSize:], &z.A1)
}

func (z *Fq6) PutBytes(b []byte) {
	z.B0.PutBytes(b)
	z.B1.PutBytes(b[Fq2Size:])
	z.B2.PutBytes(b[2*Fq2Size:])
}

func (z *Fq6) SetBytes(b []byte) {
	z.B0.SetBytes(b)
	z.B1.SetBytes(b[Fq2Size:])
	z.B2.SetBytes(b[2*Fq2Size:])
}

func (z *Fq12) PutBytes(b []byte) {
	z.C0.PutBytes(b)
	z.C1.PutBytes(b[Fq6Size:])
}

func (z *Fq12) SetBytes(b []byte) {
	z.C0.SetBytes(b)
	z.C1.SetBytes(b[Fq6Size:])
}

func (p *G1Affine) PutBytes(b []byte) {
	PutFq(b, &p.X)
	PutFq(b[FqSize:], &p.Y)
	b[2*FqSize] = 0
	if p.Infinity {
		b[2*FqSize] = 1
	}
}

func (p *G1Affine) SetBytes(b []byte) {
	GetFq(b, &p.X)
	GetFq(b[FqSize:], &p.Y)
	p.Infinity = b[2*FqSize] == 1
}

func (p *G2Affine) PutBytes(b []byte) {
	p.X.PutBytes(b)
	p.Y.PutBytes(b[Fq2Size:])
	b[2*Fq2Size] = 0
	if p.Infinity {
		b[2*Fq2Size] = 1
	}
}

func (p *G2Affine) SetBytes(b []byte) {
	p.X.SetBytes(b)
	p.Y.SetBytes(b[Fq2Size:])
	p.Infinity = b[2*Fq2Size] == 1
}

func (p *G2HomProjective) PutBytes(b []byte) {
	p.X.PutBytes(b)
	p.Y.PutBytes(b[Fq2Size:])
	p.Z.PutBytes(b[2*Fq2Size:])
}

func (p *G2HomProjective) SetBytes(b []byte) {
	p.X.SetBytes(b)
	p.Y.SetBytes(b[Fq2Size:])
	p.Z.SetBytes(b[2*Fq2Size:])
}

func (c *Coefficients) PutBytes(b []byte) {
	c.C0.PutBytes(b)
	c.C1.PutBytes(b[Fq2Size:])
	c.C2.PutBytes(b[2*Fq2Size:])
}

func (c *Coefficients) SetBytes(b []byte) {
	c.C0.SetBytes(b)
	c.C1.SetBytes(b[Fq2Size:])
	c.C2.SetBytes(b[2*Fq2Size:])
}
