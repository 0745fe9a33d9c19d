package verifier

import (
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"veil/veil-verifier/tower"
)

// ateLoopCount is the Bn254 6x+2 loop, reversed with the leading entry
// removed; 2 encodes -1.
var ateLoopCount = [64]int8{
	1, 0, 1, 0, 0, 2, 0, 1, 1, 0, 0, 0, 2, 0, 0, 1,
	1, 0, 0, 2, 0, 0, 0, 0, 0, 1, 0, 0, 2, 0, 0, 1,
	1, 1, 0, 0, 0, 0, 2, 0, 1, 0, 0, 2, 0, 1, 1, 0,
	0, 1, 0, 0, 2, 1, 0, 0, 2, 0, 1, 0, 1, 0, 0, 0,
}

// Precomputes provides the per-public-input multiples
// byte * 256^byteIndex * gamma_abc[input+1]. The zero byte is never
// queried.
type Precomputes interface {
	Point(input, byteIndex int, b byte) tower.G1Affine
}

// VerifyingKey is a prepared Groth16 verifying key: the pairing of
// alpha and beta, the gamma_abc bases, the line coefficient streams of
// -gamma and -delta, and the precomputed public-input tables.
type VerifyingKey struct {
	PublicInputsCount int

	alphaBeta    tower.Fq12
	gammaABCBase tower.G1Projective
	gammaABC     []tower.G1Affine

	gammaNegPC []tower.Coefficients
	deltaNegPC []tower.Coefficients

	tables Precomputes
}

// NewVerifyingKey prepares a verifying key from its curve points.
// gammaABC must hold PublicInputsCount+1 points.
func NewVerifyingKey(alpha bn254.G1Affine, beta, gamma, delta bn254.G2Affine, gammaABC []bn254.G1Affine) (*VerifyingKey, error) {
	if len(gammaABC) < 2 {
		return nil, fmt.Errorf("verifying key needs at least one public input, got %d points", len(gammaABC))
	}

	alphaBeta, err := bn254.Pair([]bn254.G1Affine{alpha}, []bn254.G2Affine{beta})
	if err != nil {
		return nil, fmt.Errorf("pairing alpha and beta: %w", err)
	}

	vk := &VerifyingKey{PublicInputsCount: len(gammaABC) - 1}
	vk.alphaBeta.FromGT(&alphaBeta)

	var base tower.G1Affine
	base.FromCurve(&gammaABC[0])
	vk.gammaABCBase.FromAffine(&base)

	vk.gammaABC = make([]tower.G1Affine, vk.PublicInputsCount)
	for i := range vk.gammaABC {
		vk.gammaABC[i].FromCurve(&gammaABC[i+1])
	}

	var negGamma, negDelta bn254.G2Affine
	negGamma.Neg(&gamma)
	negDelta.Neg(&delta)
	var g, d tower.G2Affine
	g.FromCurve(&negGamma)
	d.FromCurve(&negDelta)
	vk.gammaNegPC = prepareG2(&g)
	vk.deltaNegPC = prepareG2(&d)

	vk.tables = newVirtualPrecomputes(vk.gammaABC)
	return vk, nil
}

// ReadVerifyingKey loads a gnark-serialized Groth16 verifying key and
// prepares it.
func ReadVerifyingKey(path string) (*VerifyingKey, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var vk groth16_bn254.VerifyingKey
	if _, err := vk.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("reading verifying key %s: %w", path, err)
	}
	return FromGnark(&vk)
}

// FromGnark prepares a verifying key from gnark's curve-specific
// Groth16 key.
func FromGnark(vk *groth16_bn254.VerifyingKey) (*VerifyingKey, error) {
	return NewVerifyingKey(vk.G1.Alpha, vk.G2.Beta, vk.G2.Gamma, vk.G2.Delta, vk.G1.K)
}

// AlphaBeta is the terminal comparison value e(alpha, beta).
func (vk *VerifyingKey) AlphaBeta() tower.Fq12 {
	return vk.alphaBeta
}

// GammaABCBase is gamma_abc[0], the constant term of the public-input
// combination.
func (vk *VerifyingKey) GammaABCBase() tower.G1Projective {
	return vk.gammaABCBase
}

// GammaABC returns byte b times 256^byteIndex times gamma_abc[input+1]
// from the precomputed tables.
func (vk *VerifyingKey) GammaABC(input, byteIndex int, b byte) tower.G1Affine {
	return vk.tables.Point(input, byteIndex, b)
}

// GammaABCPoints returns the gamma_abc points the precomputed tables
// are built over, one per public input.
func (vk *VerifyingKey) GammaABCPoints() []tower.G1Affine {
	out := make([]tower.G1Affine, len(vk.gammaABC))
	copy(out, vk.gammaABC)
	return out
}

// UsePrecomputes swaps the in-memory tables for an externally built
// source, typically a persisted precomputes account.
func (vk *VerifyingKey) UsePrecomputes(p Precomputes) {
	vk.tables = p
}

func (vk *VerifyingKey) GammaNegPC(index, part int) tower.Fq2 {
	return coeffPart(&vk.gammaNegPC[index], part)
}

func (vk *VerifyingKey) DeltaNegPC(index, part int) tower.Fq2 {
	return coeffPart(&vk.deltaNegPC[index], part)
}

func coeffPart(c *tower.Coefficients, part int) tower.Fq2 {
	switch part {
	case 0:
		return c.C0
	case 1:
		return c.C1
	case 2:
		return c.C2
	}
	panic("coefficient part out of range")
}

// prepareG2 generates the line coefficient stream a fixed G2 point
// contributes to the combined Miller loop, in the order the loop
// consumes it.
func prepareG2(q *tower.G2Affine) []tower.Coefficients {
	var coeffs []tower.Coefficients
	r := tower.G2HomProjective{X: q.X, Y: q.Y}
	r.Z.SetOne()

	var negQ tower.G2Affine
	negQ.Neg(q)

	for _, bit := range ateLoopCount {
		coeffs = append(coeffs, r.DoublingStep())
		switch bit {
		case 1:
			coeffs = append(coeffs, r.AdditionStep(q))
		case 2:
			coeffs = append(coeffs, r.AdditionStep(&negQ))
		}
	}

	var q1, q2 tower.G2Affine
	q1.MulByChar(q)
	q2.MulByChar(&q1)
	q2.Y.Neg(&q2.Y)

	coeffs = append(coeffs, r.AdditionStep(&q1))
	coeffs = append(coeffs, r.AdditionStep(&q2))
	return coeffs
}
