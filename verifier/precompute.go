package verifier

import (
	"fmt"

	"veil/veil-verifier/tower"
)

// Precomputed public-input tables. For every public input and every
// scalar byte position, the table holds byte * 256^byteIndex times the
// input's gamma_abc point for all 255 nonzero byte values, so preparing
// an input costs at most 32 mixed additions instead of a full scalar
// multiplication.
const (
	pointSize              = 2 * tower.FqSize
	precomputedValuesCount = 32 * 255

	// PrecomputedPublicInputSize is the table size of one public input.
	PrecomputedPublicInputSize = precomputedValuesCount * pointSize

	// PrecomputeInstructionsPerByte covers one byte position: the
	// doubling chain plus tuples, two quadruple batches, and the
	// 15 x 15 octuple grid.
	PrecomputeInstructionsPerByte = 1 + 2 + 15*15
)

// PrecomputeAccountSize is the table size of a key with the given
// public input count.
func PrecomputeAccountSize(publicInputs int) int {
	return publicInputs * PrecomputedPublicInputSize
}

// PrecomputeInstructions is the number of partial instructions needed
// to build the tables of a key with the given public input count.
func PrecomputeInstructions(publicInputs int) uint32 {
	return (1 + PrecomputeInstructionsPerByte*32) * uint32(publicInputs)
}

func memoryOffset(input, byteIndex, b int) int {
	if b <= 0 {
		panic("precompute byte out of range")
	}
	return input*PrecomputedPublicInputSize + (byteIndex*255+b-1)*pointSize
}

// precomputeTable is the raw byte layout shared by the buildable
// account and the in-memory tables: 64-byte x,y pairs addressed by
// (input, byteIndex, byte).
type precomputeTable struct {
	data []byte
}

func (t *precomputeTable) point(input, byteIndex, b int) tower.G1Affine {
	offset := memoryOffset(input, byteIndex, b)
	var p tower.G1Affine
	tower.GetFq(t.data[offset:], &p.X)
	tower.GetFq(t.data[offset+tower.FqSize:], &p.Y)
	return p
}

func (t *precomputeTable) setPoint(input, byteIndex, b int, p *tower.G1Affine) {
	offset := memoryOffset(input, byteIndex, b)
	tower.PutFq(t.data[offset:], &p.X)
	tower.PutFq(t.data[offset+tower.FqSize:], &p.Y)
}

// initPublicInput seeds the table with scalar 1.
func (t *precomputeTable) initPublicInput(gammaABC []tower.G1Affine, input int) {
	t.setPoint(input, 0, 1, &gammaABC[input])
}

// initByte runs the doubling chain for the powers of two, then the
// tuple sums. The eighth doubling of every position below 31 spills
// into the next position's seed slot.
func (t *precomputeTable) initByte(input, byteIndex int) {
	seed := t.point(input, byteIndex, 1)
	var acc tower.G1Projective
	acc.FromAffine(&seed)

	h := 8
	if byteIndex == 31 {
		h = 6
	}
	for i := 1; i <= h; i++ {
		acc.Double()
		p := acc.ToAffine()
		t.setPoint(input, byteIndex, 1<<i, &p)
	}

	for _, pair := range [4][2]int{{1, 2}, {4, 8}, {16, 32}, {64, 128}} {
		l := t.point(input, byteIndex, pair[0])
		r := t.point(input, byteIndex, pair[1])
		var sum tower.G1Projective
		sum.FromAffine(&l)
		sum.AddMixed(&r)
		s := sum.ToAffine()
		t.setPoint(input, byteIndex, pair[0]+pair[1], &s)
	}
}

// quadruples fills the 3 x 3 sums of the tuple values anchored at i,
// which must be 1 or 16.
func (t *precomputeTable) quadruples(input, byteIndex, i int) {
	for j := 1; j <= 3; j++ {
		l := t.point(input, byteIndex, i*j)
		for k := 1; k <= 3; k++ {
			r := t.point(input, byteIndex, i*4*k)
			var sum tower.G1Projective
			sum.FromAffine(&l)
			sum.AddMixed(&r)
			s := sum.ToAffine()
			t.setPoint(input, byteIndex, i*j+i*4*k, &s)
		}
	}
}

// octuples fills one low-nibble, high-nibble sum; l and h range over
// 1..15.
func (t *precomputeTable) octuples(input, byteIndex, l, h int) {
	a := t.point(input, byteIndex, l)
	b := t.point(input, byteIndex, h*16)
	var sum tower.G1Projective
	sum.FromAffine(&a)
	sum.AddMixed(&b)
	s := sum.ToAffine()
	t.setPoint(input, byteIndex, l+h*16, &s)
}

// PrecomputesAccount builds the tables incrementally, one instruction
// at a time, so the construction can be spread over many transactions.
type PrecomputesAccount struct {
	table    precomputeTable
	gammaABC []tower.G1Affine

	isSetup     bool
	instruction uint32
	publicInput uint32
}

// NewPrecomputesAccount wraps a zeroed table buffer for the given
// gamma_abc points (without the constant term).
func NewPrecomputesAccount(data []byte, gammaABC []tower.G1Affine) (*PrecomputesAccount, error) {
	if len(data) != PrecomputeAccountSize(len(gammaABC)) {
		return nil, fmt.Errorf("precompute buffer is %d bytes, need %d", len(data), PrecomputeAccountSize(len(gammaABC)))
	}
	return &PrecomputesAccount{table: precomputeTable{data: data}, gammaABC: gammaABC}, nil
}

func (p *PrecomputesAccount) IsSetup() bool {
	return p.isSetup
}

// PartialPrecompute executes the next build instruction.
func (p *PrecomputesAccount) PartialPrecompute() error {
	if p.isSetup {
		return ErrInvalidAccountState
	}

	instruction := p.instruction
	input := int(p.publicInput)

	if instruction == 0 {
		p.table.initPublicInput(p.gammaABC, input)
		p.instruction = 1
		return nil
	}

	byteIndex := int((instruction - 1) / PrecomputeInstructionsPerByte)
	byteInstruction := (instruction - 1) % PrecomputeInstructionsPerByte

	switch {
	case byteInstruction == 0:
		p.table.initByte(input, byteIndex)
	case byteInstruction == 1:
		p.table.quadruples(input, byteIndex, 1)
	case byteInstruction == 2:
		p.table.quadruples(input, byteIndex, 16)
	default:
		l := int(byteInstruction-3)/15 + 1
		h := int(byteInstruction-3)%15 + 1
		p.table.octuples(input, byteIndex, l, h)
	}

	next := instruction + 1
	if instruction == PrecomputeInstructionsPerByte*32 {
		if input+1 >= len(p.gammaABC) {
			p.isSetup = true
		} else {
			p.publicInput++
			next = 0
		}
	}
	p.instruction = next
	return nil
}

// Point satisfies Precomputes once the build has finished.
func (p *PrecomputesAccount) Point(input, byteIndex int, b byte) tower.G1Affine {
	return p.table.point(input, byteIndex, int(b))
}

// virtualPrecomputes holds fully built in-memory tables, used when a
// key is prepared directly rather than through the incremental account.
type virtualPrecomputes struct {
	table precomputeTable
}

func newVirtualPrecomputes(gammaABC []tower.G1Affine) *virtualPrecomputes {
	v := &virtualPrecomputes{table: precomputeTable{
		data: make([]byte, PrecomputeAccountSize(len(gammaABC))),
	}}
	for input := range gammaABC {
		v.table.initPublicInput(gammaABC, input)
		for byteIndex := 0; byteIndex < 32; byteIndex++ {
			v.table.initByte(input, byteIndex)
			v.table.quadruples(input, byteIndex, 1)
			v.table.quadruples(input, byteIndex, 16)
			for l := 1; l <= 15; l++ {
				for h := 1; h <= 15; h++ {
					v.table.octuples(input, byteIndex, l, h)
				}
			}
		}
	}
	return v
}

func (v *virtualPrecomputes) Point(input, byteIndex int, b byte) tower.G1Affine {
	return v.table.point(input, byteIndex, int(b))
}
