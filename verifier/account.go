package verifier

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"veil/veil-verifier/compute"
	"veil/veil-verifier/tower"
)

// Phase tags the stage the verification is in.
type Phase uint8

const (
	PhasePublicInputPreparation Phase = iota
	PhaseCombinedMillerLoop
	PhaseFinalExponentiation
)

// RAM slot capacities. Sized to the deepest call chain of each phase.
const (
	ramFqSlots   = 6
	ramFq2Slots  = 10
	ramFq6Slots  = 3
	ramFq12Slots = 7
)

// Fixed account layout offsets, in order: phase u8, round u32,
// instruction u32, coefficient index u8, the proof and intermediate
// points, the four RAM regions, then the raw public inputs.
const (
	offPhase       = 0
	offRound       = 1
	offInstruction = 5
	offCoeffIndex  = 9
	offA           = 10
	offB           = offA + tower.G1AffineSize
	offC           = offB + tower.G2AffineSize
	offPrepared    = offC + tower.G1AffineSize
	offR           = offPrepared + tower.G1AffineSize
	offAltB        = offR + tower.G2HomProjectiveSize
	offF           = offAltB + tower.G2AffineSize
	offRAMFq       = offF + tower.Fq12Size

	offRAMFq2       = offRAMFq + ramFqSlots*(1+tower.FqSize)
	offRAMFq6       = offRAMFq2 + ramFq2Slots*(1+tower.Fq2Size)
	offRAMFq12      = offRAMFq6 + ramFq6Slots*(1+tower.Fq6Size)
	offPublicInputs = offRAMFq12 + ramFq12Slots*(1+tower.Fq12Size)
)

// AccountSize is the byte footprint of a verification account for a key
// with n public inputs.
func AccountSize(n int) int {
	return offPublicInputs + n*32
}

// Proof is a Groth16 proof over Bn254.
type Proof struct {
	A tower.G1Affine
	B tower.G2Affine
	C tower.G1Affine
}

// VerificationAccount drives one proof verification. All state that has
// to survive a transaction boundary lives in the backing byte region;
// the struct itself only caches deserialized views of it.
type VerificationAccount struct {
	data []byte
	vk   *VerifyingKey

	ramFq   *compute.RAM[fp.Element]
	ramFq2  *compute.RAM[tower.Fq2]
	ramFq6  *compute.RAM[tower.Fq6]
	ramFq12 *compute.RAM[tower.Fq12]

	// Derived deterministically from the stored public inputs, never
	// persisted.
	prepareInstructions []uint32
}

// NewVerificationAccount attaches to a backing byte region. The region
// may be freshly zeroed (before Setup) or hold a suspended verification.
func NewVerificationAccount(data []byte, vk *VerifyingKey) (*VerificationAccount, error) {
	if len(data) != AccountSize(vk.PublicInputsCount) {
		return nil, fmt.Errorf("%w: account is %d bytes, need %d", ErrInvalidAccountState, len(data), AccountSize(vk.PublicInputsCount))
	}

	va := &VerificationAccount{data: data, vk: vk}

	var err error
	va.ramFq, err = compute.NewRAM(
		data[offRAMFq:offRAMFq2], ramFqSlots, tower.FqSize,
		tower.PutFq, tower.GetFq,
	)
	if err != nil {
		return nil, err
	}
	va.ramFq2, err = compute.NewRAM(
		data[offRAMFq2:offRAMFq6], ramFq2Slots, tower.Fq2Size,
		func(b []byte, v *tower.Fq2) { v.PutBytes(b) },
		func(b []byte, v *tower.Fq2) { v.SetBytes(b) },
	)
	if err != nil {
		return nil, err
	}
	va.ramFq6, err = compute.NewRAM(
		data[offRAMFq6:offRAMFq12], ramFq6Slots, tower.Fq6Size,
		func(b []byte, v *tower.Fq6) { v.PutBytes(b) },
		func(b []byte, v *tower.Fq6) { v.SetBytes(b) },
	)
	if err != nil {
		return nil, err
	}
	va.ramFq12, err = compute.NewRAM(
		data[offRAMFq12:offPublicInputs], ramFq12Slots, tower.Fq12Size,
		func(b []byte, v *tower.Fq12) { v.PutBytes(b) },
		func(b []byte, v *tower.Fq12) { v.SetBytes(b) },
	)
	if err != nil {
		return nil, err
	}

	va.prepareInstructions = PreparePublicInputsInstructions(va.publicInputs())
	return va, nil
}

// Setup validates the proof and public inputs and initializes the
// account for round zero.
func (va *VerificationAccount) Setup(proof *Proof, publicInputs [][32]byte) error {
	if len(publicInputs) != va.vk.PublicInputsCount {
		return fmt.Errorf("%w: got %d public inputs, key expects %d", ErrInvalidPublicInputs, len(publicInputs), va.vk.PublicInputsCount)
	}
	for i, input := range publicInputs {
		if !scalarInField(input) {
			return fmt.Errorf("%w: public input %d is not a reduced scalar", ErrInvalidPublicInputs, i)
		}
	}
	if err := validateProof(proof); err != nil {
		return err
	}

	for i := range va.data {
		va.data[i] = 0
	}

	va.setPhase(PhasePublicInputPreparation)
	va.setRound(0)
	va.setInstruction(0)
	va.setCoeffIndex(0)
	va.SetA(&proof.A)
	va.SetB(&proof.B)
	va.SetC(&proof.C)

	for i, input := range publicInputs {
		copy(va.data[offPublicInputs+i*32:], input[:])
	}
	va.prepareInstructions = PreparePublicInputsInstructions(va.publicInputs())

	// RAM trackers were built over the pre-reset bytes.
	var err error
	va2, err := NewVerificationAccount(va.data, va.vk)
	if err != nil {
		return err
	}
	*va = *va2
	return nil
}

func scalarInField(b [32]byte) bool {
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = b[31-i]
	}
	var e fr.Element
	return e.SetBytesCanonical(le[:]) == nil
}

func validateProof(proof *Proof) error {
	a := proof.A.ToCurve()
	b := proof.B.ToCurve()
	c := proof.C.ToCurve()
	if !a.IsOnCurve() || !c.IsOnCurve() {
		return fmt.Errorf("%w: proof point not on curve", ErrCouldNotProcessProof)
	}
	if !b.IsOnCurve() || !b.IsInSubGroup() {
		return fmt.Errorf("%w: proof point b invalid", ErrCouldNotProcessProof)
	}
	return nil
}

func (va *VerificationAccount) Phase() Phase {
	return Phase(va.data[offPhase])
}

func (va *VerificationAccount) setPhase(p Phase) {
	va.data[offPhase] = byte(p)
}

func (va *VerificationAccount) Round() uint32 {
	return binary.LittleEndian.Uint32(va.data[offRound:])
}

func (va *VerificationAccount) setRound(r uint32) {
	binary.LittleEndian.PutUint32(va.data[offRound:], r)
}

func (va *VerificationAccount) Instruction() uint32 {
	return binary.LittleEndian.Uint32(va.data[offInstruction:])
}

func (va *VerificationAccount) setInstruction(i uint32) {
	binary.LittleEndian.PutUint32(va.data[offInstruction:], i)
}

func (va *VerificationAccount) CoeffIndex() int {
	return int(va.data[offCoeffIndex])
}

func (va *VerificationAccount) setCoeffIndex(i int) {
	va.data[offCoeffIndex] = byte(i)
}

func (va *VerificationAccount) A() tower.G1Affine {
	var p tower.G1Affine
	p.SetBytes(va.data[offA:])
	return p
}

func (va *VerificationAccount) SetA(p *tower.G1Affine) {
	p.PutBytes(va.data[offA:])
}

func (va *VerificationAccount) B() tower.G2Affine {
	var p tower.G2Affine
	p.SetBytes(va.data[offB:])
	return p
}

func (va *VerificationAccount) SetB(p *tower.G2Affine) {
	p.PutBytes(va.data[offB:])
}

func (va *VerificationAccount) C() tower.G1Affine {
	var p tower.G1Affine
	p.SetBytes(va.data[offC:])
	return p
}

func (va *VerificationAccount) SetC(p *tower.G1Affine) {
	p.PutBytes(va.data[offC:])
}

func (va *VerificationAccount) PreparedInputs() tower.G1Affine {
	var p tower.G1Affine
	p.SetBytes(va.data[offPrepared:])
	return p
}

func (va *VerificationAccount) SetPreparedInputs(p *tower.G1Affine) {
	p.PutBytes(va.data[offPrepared:])
}

func (va *VerificationAccount) r() tower.G2HomProjective {
	var p tower.G2HomProjective
	p.SetBytes(va.data[offR:])
	return p
}

func (va *VerificationAccount) setR(p *tower.G2HomProjective) {
	p.PutBytes(va.data[offR:])
}

func (va *VerificationAccount) altB() tower.G2Affine {
	var p tower.G2Affine
	p.SetBytes(va.data[offAltB:])
	return p
}

func (va *VerificationAccount) setAltB(p *tower.G2Affine) {
	p.PutBytes(va.data[offAltB:])
}

// F is the Miller loop output the final exponentiation runs on; after
// the terminal round it holds the exponentiation result.
func (va *VerificationAccount) F() tower.Fq12 {
	var f tower.Fq12
	f.SetBytes(va.data[offF:])
	return f
}

func (va *VerificationAccount) setF(f *tower.Fq12) {
	f.PutBytes(va.data[offF:])
}

// PublicInput returns the raw little-endian bytes of input i.
func (va *VerificationAccount) PublicInput(i int) [32]byte {
	var out [32]byte
	copy(out[:], va.data[offPublicInputs+i*32:])
	return out
}

func (va *VerificationAccount) publicInputs() [][32]byte {
	out := make([][32]byte, va.vk.PublicInputsCount)
	for i := range out {
		out[i] = va.PublicInput(i)
	}
	return out
}

func (va *VerificationAccount) flushRAMs() {
	va.ramFq.Flush()
	va.ramFq2.Flush()
	va.ramFq6.Flush()
	va.ramFq12.Flush()
}
