package verifier

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/veil-verifier/tower"
)

// cubicCircuit proves knowledge of x with y == x^3 + x + 5 and
// z == x * x. Two public inputs keep the multi-scalar path honest.
type cubicCircuit struct {
	X frontend.Variable
	Y frontend.Variable `gnark:",public"`
	Z frontend.Variable `gnark:",public"`
}

func (c *cubicCircuit) Define(api frontend.API) error {
	x3 := api.Mul(c.X, c.X, c.X)
	api.AssertIsEqual(c.Y, api.Add(x3, c.X, 5))
	api.AssertIsEqual(c.Z, api.Mul(c.X, c.X))
	return nil
}

type proofFixture struct {
	vk      *VerifyingKey
	gnarkVK *groth16_bn254.VerifyingKey
	proof   Proof
	inputs  [][32]byte
	scalars []fr.Element
}

var (
	fixtureOnce sync.Once
	fixtureVal  *proofFixture
	fixtureErr  error
)

func loadFixture(t *testing.T) *proofFixture {
	t.Helper()
	fixtureOnce.Do(func() { fixtureVal, fixtureErr = buildFixture() })
	require.NoError(t, fixtureErr)
	return fixtureVal
}

func buildFixture() (*proofFixture, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &cubicCircuit{})
	if err != nil {
		return nil, err
	}
	pk, gvk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(&cubicCircuit{X: 3, Y: 35, Z: 9}, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	gproof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return nil, err
	}

	vkBn, ok := gvk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, errors.New("unexpected verifying key type")
	}
	proofBn, ok := gproof.(*groth16_bn254.Proof)
	if !ok {
		return nil, errors.New("unexpected proof type")
	}

	vk, err := FromGnark(vkBn)
	if err != nil {
		return nil, err
	}

	f := &proofFixture{vk: vk, gnarkVK: vkBn}
	f.proof.A.FromCurve(&proofBn.Ar)
	f.proof.B.FromCurve(&proofBn.Bs)
	f.proof.C.FromCurve(&proofBn.Krs)

	f.scalars = make([]fr.Element, 2)
	f.scalars[0].SetUint64(35)
	f.scalars[1].SetUint64(9)
	for _, s := range f.scalars {
		f.inputs = append(f.inputs, inputLE(s))
	}
	return f, nil
}

// inputLE serializes a scalar the way the account stores public inputs.
func inputLE(e fr.Element) [32]byte {
	be := e.Bytes()
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = be[31-i]
	}
	return le
}

func setupAccount(t *testing.T, f *proofFixture, proof *Proof, inputs [][32]byte) (*VerificationAccount, []byte) {
	t.Helper()
	data := make([]byte, AccountSize(f.vk.PublicInputsCount))
	va, err := NewVerificationAccount(data, f.vk)
	require.NoError(t, err)
	require.NoError(t, va.Setup(proof, inputs))
	return va, data
}

func TestVerifyValidProof(t *testing.T) {
	f := loadFixture(t)
	va, _ := setupAccount(t, f, &f.proof, f.inputs)

	ok, err := va.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedInput(t *testing.T) {
	f := loadFixture(t)

	inputs := make([][32]byte, len(f.inputs))
	copy(inputs, f.inputs)
	inputs[1][0] ^= 1

	va, _ := setupAccount(t, f, &f.proof, inputs)
	ok, err := va.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	f := loadFixture(t)

	proof := f.proof
	proof.C = f.proof.A

	va, _ := setupAccount(t, f, &proof, f.inputs)
	ok, err := va.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreparedInputsMatchReference(t *testing.T) {
	f := loadFixture(t)
	va, _ := setupAccount(t, f, &f.proof, f.inputs)

	for va.Phase() == PhasePublicInputPreparation {
		_, err := va.ProcessInstruction()
		require.NoError(t, err)
	}

	var want bn254.G1Affine
	want.Set(&f.gnarkVK.G1.K[0])
	for i, s := range f.scalars {
		var term bn254.G1Affine
		var k big.Int
		s.BigInt(&k)
		term.ScalarMultiplication(&f.gnarkVK.G1.K[i+1], &k)
		want.Add(&want, &term)
	}

	got := va.PreparedInputs().ToCurve()
	assert.Equal(t, want, got)
}

func TestMillerLoopMatchesReference(t *testing.T) {
	f := loadFixture(t)
	va, _ := setupAccount(t, f, &f.proof, f.inputs)

	for va.Phase() != PhaseFinalExponentiation {
		_, err := va.ProcessInstruction()
		require.NoError(t, err)
	}

	var gammaNeg, deltaNeg bn254.G2Affine
	gammaNeg.Neg(&f.gnarkVK.G2.Gamma)
	deltaNeg.Neg(&f.gnarkVK.G2.Delta)

	prepared := va.PreparedInputs().ToCurve()
	ref, err := bn254.MillerLoop(
		[]bn254.G1Affine{f.proof.A.ToCurve(), prepared, f.proof.C.ToCurve()},
		[]bn254.G2Affine{f.proof.B.ToCurve(), gammaNeg, deltaNeg},
	)
	require.NoError(t, err)

	// Raw Miller values may differ by factors the final exponentiation
	// kills, so compare the exponentiated images.
	got := va.F().ToGT()
	gotExp := bn254.FinalExponentiation(&got)
	wantExp := bn254.FinalExponentiation(&ref)
	assert.True(t, wantExp.Equal(&gotExp))
}

func TestResumeFromCopiedAccount(t *testing.T) {
	f := loadFixture(t)
	va, data := setupAccount(t, f, &f.proof, f.inputs)

	for i := 0; i < 5; i++ {
		_, err := va.ProcessInstruction()
		require.NoError(t, err)
	}

	snapshot := append([]byte(nil), data...)
	resumed, err := NewVerificationAccount(snapshot, f.vk)
	require.NoError(t, err)

	okA, err := va.Verify()
	require.NoError(t, err)
	okB, err := resumed.Verify()
	require.NoError(t, err)

	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, data, snapshot)
}

func TestInstructionsRemaining(t *testing.T) {
	f := loadFixture(t)
	va, _ := setupAccount(t, f, &f.proof, f.inputs)

	total := va.InstructionsRemaining()
	var steps int
	for {
		verdict, err := va.ProcessInstruction()
		require.NoError(t, err)
		steps++
		if verdict != nil {
			break
		}
	}

	assert.Equal(t, total, steps)
	assert.Equal(t, 0, va.InstructionsRemaining())
}

func TestDegenerateMillerOutputFailsInversion(t *testing.T) {
	f := loadFixture(t)
	va, _ := setupAccount(t, f, &f.proof, f.inputs)

	for va.Phase() != PhaseFinalExponentiation {
		_, err := va.ProcessInstruction()
		require.NoError(t, err)
	}

	// A zero f is not invertible; the inversion round must fail without
	// producing a verdict.
	var zero tower.Fq12
	va.setF(&zero)

	_, err := va.ProcessInstruction()
	assert.ErrorIs(t, err, ErrPartialComputationError)
}

func TestProcessAfterFinished(t *testing.T) {
	f := loadFixture(t)
	va, _ := setupAccount(t, f, &f.proof, f.inputs)

	_, err := va.Verify()
	require.NoError(t, err)

	_, err = va.ProcessInstruction()
	assert.ErrorIs(t, err, ErrComputationIsAlreadyFinished)
}

func TestSetupRejectsWrongInputCount(t *testing.T) {
	f := loadFixture(t)
	data := make([]byte, AccountSize(f.vk.PublicInputsCount))
	va, err := NewVerificationAccount(data, f.vk)
	require.NoError(t, err)

	err = va.Setup(&f.proof, f.inputs[:1])
	assert.ErrorIs(t, err, ErrInvalidPublicInputs)
}

func TestSetupRejectsUnreducedScalar(t *testing.T) {
	f := loadFixture(t)
	data := make([]byte, AccountSize(f.vk.PublicInputsCount))
	va, err := NewVerificationAccount(data, f.vk)
	require.NoError(t, err)

	inputs := make([][32]byte, len(f.inputs))
	copy(inputs, f.inputs)
	for i := range inputs[0] {
		inputs[0][i] = 0xff
	}

	err = va.Setup(&f.proof, inputs)
	assert.ErrorIs(t, err, ErrInvalidPublicInputs)
}

func TestSetupRejectsOffCurvePoints(t *testing.T) {
	f := loadFixture(t)
	data := make([]byte, AccountSize(f.vk.PublicInputsCount))
	va, err := NewVerificationAccount(data, f.vk)
	require.NoError(t, err)

	proof := f.proof
	proof.A.X.SetUint64(1)
	proof.A.Y.SetUint64(1)
	err = va.Setup(&proof, f.inputs)
	assert.ErrorIs(t, err, ErrCouldNotProcessProof)

	proof = f.proof
	proof.B.Y.A0.SetUint64(1)
	err = va.Setup(&proof, f.inputs)
	assert.ErrorIs(t, err, ErrCouldNotProcessProof)
}

func TestAccountSizeMismatch(t *testing.T) {
	f := loadFixture(t)
	data := make([]byte, AccountSize(f.vk.PublicInputsCount)+1)
	_, err := NewVerificationAccount(data, f.vk)
	assert.ErrorIs(t, err, ErrInvalidAccountState)
}

func TestPlanShape(t *testing.T) {
	assert.Equal(t, 2020, CombinedMillerLoop.TotalRounds())
	assert.Equal(t, 215, CombinedMillerLoop.InstructionCount())
	assert.Equal(t, 408, FinalExponentiation.TotalRounds())
	assert.Equal(t, 17, FinalExponentiation.InstructionCount())
	assert.Equal(t, 66, PreparePublicInputsTotalRounds(2))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, 1, ErrorCode(ErrInvalidAccountState))
	assert.Equal(t, 2, ErrorCode(ErrCouldNotProcessProof))
	assert.Equal(t, 3, ErrorCode(ErrPartialComputationError))
	assert.Equal(t, 4, ErrorCode(ErrComputationIsAlreadyFinished))
	assert.Equal(t, 5, ErrorCode(fmt.Errorf("%w: input 0", ErrInvalidPublicInputs)))
	assert.Equal(t, 0, ErrorCode(errors.New("something else")))
}
