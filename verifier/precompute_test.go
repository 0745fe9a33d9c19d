package verifier

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtPrecomputes(t *testing.T, f *proofFixture) (*PrecomputesAccount, int) {
	t.Helper()
	points := f.vk.GammaABCPoints()
	data := make([]byte, PrecomputeAccountSize(len(points)))
	acct, err := NewPrecomputesAccount(data, points)
	require.NoError(t, err)

	var steps int
	for !acct.IsSetup() {
		require.NoError(t, acct.PartialPrecompute())
		steps++
	}
	return acct, steps
}

func TestPrecomputeInstructionCount(t *testing.T) {
	f := loadFixture(t)
	_, steps := builtPrecomputes(t, f)
	assert.Equal(t, PrecomputeInstructions(f.vk.PublicInputsCount), uint32(steps))
}

func TestPrecomputePointMatchesScalarMultiplication(t *testing.T) {
	f := loadFixture(t)
	acct, _ := builtPrecomputes(t, f)

	cases := []struct {
		input     int
		byteIndex int
		b         byte
	}{
		{0, 0, 1},
		{0, 0, 255},
		{0, 5, 137},
		{1, 0, 2},
		{1, 17, 200},
		{1, 31, 3},
	}
	for _, c := range cases {
		base := f.gnarkVK.G1.K[c.input+1]

		k := new(big.Int).Lsh(big.NewInt(int64(c.b)), uint(8*c.byteIndex))
		var want bn254.G1Affine
		want.ScalarMultiplication(&base, k)

		got := acct.Point(c.input, c.byteIndex, c.b).ToCurve()
		assert.Equal(t, want, got, "input %d byte %d value %d", c.input, c.byteIndex, c.b)
	}
}

func TestPrecomputesAccountMatchesVirtual(t *testing.T) {
	f := loadFixture(t)
	acct, _ := builtPrecomputes(t, f)
	virtual := newVirtualPrecomputes(f.vk.GammaABCPoints())

	for _, byteIndex := range []int{0, 1, 15, 30} {
		for _, b := range []byte{1, 7, 16, 129, 255} {
			got := acct.Point(0, byteIndex, b)
			want := virtual.Point(0, byteIndex, b)
			assert.True(t, got.X.Equal(&want.X), "byte %d value %d", byteIndex, b)
			assert.True(t, got.Y.Equal(&want.Y), "byte %d value %d", byteIndex, b)
		}
	}
}

func TestKeyTableMatchesAccount(t *testing.T) {
	f := loadFixture(t)
	acct, _ := builtPrecomputes(t, f)

	got := f.vk.GammaABC(1, 3, 42)
	want := acct.Point(1, 3, 42)
	assert.True(t, got.X.Equal(&want.X))
	assert.True(t, got.Y.Equal(&want.Y))
}

func TestVerifyWithPrecomputesAccount(t *testing.T) {
	f := loadFixture(t)

	vk, err := NewVerifyingKey(
		f.gnarkVK.G1.Alpha,
		f.gnarkVK.G2.Beta, f.gnarkVK.G2.Gamma, f.gnarkVK.G2.Delta,
		f.gnarkVK.G1.K,
	)
	require.NoError(t, err)

	points := vk.GammaABCPoints()
	data := make([]byte, PrecomputeAccountSize(len(points)))
	acct, err := NewPrecomputesAccount(data, points)
	require.NoError(t, err)
	for !acct.IsSetup() {
		require.NoError(t, acct.PartialPrecompute())
	}
	vk.UsePrecomputes(acct)

	account := make([]byte, AccountSize(vk.PublicInputsCount))
	va, err := NewVerificationAccount(account, vk)
	require.NoError(t, err)
	require.NoError(t, va.Setup(&f.proof, f.inputs))

	ok, err := va.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrecomputeRejectsWrongBufferSize(t *testing.T) {
	f := loadFixture(t)
	points := f.vk.GammaABCPoints()
	_, err := NewPrecomputesAccount(make([]byte, 64), points)
	assert.Error(t, err)
}

func TestPrecomputeAfterSetup(t *testing.T) {
	f := loadFixture(t)
	acct, _ := builtPrecomputes(t, f)
	assert.ErrorIs(t, acct.PartialPrecompute(), ErrInvalidAccountState)
}

func TestPrecomputeSizes(t *testing.T) {
	assert.Equal(t, 2*32*255*64, PrecomputeAccountSize(2))
	assert.Equal(t, uint32((1+228*32)*2), PrecomputeInstructions(2))
}
