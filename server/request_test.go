package server

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest(t *testing.T) *VerifyRequest {
	t.Helper()
	_, _, g1, g2 := bn254.Generators()

	a := g1.Bytes()
	b := g2.Bytes()

	var input [32]byte
	input[0] = 42

	return &VerifyRequest{
		VerifyingKey: "transfer",
		ProofA:       hex.EncodeToString(a[:]),
		ProofB:       hex.EncodeToString(b[:]),
		ProofC:       hex.EncodeToString(a[:]),
		PublicInputs: []string{hex.EncodeToString(input[:])},
	}
}

func TestParseVerifyRequest(t *testing.T) {
	buf, err := json.Marshal(testRequest(t))
	require.NoError(t, err)

	req, err := ParseVerifyRequest(buf)
	require.NoError(t, err)
	assert.Equal(t, "transfer", req.VerifyingKey)
	assert.Len(t, req.PublicInputs, 1)
}

func TestParseVerifyRequestRejectsMissingPoints(t *testing.T) {
	_, err := ParseVerifyRequest([]byte(`{"verifying_key":"transfer"}`))
	assert.Error(t, err)

	_, err = ParseVerifyRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	req := testRequest(t)

	proof, inputs, err := req.Decode()
	require.NoError(t, err)

	_, _, g1, g2 := bn254.Generators()
	assert.Equal(t, g1, proof.A.ToCurve())
	assert.Equal(t, g2, proof.B.ToCurve())
	assert.Equal(t, g1, proof.C.ToCurve())

	require.Len(t, inputs, 1)
	assert.Equal(t, byte(42), inputs[0][0])
}

func TestDecodeUncompressedPoints(t *testing.T) {
	_, _, g1, g2 := bn254.Generators()
	a := g1.RawBytes()
	b := g2.RawBytes()

	req := testRequest(t)
	req.ProofA = hex.EncodeToString(a[:])
	req.ProofB = hex.EncodeToString(b[:])

	proof, _, err := req.Decode()
	require.NoError(t, err)
	assert.Equal(t, g1, proof.A.ToCurve())
	assert.Equal(t, g2, proof.B.ToCurve())
}

func TestDecodeRejectsBadInput(t *testing.T) {
	req := testRequest(t)
	req.ProofA = "zz"
	_, _, err := req.Decode()
	assert.Error(t, err)

	req = testRequest(t)
	req.PublicInputs = []string{"abcd"}
	_, _, err = req.Decode()
	assert.Error(t, err)

	req = testRequest(t)
	req.PublicInputs = []string{"xy"}
	_, _, err = req.Decode()
	assert.Error(t, err)
}
