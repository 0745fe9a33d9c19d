package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"veil/veil-verifier/verifier"
)

// VerifyRequest is the wire form of a verification submission. Proof
// points are hex encoded in the gnark-crypto serialization (compressed
// or uncompressed), public inputs are hex encoded 32-byte little-endian
// scalars.
type VerifyRequest struct {
	VerifyingKey string   `json:"verifying_key"`
	ProofA       string   `json:"proof_a"`
	ProofB       string   `json:"proof_b"`
	ProofC       string   `json:"proof_c"`
	PublicInputs []string `json:"public_inputs"`
}

type VerificationResult struct {
	Verified     bool   `json:"verified"`
	VerifyingKey string `json:"verifying_key"`
	Instructions int    `json:"instructions"`
	DurationMs   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
	ErrorCode    int    `json:"error_code,omitempty"`
}

func ParseVerifyRequest(buf []byte) (*VerifyRequest, error) {
	var req VerifyRequest
	if err := json.Unmarshal(buf, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verify request: %w", err)
	}
	if req.ProofA == "" || req.ProofB == "" || req.ProofC == "" {
		return nil, fmt.Errorf("verify request is missing proof points")
	}
	return &req, nil
}

// Decode deserializes the proof points and public inputs. Curve and
// subgroup membership is not checked here, the verification account
// rejects invalid points during Setup.
func (req *VerifyRequest) Decode() (*verifier.Proof, [][32]byte, error) {
	var a, c bn254.G1Affine
	var b bn254.G2Affine

	if err := setPointBytes(&a, req.ProofA); err != nil {
		return nil, nil, fmt.Errorf("proof point a: %w", err)
	}
	if err := setPointBytes(&b, req.ProofB); err != nil {
		return nil, nil, fmt.Errorf("proof point b: %w", err)
	}
	if err := setPointBytes(&c, req.ProofC); err != nil {
		return nil, nil, fmt.Errorf("proof point c: %w", err)
	}

	var proof verifier.Proof
	proof.A.FromCurve(&a)
	proof.B.FromCurve(&b)
	proof.C.FromCurve(&c)

	inputs := make([][32]byte, len(req.PublicInputs))
	for i, s := range req.PublicInputs {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, nil, fmt.Errorf("public input %d: %w", i, err)
		}
		if len(raw) != 32 {
			return nil, nil, fmt.Errorf("public input %d: got %d bytes, want 32", i, len(raw))
		}
		copy(inputs[i][:], raw)
	}

	return &proof, inputs, nil
}

type curvePoint interface {
	SetBytes([]byte) (int, error)
}

func setPointBytes(p curvePoint, s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if _, err := p.SetBytes(raw); err != nil {
		return err
	}
	return nil
}
