// Package verifier implements partial Groth16 proof verification over
// Bn254: the verification is split into resumable rounds that are
// batched into budgeted instructions, with all intermediate state held
// in a fixed-layout verification account.
package verifier

import "errors"

var (
	ErrInvalidAccountState          = errors.New("invalid account state")
	ErrCouldNotProcessProof         = errors.New("could not process proof")
	ErrPartialComputationError      = errors.New("partial computation error")
	ErrComputationIsAlreadyFinished = errors.New("computation is already finished")
	ErrInvalidPublicInputs          = errors.New("invalid public inputs")
)

// ErrorCode maps an error to its fixed wire code. Zero means no code is
// assigned.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAccountState):
		return 1
	case errors.Is(err, ErrCouldNotProcessProof):
		return 2
	case errors.Is(err, ErrPartialComputationError):
		return 3
	case errors.Is(err, ErrComputationIsAlreadyFinished):
		return 4
	case errors.Is(err, ErrInvalidPublicInputs):
		return 5
	}
	return 0
}
