package queue

// VerificationQueueLen is the capacity of the verification request
// queue.
const VerificationQueueLen = 256

// VerificationRequest is a pending proof verification: the serialized
// proof points and the raw public inputs.
type VerificationRequest struct {
	ProofA       [65]byte
	ProofB       [129]byte
	ProofC       [65]byte
	PublicInputs [][32]byte
	FeeVersion   uint32
}

// VerificationQueue orders pending verifications FIFO.
type VerificationQueue struct {
	Ring[VerificationRequest]
}

func NewVerificationQueue() *VerificationQueue {
	return &VerificationQueue{Ring: *NewRing[VerificationRequest](VerificationQueueLen - 1)}
}
