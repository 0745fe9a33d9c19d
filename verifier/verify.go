package verifier

// ProcessInstruction runs the next batched instruction of the
// verification. It returns a nil verdict while the computation is in
// flight and a non-nil one after the terminal round, true when the
// proof verified against the key.
//
// The account's RAM caches are flushed back into the byte layout before
// returning, so the account can be detached and re-attached between
// instructions.
func (va *VerificationAccount) ProcessInstruction() (*bool, error) {
	instruction := int(va.Instruction())
	round := int(va.Round())

	var verdict *bool
	var err error
	switch va.Phase() {
	case PhasePublicInputPreparation:
		err = va.preparePublicInputs(instruction, round)
	case PhaseCombinedMillerLoop:
		err = va.combinedMillerLoop(instruction, round)
	case PhaseFinalExponentiation:
		verdict, err = va.finalExponentiation(instruction, round)
	default:
		return nil, ErrInvalidAccountState
	}
	if err != nil {
		return nil, err
	}

	va.flushRAMs()
	return verdict, nil
}

// InstructionsRemaining reports how many instructions are left across
// the current and following phases.
func (va *VerificationAccount) InstructionsRemaining() int {
	instruction := int(va.Instruction())
	switch va.Phase() {
	case PhasePublicInputPreparation:
		return len(va.prepareInstructions) - instruction +
			CombinedMillerLoop.InstructionCount() +
			FinalExponentiation.InstructionCount()
	case PhaseCombinedMillerLoop:
		return CombinedMillerLoop.InstructionCount() - instruction +
			FinalExponentiation.InstructionCount()
	case PhaseFinalExponentiation:
		return FinalExponentiation.InstructionCount() - instruction
	}
	return 0
}

// Verify drives the computation to completion in one call. Partial
// execution through ProcessInstruction yields the identical result.
func (va *VerificationAccount) Verify() (bool, error) {
	for {
		verdict, err := va.ProcessInstruction()
		if err != nil {
			return false, err
		}
		if verdict != nil {
			return *verdict, nil
		}
	}
}
