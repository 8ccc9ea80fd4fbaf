package vault

import (
	"bytes"

	"github.com/code-payments/vault-server/pkg/solana"
)

type InstructionType uint8

const (
	UnknownInstructionType InstructionType = iota

	InstructionTypeInitialize
	InstructionTypeDeposit
	InstructionTypeWithdraw
	InstructionTypeClose
)

// GetInstructionType identifies a vault instruction by its discriminator
// without decompiling the full account list.
func GetInstructionType(ixn solana.Instruction) (InstructionType, error) {
	if !bytes.Equal(ixn.Program, PROGRAM_ID) {
		return UnknownInstructionType, ErrInvalidProgram
	}

	if len(ixn.Data) < 8 {
		return UnknownInstructionType, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(ixn.Data, &discriminator, &offset)

	switch {
	case bytes.Equal(discriminator, initializeInstructionDiscriminator):
		return InstructionTypeInitialize, nil
	case bytes.Equal(discriminator, depositInstructionDiscriminator):
		return InstructionTypeDeposit, nil
	case bytes.Equal(discriminator, withdrawInstructionDiscriminator):
		return InstructionTypeWithdraw, nil
	case bytes.Equal(discriminator, closeInstructionDiscriminator):
		return InstructionTypeClose, nil
	}

	return UnknownInstructionType, ErrInvalidInstructionData
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitialize:
		return "initialize"
	case InstructionTypeDeposit:
		return "deposit"
	case InstructionTypeWithdraw:
		return "withdraw"
	case InstructionTypeClose:
		return "close"
	}

	return "unknown"
}
