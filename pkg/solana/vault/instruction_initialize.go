package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/solana"
)

var initializeInstructionDiscriminator = []byte{
	175, 175, 109, 31, 13, 152, 155, 237,
}

const (
	InitializeInstructionDataSize = 8 // discriminator

	InitializeInstructionAccountsLen = 3
)

type InitializeInstructionAccounts struct {
	Owner solana.AccountMeta
	State solana.AccountMeta
}

func NewInitializeInstruction(owner, state ed25519.PublicKey) solana.Instruction {
	var offset int

	data := make([]byte, InitializeInstructionDataSize)
	putDiscriminator(data, initializeInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(owner, true),
		solana.NewAccountMeta(state, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DecompileInitialize(ixn solana.Instruction) (*InitializeInstructionAccounts, error) {
	if !bytes.Equal(ixn.Program, PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}

	if len(ixn.Data) != InitializeInstructionDataSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(ixn.Data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	if len(ixn.Accounts) != InitializeInstructionAccountsLen {
		return nil, ErrInvalidAccountList
	}
	if !bytes.Equal(ixn.Accounts[2].PublicKey, SYSTEM_PROGRAM_ID) {
		return nil, ErrInvalidAccountList
	}

	return &InitializeInstructionAccounts{
		Owner: ixn.Accounts[0],
		State: ixn.Accounts[1],
	}, nil
}
