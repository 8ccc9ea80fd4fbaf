package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/solana"
)

var closeInstructionDiscriminator = []byte{
	98, 165, 201, 177, 108, 65, 206, 96,
}

const (
	CloseInstructionDataSize = 8 // discriminator

	CloseInstructionAccountsLen = 4
)

type CloseInstructionAccounts struct {
	Owner solana.AccountMeta
	Vault solana.AccountMeta
	State solana.AccountMeta
}

func NewCloseInstruction(owner, vault, state ed25519.PublicKey) solana.Instruction {
	var offset int

	data := make([]byte, CloseInstructionDataSize)
	putDiscriminator(data, closeInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(owner, true),
		solana.NewAccountMeta(vault, false),
		solana.NewAccountMeta(state, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DecompileClose(ixn solana.Instruction) (*CloseInstructionAccounts, error) {
	if !bytes.Equal(ixn.Program, PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}

	if len(ixn.Data) != CloseInstructionDataSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(ixn.Data, &discriminator, &offset)
	if !bytes.Equal(discriminator, closeInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	if len(ixn.Accounts) != CloseInstructionAccountsLen {
		return nil, ErrInvalidAccountList
	}
	if !bytes.Equal(ixn.Accounts[3].PublicKey, SYSTEM_PROGRAM_ID) {
		return nil, ErrInvalidAccountList
	}

	return &CloseInstructionAccounts{
		Owner: ixn.Accounts[0],
		Vault: ixn.Accounts[1],
		State: ixn.Accounts[2],
	}, nil
}
