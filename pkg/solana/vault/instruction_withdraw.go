package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/solana"
)

var withdrawInstructionDiscriminator = []byte{
	183, 18, 70, 156, 148, 109, 161, 34,
}

const (
	WithdrawInstructionArgsSize = 8 // amount

	WithdrawInstructionDataSize = (8 + // discriminator
		WithdrawInstructionArgsSize) // args

	WithdrawInstructionAccountsLen = 4
)

type WithdrawInstructionArgs struct {
	Amount uint64
}

type WithdrawInstructionAccounts struct {
	Owner solana.AccountMeta
	Vault solana.AccountMeta
	State solana.AccountMeta
}

func NewWithdrawInstruction(owner, vault, state ed25519.PublicKey, args *WithdrawInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, WithdrawInstructionDataSize)
	putDiscriminator(data, withdrawInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(owner, true),
		solana.NewAccountMeta(vault, false),
		solana.NewReadonlyAccountMeta(state, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

func DecompileWithdraw(ixn solana.Instruction) (*WithdrawInstructionArgs, *WithdrawInstructionAccounts, error) {
	if !bytes.Equal(ixn.Program, PROGRAM_ID) {
		return nil, nil, ErrInvalidProgram
	}

	if len(ixn.Data) != WithdrawInstructionDataSize {
		return nil, nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(ixn.Data, &discriminator, &offset)
	if !bytes.Equal(discriminator, withdrawInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	var args WithdrawInstructionArgs
	getUint64(ixn.Data, &args.Amount, &offset)

	if len(ixn.Accounts) != WithdrawInstructionAccountsLen {
		return nil, nil, ErrInvalidAccountList
	}
	if !bytes.Equal(ixn.Accounts[3].PublicKey, SYSTEM_PROGRAM_ID) {
		return nil, nil, ErrInvalidAccountList
	}

	return &args, &WithdrawInstructionAccounts{
		Owner: ixn.Accounts[0],
		Vault: ixn.Accounts[1],
		State: ixn.Accounts[2],
	}, nil
}
