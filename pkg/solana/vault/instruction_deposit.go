package vault

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/solana"
)

var depositInstructionDiscriminator = []byte{
	242, 35, 198, 137, 82, 225, 242, 182,
}

const (
	DepositInstructionArgsSize = 8 // amount

	DepositInstructionDataSize = (8 + // discriminator
		DepositInstructionArgsSize) // args

	DepositInstructionAccountsLen = 4
)

type DepositInstructionArgs struct {
	Amount uint64
}

type DepositInstructionAccounts struct {
	Owner solana.AccountMeta
	Vault solana.AccountMeta
	State solana.AccountMeta
}

func NewDepositInstruction(owner, vault, state ed25519.PublicKey, args *DepositInstructionArgs) solana.Instruction {
	var offset int

	data := make([]byte, DepositInstructionDataSize)
	putDiscriminator(data, depositInstructionDiscriminator, &offset)
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

func DecompileDeposit(ixn solana.Instruction) (*DepositInstructionArgs, *DepositInstructionAccounts, error) {
	if !bytes.Equal(ixn.Program, PROGRAM_ID) {
		return nil, nil, ErrInvalidProgram
	}

	if len(ixn.Data) != DepositInstructionDataSize {
		return nil, nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(ixn.Data, &discriminator, &offset)
	if !bytes.Equal(discriminator, depositInstructionDiscriminator) {
		return nil, nil, ErrInvalidInstructionData
	}

	var args DepositInstructionArgs
	getUint64(ixn.Data, &args.Amount, &offset)

	if len(ixn.Accounts) != DepositInstructionAccountsLen {
		return nil, nil, ErrInvalidAccountList
	}
	if !bytes.Equal(ixn.Accounts[3].PublicKey, SYSTEM_PROGRAM_ID) {
		return nil, nil, ErrInvalidAccountList
	}

	return &args, &DepositInstructionAccounts{
		Owner: ixn.Accounts[0],
		Vault: ixn.Accounts[1],
		State: ixn.Accounts[2],
	}, nil
}
