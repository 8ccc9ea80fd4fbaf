package vault

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/vault-server/pkg/solana"
)

func generateKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}

func TestInitializeInstruction_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 2)

	ixn := NewInitializeInstruction(keys[0], keys[1])
	assert.EqualValues(t, PROGRAM_ID, ixn.Program)
	require.Len(t, ixn.Accounts, InitializeInstructionAccountsLen)
	assert.True(t, ixn.Accounts[0].IsSigner)

	accounts, err := DecompileInitialize(ixn)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], accounts.Owner.PublicKey)
	assert.EqualValues(t, keys[1], accounts.State.PublicKey)
}

func TestDepositInstruction_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 3)

	ixn := NewDepositInstruction(keys[0], keys[1], keys[2], &DepositInstructionArgs{
		Amount: 1_000_000,
	})

	args, accounts, err := DecompileDeposit(ixn)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, args.Amount)
	assert.EqualValues(t, keys[0], accounts.Owner.PublicKey)
	assert.EqualValues(t, keys[1], accounts.Vault.PublicKey)
	assert.EqualValues(t, keys[2], accounts.State.PublicKey)
}

func TestWithdrawInstruction_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 3)

	ixn := NewWithdrawInstruction(keys[0], keys[1], keys[2], &WithdrawInstructionArgs{
		Amount: 500_000,
	})

	args, accounts, err := DecompileWithdraw(ixn)
	require.NoError(t, err)
	assert.EqualValues(t, 500_000, args.Amount)
	assert.EqualValues(t, keys[0], accounts.Owner.PublicKey)
	assert.EqualValues(t, keys[1], accounts.Vault.PublicKey)
	assert.EqualValues(t, keys[2], accounts.State.PublicKey)
}

func TestCloseInstruction_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 3)

	ixn := NewCloseInstruction(keys[0], keys[1], keys[2])

	accounts, err := DecompileClose(ixn)
	require.NoError(t, err)
	assert.EqualValues(t, keys[0], accounts.Owner.PublicKey)
	assert.EqualValues(t, keys[1], accounts.Vault.PublicKey)
	assert.EqualValues(t, keys[2], accounts.State.PublicKey)
}

func TestDecompile_Mismatches(t *testing.T) {
	keys := generateKeys(t, 3)

	ixn := NewDepositInstruction(keys[0], keys[1], keys[2], &DepositInstructionArgs{
		Amount: 1,
	})

	// Wrong program
	foreign := ixn
	foreign.Program = keys[0]
	_, _, err := DecompileDeposit(foreign)
	assert.Equal(t, ErrInvalidProgram, err)

	// Wrong instruction discriminator
	_, _, err = DecompileWithdraw(ixn)
	assert.Equal(t, ErrInvalidInstructionData, err)

	// Truncated data
	truncated := ixn
	truncated.Data = ixn.Data[:len(ixn.Data)-1]
	_, _, err = DecompileDeposit(truncated)
	assert.Equal(t, ErrInvalidInstructionData, err)

	// Missing system program account
	badAccounts := ixn
	badAccounts.Accounts = append([]solana.AccountMeta{}, ixn.Accounts...)
	badAccounts.Accounts[3] = solana.NewReadonlyAccountMeta(keys[0], false)
	_, _, err = DecompileDeposit(badAccounts)
	assert.Equal(t, ErrInvalidAccountList, err)
}

func TestGetInstructionType(t *testing.T) {
	keys := generateKeys(t, 3)

	for _, tc := range []struct {
		ixn      solana.Instruction
		expected InstructionType
	}{
		{NewInitializeInstruction(keys[0], keys[2]), InstructionTypeInitialize},
		{NewDepositInstruction(keys[0], keys[1], keys[2], &DepositInstructionArgs{Amount: 1}), InstructionTypeDeposit},
		{NewWithdrawInstruction(keys[0], keys[1], keys[2], &WithdrawInstructionArgs{Amount: 1}), InstructionTypeWithdraw},
		{NewCloseInstruction(keys[0], keys[1], keys[2]), InstructionTypeClose},
	} {
		actual, err := GetInstructionType(tc.ixn)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual)
	}

	foreign := NewCloseInstruction(keys[0], keys[1], keys[2])
	foreign.Program = keys[0]
	_, err := GetInstructionType(foreign)
	assert.Equal(t, ErrInvalidProgram, err)

	unknown := NewCloseInstruction(keys[0], keys[1], keys[2])
	unknown.Data = []byte{0, 1, 2, 3, 4, 5, 6, 7}
	_, err = GetInstructionType(unknown)
	assert.Equal(t, ErrInvalidInstructionData, err)
}
