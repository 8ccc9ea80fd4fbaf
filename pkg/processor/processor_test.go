package processor

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/vault-server/pkg/common"
	"github.com/code-payments/vault-server/pkg/data"
	"github.com/code-payments/vault-server/pkg/ledger"
	ledger_memory "github.com/code-payments/vault-server/pkg/ledger/memory"
	vault_program "github.com/code-payments/vault-server/pkg/solana/vault"
	"github.com/code-payments/vault-server/pkg/testutil"
)

const (
	// Rent floors for the fixed account sizes used by the program
	stateRent = (128 + vault_program.VaultAccountSize) * 3480 * 2
	vaultRent = 128 * 3480 * 2
)

func setup(t *testing.T) (context.Context, *ledger_memory.Ledger, *Processor) {
	l := ledger_memory.New()
	return context.Background(), l, New(l, data.NewTestDataProvider())
}

func setupVault(t *testing.T, ctx context.Context, l *ledger_memory.Ledger, p *Processor, lamports uint64) *common.VaultAccounts {
	owner := testutil.NewRandomAccount(t)
	accounts, err := owner.GetVaultAccounts()
	require.NoError(t, err)

	l.Airdrop(owner.PublicKey().ToBytes(), lamports)

	require.NoError(t, p.Process(ctx, vault_program.NewInitializeInstruction(
		owner.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)))

	return accounts
}

func TestProcessor_Initialize_HappyPath(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	stateInfo, err := l.GetAccount(ctx, accounts.State.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vault_program.PROGRAM_ID, stateInfo.Owner)
	assert.EqualValues(t, stateRent, stateInfo.Lamports)

	var record vault_program.VaultAccount
	require.NoError(t, record.Unmarshal(stateInfo.Data))
	assert.Equal(t, accounts.StateBump, record.StateBump)
	assert.Equal(t, accounts.VaultBump, record.VaultBump)

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vault_program.PROGRAM_ID, vaultInfo.Owner)
	assert.EqualValues(t, vaultRent, vaultInfo.Lamports)
	assert.Empty(t, vaultInfo.Data)

	cached, err := p.data.GetVaultByOwner(ctx, accounts.Owner.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.True(t, cached.IsOpen())
	assert.Equal(t, accounts.State.PublicKey().ToBase58(), cached.Address)
	assert.Equal(t, accounts.StateBump, cached.Bump)
	assert.Equal(t, accounts.Vault.PublicKey().ToBase58(), cached.VaultAddress)
	assert.Equal(t, accounts.VaultBump, cached.VaultBump)
}

func TestProcessor_Initialize_AlreadyInitialized(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	err := p.Process(ctx, vault_program.NewInitializeInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	))
	assert.Equal(t, vault_program.ErrAccountAlreadyInitialized, err)
}

func TestProcessor_Initialize_InvalidStateAddress(t *testing.T) {
	ctx, l, p := setup(t)

	owner := testutil.NewRandomAccount(t)
	l.Airdrop(owner.PublicKey().ToBytes(), 10_000_000_000)

	err := p.Process(ctx, vault_program.NewInitializeInstruction(
		owner.PublicKey().ToBytes(),
		testutil.NewRandomAccount(t).PublicKey().ToBytes(),
	))
	assert.Equal(t, vault_program.ErrInvalidAddressDerivation, err)
}

func TestProcessor_Initialize_MissingSignature(t *testing.T) {
	ctx, l, p := setup(t)

	owner := testutil.NewRandomAccount(t)
	accounts, err := owner.GetVaultAccounts()
	require.NoError(t, err)

	l.Airdrop(owner.PublicKey().ToBytes(), 10_000_000_000)

	ixn := vault_program.NewInitializeInstruction(
		owner.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)
	ixn.Accounts[0].IsSigner = false

	assert.Equal(t, vault_program.ErrUnauthorized, p.Process(ctx, ixn))
}

func TestProcessor_Initialize_InsufficientFunds(t *testing.T) {
	ctx, l, p := setup(t)

	owner := testutil.NewRandomAccount(t)
	accounts, err := owner.GetVaultAccounts()
	require.NoError(t, err)

	l.Airdrop(owner.PublicKey().ToBytes(), 1)

	err = p.Process(ctx, vault_program.NewInitializeInstruction(
		owner.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	))
	assert.Equal(t, vault_program.ErrInsufficientFunds, err)

	// The failed attempt must not leave a partially created vault behind
	_, err = l.GetAccount(ctx, accounts.State.PublicKey().ToBytes())
	assert.Equal(t, ledger.ErrAccountNotFound, err)
	_, err = l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	assert.Equal(t, ledger.ErrAccountNotFound, err)
}

func TestProcessor_Deposit_HappyPath(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	ownerBefore, err := l.GetAccount(ctx, accounts.Owner.PublicKey().ToBytes())
	require.NoError(t, err)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	)))

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent+1_000_000, vaultInfo.Lamports)

	ownerAfter, err := l.GetAccount(ctx, accounts.Owner.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, ownerBefore.Lamports-1_000_000, ownerAfter.Lamports)

	cached, err := p.data.GetVaultByOwner(ctx, accounts.Owner.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.True(t, cached.IsOpen())
	assert.EqualValues(t, 2, cached.Block)
}

func TestProcessor_Deposit_InvalidAmount(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	err := p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 0},
	))
	assert.Equal(t, vault_program.ErrInvalidAmount, err)
}

func TestProcessor_Deposit_InsufficientFunds(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, stateRent+vaultRent+500_000)

	err := p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 2_000_000},
	))
	assert.Equal(t, vault_program.ErrInsufficientFunds, err)

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent, vaultInfo.Lamports)
}

func TestProcessor_Deposit_BeforeInitialize(t *testing.T) {
	ctx, _, p := setup(t)

	owner := testutil.NewRandomAccount(t)
	accounts, err := owner.GetVaultAccounts()
	require.NoError(t, err)

	err = p.Process(ctx, vault_program.NewDepositInstruction(
		owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	))
	assert.Equal(t, ledger.ErrAccountNotFound, err)
}

func TestProcessor_Deposit_BalanceOverflow(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	l.Airdrop(accounts.Vault.PublicKey().ToBytes(), math.MaxUint64-uint64(vaultRent)-100)

	err := p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000},
	))
	assert.Equal(t, vault_program.ErrInvalidAmount, err)
}

func TestProcessor_Withdraw_HappyPath(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 2_000_000},
	)))

	ownerBefore, err := l.GetAccount(ctx, accounts.Owner.PublicKey().ToBytes())
	require.NoError(t, err)

	require.NoError(t, p.Process(ctx, vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 1_500_000},
	)))

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent+500_000, vaultInfo.Lamports)

	ownerAfter, err := l.GetAccount(ctx, accounts.Owner.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, ownerBefore.Lamports+1_500_000, ownerAfter.Lamports)

	cached, err := p.data.GetVaultByOwner(ctx, accounts.Owner.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.EqualValues(t, 3, cached.Block)
}

func TestProcessor_Withdraw_InsufficientFunds(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	)))

	err := p.Process(ctx, vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 2_000_000},
	))
	assert.Equal(t, vault_program.ErrInsufficientFunds, err)

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent+1_000_000, vaultInfo.Lamports)
}

func TestProcessor_Withdraw_RentExemptionViolation(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	)))

	// Takes the vault below its rent floor without closing it
	err := p.Process(ctx, vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 1_200_000},
	))
	assert.Equal(t, vault_program.ErrRentExemptionViolation, err)

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent+1_000_000, vaultInfo.Lamports)
}

func TestProcessor_Withdraw_FullBalance(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	)))

	// Sweeping the entire balance, rent reserve included, is reserved for
	// close. A withdrawal can never leave a live vault below its rent floor.
	err := p.Process(ctx, vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: vaultRent + 1_000_000},
	))
	assert.Equal(t, vault_program.ErrRentExemptionViolation, err)

	vaultInfo, err := l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent+1_000_000, vaultInfo.Lamports)

	cached, err := p.data.GetVaultByOwner(ctx, accounts.Owner.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.True(t, cached.IsOpen())

	// Landing exactly on the floor is fine
	require.NoError(t, p.Process(ctx, vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 1_000_000},
	)))

	vaultInfo, err = l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, vaultRent, vaultInfo.Lamports)
}

func TestProcessor_Withdraw_InvalidVaultAddress(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	err := p.Process(ctx, vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		testutil.NewRandomAccount(t).PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 1},
	))
	assert.Equal(t, vault_program.ErrInvalidAddressDerivation, err)
}

func TestProcessor_Withdraw_WrongOwner(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	)))

	// A different signer presenting the victim's accounts fails derivation
	mallory := testutil.NewRandomAccount(t)
	l.Airdrop(mallory.PublicKey().ToBytes(), 1_000_000)

	err := p.Process(ctx, vault_program.NewWithdrawInstruction(
		mallory.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 1_000_000},
	))
	assert.Equal(t, vault_program.ErrInvalidAddressDerivation, err)
}

func TestProcessor_Withdraw_MissingSignature(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	ixn := vault_program.NewWithdrawInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.WithdrawInstructionArgs{Amount: 1},
	)
	ixn.Accounts[0].IsSigner = false

	assert.Equal(t, vault_program.ErrUnauthorized, p.Process(ctx, ixn))
}

func TestProcessor_Close_HappyPath(t *testing.T) {
	ctx, l, p := setup(t)

	var initialBalance uint64 = 10_000_000_000
	accounts := setupVault(t, ctx, l, p, initialBalance)

	require.NoError(t, p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 2_000_000},
	)))

	require.NoError(t, p.Process(ctx, vault_program.NewCloseInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)))

	// Everything comes back, the rent reserves included
	ownerInfo, err := l.GetAccount(ctx, accounts.Owner.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.EqualValues(t, initialBalance, ownerInfo.Lamports)

	_, err = l.GetAccount(ctx, accounts.Vault.PublicKey().ToBytes())
	assert.Equal(t, ledger.ErrAccountNotFound, err)
	_, err = l.GetAccount(ctx, accounts.State.PublicKey().ToBytes())
	assert.Equal(t, ledger.ErrAccountNotFound, err)

	cached, err := p.data.GetVaultByOwner(ctx, accounts.Owner.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.True(t, cached.IsClosed())
}

func TestProcessor_Close_ThenOperate(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewCloseInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)))

	err := p.Process(ctx, vault_program.NewDepositInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
		&vault_program.DepositInstructionArgs{Amount: 1_000_000},
	))
	assert.Equal(t, ledger.ErrAccountNotFound, err)

	err = p.Process(ctx, vault_program.NewCloseInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	))
	assert.Equal(t, ledger.ErrAccountNotFound, err)
}

func TestProcessor_Close_MissingSignature(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	ixn := vault_program.NewCloseInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)
	ixn.Accounts[0].IsSigner = false

	assert.Equal(t, vault_program.ErrUnauthorized, p.Process(ctx, ixn))
}

func TestProcessor_Reinitialize_AfterClose(t *testing.T) {
	ctx, l, p := setup(t)

	accounts := setupVault(t, ctx, l, p, 10_000_000_000)

	require.NoError(t, p.Process(ctx, vault_program.NewCloseInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.Vault.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)))

	// Same seeds, same addresses, fresh lifecycle
	require.NoError(t, p.Process(ctx, vault_program.NewInitializeInstruction(
		accounts.Owner.PublicKey().ToBytes(),
		accounts.State.PublicKey().ToBytes(),
	)))

	cached, err := p.data.GetVaultByOwner(ctx, accounts.Owner.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.True(t, cached.IsOpen())
}
