package vault

import (
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/solana"
)

var (
	statePrefix = []byte("vault_state")
	vaultPrefix = []byte("vault")
)

type GetStateAddressArgs struct {
	Owner ed25519.PublicKey
}

type GetVaultAddressArgs struct {
	State ed25519.PublicKey
}

// GetStateAddress derives the address of the vault state record for an owner.
func GetStateAddress(args *GetStateAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		statePrefix,
		args.Owner,
	)
}

// GetVaultAddress derives the address of the fund-holding vault account from
// the state record address.
func GetVaultAddress(args *GetVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		vaultPrefix,
		args.State,
	)
}

// GetStateAddressFromBump recomputes the state record address using a
// previously stored bump seed. The result only matches the canonical state
// address when the bump is the one originally found during initialization.
func GetStateAddressFromBump(args *GetStateAddressArgs, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(
		PROGRAM_ID,
		statePrefix,
		args.Owner,
		[]byte{bump},
	)
}

// GetVaultAddressFromBump recomputes the vault account address using a
// previously stored bump seed.
func GetVaultAddressFromBump(args *GetVaultAddressArgs, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(
		PROGRAM_ID,
		vaultPrefix,
		args.State,
		[]byte{bump},
	)
}

// GetVaultDerivationSeeds returns the seed tuple that, together with the
// bump, proves program authority over the vault account to the transfer
// service.
func GetVaultDerivationSeeds(state ed25519.PublicKey) [][]byte {
	return [][]byte{
		vaultPrefix,
		state,
	}
}

// GetStateDerivationSeeds returns the seed tuple proving program authority
// over the state record account.
func GetStateDerivationSeeds(owner ed25519.PublicKey) [][]byte {
	return [][]byte{
		statePrefix,
		owner,
	}
}
