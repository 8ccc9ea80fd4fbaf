package processor

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/ledger"
	vault_program "github.com/code-payments/vault-server/pkg/solana/vault"
)

// verifiedVault is the result of proving that a supplied (owner, state,
// vault) account triple is internally consistent: the state record exists,
// is owned by the vault program, and both supplied addresses match the
// addresses recomputed from the bump seeds persisted in the record. Every
// instruction operating on an existing vault goes through this check before
// any balance is touched.
type verifiedVault struct {
	owner ed25519.PublicKey
	state ed25519.PublicKey
	vault ed25519.PublicKey

	record *vault_program.VaultAccount
}

func loadVerifiedVault(ctx context.Context, tx ledger.Ledger, owner, state, vault ed25519.PublicKey) (*verifiedVault, error) {
	info, err := tx.GetAccount(ctx, state)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(info.Owner, vault_program.PROGRAM_ID) {
		return nil, vault_program.ErrInvalidAccountData
	}

	var record vault_program.VaultAccount
	if err := record.Unmarshal(info.Data); err != nil {
		return nil, err
	}

	// Recompute both addresses from the stored bumps. A stored bump always
	// reproduces exactly one valid address, so address equality proves the
	// supplied accounts belong to this owner's vault.
	recomputedState, err := vault_program.GetStateAddressFromBump(
		&vault_program.GetStateAddressArgs{Owner: owner},
		record.StateBump,
	)
	if err != nil || !bytes.Equal(recomputedState, state) {
		return nil, vault_program.ErrInvalidAddressDerivation
	}

	recomputedVault, err := vault_program.GetVaultAddressFromBump(
		&vault_program.GetVaultAddressArgs{State: state},
		record.VaultBump,
	)
	if err != nil || !bytes.Equal(recomputedVault, vault) {
		return nil, vault_program.ErrInvalidAddressDerivation
	}

	return &verifiedVault{
		owner:  owner,
		state:  state,
		vault:  vault,
		record: &record,
	}, nil
}

// vaultAuthority builds the derived authority proving program control over
// the fund-holding vault account.
func (v *verifiedVault) vaultAuthority() *ledger.DerivedAuthority {
	return &ledger.DerivedAuthority{
		Program: vault_program.PROGRAM_ID,
		Seeds:   vault_program.GetVaultDerivationSeeds(v.state),
		Bump:    v.record.VaultBump,
	}
}

// stateAuthority builds the derived authority proving program control over
// the state record account.
func (v *verifiedVault) stateAuthority() *ledger.DerivedAuthority {
	return &ledger.DerivedAuthority{
		Program: vault_program.PROGRAM_ID,
		Seeds:   vault_program.GetStateDerivationSeeds(v.owner),
		Bump:    v.record.StateBump,
	}
}
