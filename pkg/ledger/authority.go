package ledger

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/vault-server/pkg/solana"
)

// Authority is proof of control over an account, presented alongside a
// transfer or close operation.
type Authority interface {
	// Verify reports whether the authority controls the provided account
	Verify(account *AccountInfo) error
}

// SignatureAuthority attests that the holder of the account's private key
// signed the enclosing transaction. Signature verification itself is the
// host's responsibility and happens before instruction execution; by the
// time a SignatureAuthority is constructed, the signer flag on the account
// meta has already been checked.
type SignatureAuthority struct {
	Address ed25519.PublicKey
}

func (a *SignatureAuthority) Verify(account *AccountInfo) error {
	if !bytes.Equal(a.Address, account.Address) {
		return ErrInvalidAuthority
	}

	// Program-owned accounts can only be debited by their owning program
	if !bytes.Equal(account.Owner, SystemOwner) {
		return ErrInvalidAuthority
	}

	return nil
}

// DerivedAuthority is a non-key proof of control over a program-derived
// account: the seed tuple and bump that produced the account's address.
// It is never a private key. The ledger accepts it because the address was
// deliberately constructed to be unsignable by any external key.
type DerivedAuthority struct {
	Program ed25519.PublicKey
	Seeds   [][]byte
	Bump    uint8
}

func (a *DerivedAuthority) Verify(account *AccountInfo) error {
	// Only the owning program may present derived authority
	if !bytes.Equal(a.Program, account.Owner) {
		return ErrInvalidAuthority
	}

	derived, err := solana.CreateProgramAddress(a.Program, append(a.Seeds, []byte{a.Bump})...)
	if err != nil {
		return ErrInvalidAuthority
	}
	if !bytes.Equal(derived, account.Address) {
		return ErrInvalidAuthority
	}

	return nil
}
