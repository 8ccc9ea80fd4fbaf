package ledger

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	ErrAccountNotFound    = errors.New("ledger: account not found")
	ErrAccountExists      = errors.New("ledger: account already exists")
	ErrInvalidAuthority   = errors.New("ledger: transfer authority rejected")
	ErrInsufficientFunds  = errors.New("ledger: insufficient funds")
	ErrBalanceOverflow    = errors.New("ledger: balance overflow")
	ErrNotRentExempt      = errors.New("ledger: account not rent exempt")
	ErrNonEmptyDataResize = errors.New("ledger: account data is immutable")
)

// SystemOwner is the owner assigned to plain balance-holding accounts. It
// matches the Solana system program id, which is the all-zero public key.
var SystemOwner = ed25519.PublicKey(make([]byte, ed25519.PublicKeySize))

// AccountInfo is the state of a single account as stored by the ledger.
type AccountInfo struct {
	Address ed25519.PublicKey

	// The program that owns the account and is permitted to mutate it
	Owner ed25519.PublicKey

	Lamports uint64
	Data     []byte
}

// CreateAccountParams describes a new account to be created and funded.
type CreateAccountParams struct {
	Address ed25519.PublicKey
	Owner   ed25519.PublicKey

	// Funder pays the initial lamports. Must authorize via a signature.
	Funder   ed25519.PublicKey
	Lamports uint64

	Data []byte
}

// Ledger is the external account store. It enforces account existence and
// balance rules, verifies transfer authorities, and applies each submitted
// operation atomically. Implementations serialize conflicting access to the
// same account, so callers never coordinate concurrency themselves.
type Ledger interface {
	// GetAccount returns the current state of an account
	GetAccount(ctx context.Context, address ed25519.PublicKey) (*AccountInfo, error)

	// CreateAccount creates and funds a new account. The initial balance
	// must meet the rent-exempt minimum for the account's data length.
	CreateAccount(ctx context.Context, params *CreateAccountParams) error

	// Transfer moves lamports between two accounts under the provided
	// authority over the source account.
	Transfer(ctx context.Context, source, destination ed25519.PublicKey, amount uint64, authority Authority) error

	// CloseAccount transfers an account's full balance, rent reserve
	// included, to the destination and removes the account.
	CloseAccount(ctx context.Context, address, destination ed25519.PublicKey, authority Authority) error

	// GetMinimumBalanceForRentExemption returns the rent floor for an
	// account holding dataLen bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)

	// ExecuteInTx runs fn atomically. If fn returns an error, none of the
	// mutations it performed are observable.
	ExecuteInTx(ctx context.Context, fn func(Ledger) error) error
}
