package common

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	vault_program "github.com/code-payments/vault-server/pkg/solana/vault"
)

type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

// VaultAccounts is the full set of derived accounts bound to a vault owner.
type VaultAccounts struct {
	Owner *Account

	State     *Account
	StateBump uint8

	Vault     *Account
	VaultBump uint8
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	publicKeyBytes := ed25519.PrivateKey(privateKey.ToBytes()).Public().(ed25519.PublicKey)
	publicKey, err := NewKeyFromBytes(publicKeyBytes)
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, errors.New("private key not available")
	}

	signature := ed25519.Sign(a.privateKey.ToBytes(), message)
	return signature, nil
}

// GetVaultAccounts derives the state record and vault addresses for an owner
// with a fresh bump search.
func (a *Account) GetVaultAccounts() (*VaultAccounts, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}

	stateAddress, stateBump, err := vault_program.GetStateAddress(&vault_program.GetStateAddressArgs{
		Owner: a.publicKey.ToBytes(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting state address")
	}

	vaultAddress, vaultBump, err := vault_program.GetVaultAddress(&vault_program.GetVaultAddressArgs{
		State: stateAddress,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error getting vault address")
	}

	stateAccount, err := NewAccountFromPublicKeyBytes(stateAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid state address")
	}

	vaultAccount, err := NewAccountFromPublicKeyBytes(vaultAddress)
	if err != nil {
		return nil, errors.Wrap(err, "invalid vault address")
	}

	return &VaultAccounts{
		Owner: a,

		State:     stateAccount,
		StateBump: stateBump,

		Vault:     vaultAccount,
		VaultBump: vaultBump,
	}, nil
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.publicKey.Validate(); err != nil {
		return errors.Wrap(err, "invalid public key")
	}

	if len(a.publicKey.ToBytes()) != ed25519.PublicKeySize {
		return errors.New("public key must be an ed25519 public key")
	}

	if a.privateKey == nil {
		return nil
	}

	if err := a.privateKey.Validate(); err != nil {
		return errors.Wrap(err, "invalid private key")
	}

	publicKeyBytes := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
	derived, err := NewKeyFromBytes(publicKeyBytes)
	if err != nil {
		return errors.Wrap(err, "invalid private key")
	}
	if a.publicKey.ToBase58() != derived.ToBase58() {
		return errors.New("private key doesn't map to public key")
	}

	return nil
}

func (a *Account) String() string {
	return a.publicKey.ToBase58()
}
