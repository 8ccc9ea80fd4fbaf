package common

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_KeyRoundTrip(t *testing.T) {
	account, err := NewRandomAccount()
	require.NoError(t, err)

	fromString, err := NewAccountFromPublicKeyString(account.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey().ToBase58(), fromString.PublicKey().ToBase58())
	assert.Nil(t, fromString.PrivateKey())

	fromBytes, err := NewAccountFromPublicKeyBytes(account.PublicKey().ToBytes())
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey().ToBase58(), fromBytes.PublicKey().ToBase58())
}

func TestAccount_Sign(t *testing.T) {
	account, err := NewRandomAccount()
	require.NoError(t, err)

	message := []byte("message")
	signature, err := account.Sign(message)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(account.PublicKey().ToBytes(), message, signature))

	withoutPrivateKey, err := NewAccountFromPublicKey(account.PublicKey())
	require.NoError(t, err)
	_, err = withoutPrivateKey.Sign(message)
	assert.Error(t, err)
}

func TestAccount_GetVaultAccounts(t *testing.T) {
	owner, err := NewAccountFromPublicKeyString("Bz1EdzX1n4Ng5FxL3NUzGWE7x2tG3jqdExdNHr1xua8u")
	require.NoError(t, err)

	accounts, err := owner.GetVaultAccounts()
	require.NoError(t, err)

	assert.Equal(t, owner.PublicKey().ToBase58(), accounts.Owner.PublicKey().ToBase58())

	assert.Equal(t, "7kdRixxNaUUJAU8vm2YxsDWMd2kvCK194VYRjHhTttLX", accounts.State.PublicKey().ToBase58())
	assert.EqualValues(t, 253, accounts.StateBump)

	assert.Equal(t, "8kS7oi1jY5RKRAGCk68sd9tsfZ18NDm7kcpvdLEJn2M", accounts.Vault.PublicKey().ToBase58())
	assert.EqualValues(t, 254, accounts.VaultBump)
}

func TestAccount_Validate(t *testing.T) {
	_, err := NewAccountFromPublicKeyBytes([]byte("too short"))
	assert.Error(t, err)

	mismatchedPublicKey, err := NewRandomAccount()
	require.NoError(t, err)
	otherAccount, err := NewRandomAccount()
	require.NoError(t, err)

	invalid := &Account{
		publicKey:  mismatchedPublicKey.PublicKey(),
		privateKey: otherAccount.PrivateKey(),
	}
	assert.Error(t, invalid.Validate())
}
