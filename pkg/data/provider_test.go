package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/vault-server/pkg/cache"
	"github.com/code-payments/vault-server/pkg/data/vault"
	vault_memory_client "github.com/code-payments/vault-server/pkg/data/vault/memory"
)

func TestProvider_VaultCache(t *testing.T) {
	ctx := context.Background()
	dp := &DatabaseProvider{
		vaults:     vault_memory_client.New(),
		vaultCache: cache.NewCache(maxVaultCacheBudget),
	}

	record := &vault.Record{
		Address: "state_address",
		Bump:    255,

		VaultAddress: "vault_address",
		VaultBump:    254,

		Owner: "owner_address",

		State: vault.StateOpen,

		Block: 1,
	}
	require.NoError(t, dp.SaveVault(ctx, record))

	cached, err := dp.GetVaultByVault(ctx, "vault_address")
	require.NoError(t, err)
	assert.True(t, cached.IsOpen())

	// A write bypassing the provider isn't observed until the TTL lapses
	behindProvider := record.Clone()
	behindProvider.State = vault.StateClosed
	behindProvider.Block = 2
	require.NoError(t, dp.vaults.Save(ctx, behindProvider))

	cached, err = dp.GetVaultByVault(ctx, "vault_address")
	require.NoError(t, err)
	assert.True(t, cached.IsOpen())

	// A write through the provider refreshes the cache immediately
	updated := record.Clone()
	updated.State = vault.StateClosed
	updated.Block = 3
	require.NoError(t, dp.SaveVault(ctx, updated))

	cached, err = dp.GetVaultByVault(ctx, "vault_address")
	require.NoError(t, err)
	assert.True(t, cached.IsClosed())
}

func TestProvider_StaleWrite(t *testing.T) {
	ctx := context.Background()
	dp := NewTestDataProvider()

	record := &vault.Record{
		Address:      "state_address",
		VaultAddress: "vault_address",
		Owner:        "owner_address",
		State:        vault.StateOpen,
		Block:        10,
	}
	require.NoError(t, dp.SaveVault(ctx, record))

	stale := record.Clone()
	stale.Block = 5
	assert.Equal(t, vault.ErrStaleVaultState, dp.SaveVault(ctx, stale))
}

func TestProvider_NotFound(t *testing.T) {
	ctx := context.Background()
	dp := NewTestDataProvider()

	_, err := dp.GetVaultByOwner(ctx, "owner_address")
	assert.Equal(t, vault.ErrVaultNotFound, err)

	_, err = dp.GetVaultByVault(ctx, "vault_address")
	assert.Equal(t, vault.ErrVaultNotFound, err)
}
