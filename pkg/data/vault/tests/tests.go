package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/vault-server/pkg/data/vault"
	"github.com/code-payments/vault-server/pkg/database/query"
)

func RunTests(t *testing.T, s vault.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s vault.Store){
		testHappyPath,
		testStaleWrites,
		testUniqueIndices,
		testGetAllByState,
		testGetCountByState,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s vault.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		start := time.Now()

		ctx := context.Background()

		expected := &vault.Record{
			Address: "state",
			Bump:    253,

			VaultAddress: "vault",
			VaultBump:    254,

			Owner: "owner",

			State: vault.StateOpen,

			Block: 123456,
		}
		cloned := expected.Clone()

		// Validate the record initially doesn't exist

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, vault.ErrVaultNotFound, err)

		_, err = s.GetByVault(ctx, expected.VaultAddress)
		assert.Equal(t, vault.ErrVaultNotFound, err)

		_, err = s.GetByOwner(ctx, expected.Owner)
		assert.Equal(t, vault.ErrVaultNotFound, err)

		// Save the record

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.True(t, expected.LastUpdatedAt.After(start))

		// Ensure we can fetch the same record by all supported indices

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		actual, err = s.GetByVault(ctx, expected.VaultAddress)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		actual, err = s.GetByOwner(ctx, expected.Owner)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		// Update the record's state

		previousLastUpdatedTs := expected.LastUpdatedAt

		expected.State = vault.StateClosed
		expected.Block = expected.Block + 1
		cloned = expected.Clone()

		time.Sleep(time.Millisecond)
		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.LastUpdatedAt.After(previousLastUpdatedTs))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)
	})
}

func testStaleWrites(t *testing.T, s vault.Store) {
	t.Run("testStaleWrites", func(t *testing.T) {
		ctx := context.Background()

		expected := &vault.Record{
			Address: "state",
			Bump:    253,

			VaultAddress: "vault",
			VaultBump:    254,

			Owner: "owner",

			State: vault.StateOpen,

			Block: 100,
		}
		require.NoError(t, s.Save(ctx, expected))

		// Observing the same or an older block must not overwrite state

		for _, block := range []uint64{99, 100} {
			stale := expected.Clone()
			stale.State = vault.StateClosed
			stale.Block = block
			assert.Equal(t, vault.ErrStaleVaultState, s.Save(ctx, stale))
		}

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assert.Equal(t, vault.StateOpen, actual.State)
		assert.EqualValues(t, 100, actual.Block)
	})
}

func testUniqueIndices(t *testing.T, s vault.Store) {
	t.Run("testUniqueIndices", func(t *testing.T) {
		ctx := context.Background()

		existing := &vault.Record{
			Address: "state",
			Bump:    253,

			VaultAddress: "vault",
			VaultBump:    254,

			Owner: "owner",

			State: vault.StateOpen,

			Block: 100,
		}
		require.NoError(t, s.Save(ctx, existing))

		// A new state address cannot claim an already indexed vault or owner

		conflictingVault := existing.Clone()
		conflictingVault.Id = 0
		conflictingVault.Address = "state2"
		conflictingVault.Owner = "owner2"
		assert.Equal(t, vault.ErrVaultExists, s.Save(ctx, conflictingVault))

		conflictingOwner := existing.Clone()
		conflictingOwner.Id = 0
		conflictingOwner.Address = "state2"
		conflictingOwner.VaultAddress = "vault2"
		assert.Equal(t, vault.ErrVaultExists, s.Save(ctx, conflictingOwner))

		actual, err := s.GetByAddress(ctx, existing.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, existing, actual)
	})
}

func testGetAllByState(t *testing.T, s vault.Store) {
	t.Run("testGetAllByState", func(t *testing.T) {
		ctx := context.Background()

		var records []*vault.Record
		for i := 0; i < 10; i++ {
			record := &vault.Record{
				Address: fmt.Sprintf("state%d", i),
				Bump:    253,

				VaultAddress: fmt.Sprintf("vault%d", i),
				VaultBump:    254,

				Owner: fmt.Sprintf("owner%d", i),

				State: vault.StateOpen,

				Block: 123456,
			}
			if i >= 5 {
				record.State = vault.StateClosed
			}

			require.NoError(t, s.Save(ctx, record))
			records = append(records, record)
		}

		_, err := s.GetAllByState(ctx, vault.StateUnknown, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, vault.ErrVaultNotFound, err)

		actual, err := s.GetAllByState(ctx, vault.StateOpen, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assertEquivalentRecords(t, records[i], record)
		}

		actual, err = s.GetAllByState(ctx, vault.StateClosed, query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i, record := range actual {
			assertEquivalentRecords(t, records[9-i], record)
		}

		// Paged reads

		actual, err = s.GetAllByState(ctx, vault.StateOpen, query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 2)

		actual, err = s.GetAllByState(ctx, vault.StateOpen, query.ToCursor(actual[1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 3)
	})
}

func testGetCountByState(t *testing.T, s vault.Store) {
	t.Run("testGetCountByState", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.GetCountByState(ctx, vault.StateOpen)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 3; i++ {
			record := &vault.Record{
				Address: fmt.Sprintf("state%d", i),
				Bump:    253,

				VaultAddress: fmt.Sprintf("vault%d", i),
				VaultBump:    254,

				Owner: fmt.Sprintf("owner%d", i),

				State: vault.StateOpen,

				Block: 123456,
			}
			require.NoError(t, s.Save(ctx, record))
		}

		count, err = s.GetCountByState(ctx, vault.StateOpen)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = s.GetCountByState(ctx, vault.StateClosed)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *vault.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.VaultAddress, obj2.VaultAddress)
	assert.Equal(t, obj1.VaultBump, obj2.VaultBump)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.State, obj2.State)
	assert.Equal(t, obj1.Block, obj2.Block)
}
