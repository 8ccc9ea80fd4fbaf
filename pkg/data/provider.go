package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/code-payments/vault-server/pkg/cache"
	"github.com/code-payments/vault-server/pkg/data/vault"
	vault_memory_client "github.com/code-payments/vault-server/pkg/data/vault/memory"
	vault_postgres_client "github.com/code-payments/vault-server/pkg/data/vault/postgres"
	pg "github.com/code-payments/vault-server/pkg/database/postgres"
	"github.com/code-payments/vault-server/pkg/database/query"
)

const (
	maxVaultCacheBudget = 100000

	vaultCacheTTL = 5 * time.Second
)

type vaultCacheEntry struct {
	mu            sync.RWMutex
	record        *vault.Record
	lastUpdatedAt time.Time
}

// Provider is the server-side view of vault records. Reads by vault address
// are served through a TTL cache since that's the hot path for balance
// lookups.
type Provider interface {
	SaveVault(ctx context.Context, record *vault.Record) error

	GetVaultByAddress(ctx context.Context, address string) (*vault.Record, error)
	GetVaultByVault(ctx context.Context, address string) (*vault.Record, error)
	GetVaultByOwner(ctx context.Context, owner string) (*vault.Record, error)

	GetAllVaultsByState(ctx context.Context, state vault.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*vault.Record, error)
	GetVaultCountByState(ctx context.Context, state vault.State) (uint64, error)
}

type DatabaseProvider struct {
	vaults vault.Store

	vaultCache cache.Cache
}

func NewDatabaseProvider(dbConfig *pg.Config) (Provider, error) {
	db, err := pg.NewWithUsernameAndPassword(
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Host,
		fmt.Sprint(dbConfig.Port),
		dbConfig.DbName,
	)
	if err != nil {
		return nil, err
	}

	if dbConfig.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	}
	if dbConfig.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(dbConfig.MaxIdleConnections)
	}
	db.SetConnMaxIdleTime(time.Hour)
	db.SetConnMaxLifetime(time.Hour)

	return &DatabaseProvider{
		vaults: vault_postgres_client.New(db),

		vaultCache: cache.NewCache(maxVaultCacheBudget),
	}, nil
}

func NewTestDataProvider() Provider {
	return &DatabaseProvider{
		vaults: vault_memory_client.New(),

		vaultCache: nil, // Shouldn't be used for tests
	}
}

func (dp *DatabaseProvider) SaveVault(ctx context.Context, record *vault.Record) error {
	if err := dp.vaults.Save(ctx, record); err != nil {
		return err
	}

	// Don't use a cache if it hasn't been setup (eg. test implementation)
	if dp.vaultCache == nil {
		return nil
	}

	cached, ok := dp.vaultCache.Retrieve(record.VaultAddress)
	if ok {
		cacheEntry := cached.(*vaultCacheEntry)
		cacheEntry.mu.Lock()
		cacheEntry.record = record.Clone()
		cacheEntry.lastUpdatedAt = time.Now()
		cacheEntry.mu.Unlock()
	} else {
		cacheEntry := &vaultCacheEntry{
			record:        record.Clone(),
			lastUpdatedAt: time.Now(),
		}
		dp.vaultCache.Insert(record.VaultAddress, cacheEntry, 1)
	}

	return nil
}

func (dp *DatabaseProvider) GetVaultByAddress(ctx context.Context, address string) (*vault.Record, error) {
	return dp.vaults.GetByAddress(ctx, address)
}

func (dp *DatabaseProvider) GetVaultByVault(ctx context.Context, address string) (*vault.Record, error) {
	// Don't use a cache if it hasn't been setup (eg. test implementation)
	if dp.vaultCache == nil {
		return dp.vaults.GetByVault(ctx, address)
	}

	cached, ok := dp.vaultCache.Retrieve(address)
	if ok {
		// First do an optimized cache value check using a read lock
		cacheEntry := cached.(*vaultCacheEntry)
		cacheEntry.mu.RLock()
		if time.Since(cacheEntry.lastUpdatedAt) < vaultCacheTTL {
			cacheEntry.mu.RUnlock()
			return cacheEntry.record.Clone(), nil
		}
		cacheEntry.mu.RUnlock()

		// Cache value is stale, so acquire the write lock in an attempt
		// to refresh the value.
		cacheEntry.mu.Lock()
		defer cacheEntry.mu.Unlock()

		// Check the cache value state again in the event we lost the race to
		// update the value
		if time.Since(cacheEntry.lastUpdatedAt) < vaultCacheTTL {
			return cacheEntry.record.Clone(), nil
		}

		// Cached value is still stale, so fetch from the DB
		record, err := dp.vaults.GetByVault(ctx, address)
		if err == nil {
			cacheEntry.record = record.Clone()
			cacheEntry.lastUpdatedAt = time.Now()
		}
		return record, err
	}

	// Record not cached, so fetch it and insert the initial cache entry
	record, err := dp.vaults.GetByVault(ctx, address)
	if err == nil {
		cacheEntry := &vaultCacheEntry{
			record:        record.Clone(),
			lastUpdatedAt: time.Now(),
		}
		dp.vaultCache.Insert(address, cacheEntry, 1)
	}
	return record, err
}

func (dp *DatabaseProvider) GetVaultByOwner(ctx context.Context, owner string) (*vault.Record, error) {
	return dp.vaults.GetByOwner(ctx, owner)
}

func (dp *DatabaseProvider) GetAllVaultsByState(ctx context.Context, state vault.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*vault.Record, error) {
	return dp.vaults.GetAllByState(ctx, state, cursor, limit, direction)
}

func (dp *DatabaseProvider) GetVaultCountByState(ctx context.Context, state vault.State) (uint64, error) {
	return dp.vaults.GetCountByState(ctx, state)
}
