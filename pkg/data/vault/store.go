package vault

import (
	"context"

	"github.com/code-payments/vault-server/pkg/database/query"
)

type Store interface {
	// Save saves a vault's state. Writes observing an older block than the
	// stored record fail with ErrStaleVaultState.
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a vault's state by the state record address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByVault gets a vault's state by the fund-holding vault address
	GetByVault(ctx context.Context, vault string) (*Record, error)

	// GetByOwner gets a vault's state by its owner
	GetByOwner(ctx context.Context, owner string) (*Record, error)

	// GetAllByState gets all vaults in the provided state
	GetAllByState(ctx context.Context, state State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetCountByState gets the count of records in the provided state
	GetCountByState(ctx context.Context, state State) (uint64, error)
}
