package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/vault-server/pkg/data/vault"
	pgutil "github.com/code-payments/vault-server/pkg/database/postgres"
	q "github.com/code-payments/vault-server/pkg/database/query"
)

const (
	tableName = "vaultserver__core_vault"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Bump    uint   `db:"bump"`

	VaultAddress string `db:"vault_address"`
	VaultBump    uint   `db:"vault_bump"`

	Owner string `db:"owner"`

	State uint `db:"state"`

	Block uint64 `db:"block"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *vault.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Address: obj.Address,
		Bump:    uint(obj.Bump),

		VaultAddress: obj.VaultAddress,
		VaultBump:    uint(obj.VaultBump),

		Owner: obj.Owner,

		State: uint(obj.State),

		Block: obj.Block,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *vault.Record {
	return &vault.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Bump:    uint8(obj.Bump),

		VaultAddress: obj.VaultAddress,
		VaultBump:    uint8(obj.VaultBump),

		Owner: obj.Owner,

		State: vault.State(obj.State),

		Block: obj.Block,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(address, bump, vault_address, vault_bump, owner, state, block, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)

			ON CONFLICT (address)
			DO UPDATE
				SET state = $6, block = $7, last_updated_at = $8
				WHERE ` + tableName + `.address = $1 AND ` + tableName + `.vault_address = $3 AND ` + tableName + `.block < $7

			RETURNING
				id, address, bump, vault_address, vault_bump, owner, state, block, last_updated_at`

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Address,
			m.Bump,

			m.VaultAddress,
			m.VaultBump,

			m.Owner,

			m.State,

			m.Block,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		// The vault address and owner carry their own unique constraints. A
		// write claiming either under a new state address is rejected here
		// instead of being arbitered by the upsert.
		err = pgutil.CheckUniqueViolation(err, vault.ErrVaultExists)
		return pgutil.CheckNoRows(err, vault.ErrStaleVaultState)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, bump, vault_address, vault_bump, owner, state, block, last_updated_at
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
	}
	return res, nil
}

func dbGetByVault(ctx context.Context, db *sqlx.DB, vaultAddress string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, bump, vault_address, vault_bump, owner, state, block, last_updated_at
		FROM ` + tableName + `
		WHERE vault_address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, vaultAddress)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
	}
	return res, nil
}

func dbGetByOwner(ctx context.Context, db *sqlx.DB, owner string) (*model, error) {
	res := &model{}

	query := `SELECT
		id, address, bump, vault_address, vault_bump, owner, state, block, last_updated_at
		FROM ` + tableName + `
		WHERE owner = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, owner)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
	}
	return res, nil
}

func dbGetAllByState(ctx context.Context, db *sqlx.DB, state vault.State, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT
		id, address, bump, vault_address, vault_bump, owner, state, block, last_updated_at
		FROM ` + tableName + `
		WHERE (state = $1)
	`

	opts := []interface{}{state}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, vault.ErrVaultNotFound)
	}

	if len(res) == 0 {
		return nil, vault.ErrVaultNotFound
	}
	return res, nil
}

func dbGetCountByState(ctx context.Context, db *sqlx.DB, state vault.State) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE state = $1`
	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}

	return res, nil
}
