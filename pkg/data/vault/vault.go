package vault

import (
	"time"

	"github.com/pkg/errors"
)

var (
	ErrVaultNotFound   = errors.New("no records could be found")
	ErrVaultExists     = errors.New("vault record already exists")
	ErrInvalidVault    = errors.New("invalid vault")
	ErrStaleVaultState = errors.New("vault state is stale")
)

type State uint8

const (
	StateUnknown State = iota
	StateOpen
	StateClosed
)

// Record mirrors the on-chain state of a single owner's vault. It is the
// server-side source of truth between ledger observations.
type Record struct {
	Id uint64

	Address string
	Bump    uint8

	VaultAddress string
	VaultBump    uint8

	Owner string

	State State

	Block uint64

	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.Wrap(ErrInvalidVault, "state address is required")
	}

	if len(r.VaultAddress) == 0 {
		return errors.Wrap(ErrInvalidVault, "vault address is required")
	}

	if len(r.Owner) == 0 {
		return errors.Wrap(ErrInvalidVault, "owner is required")
	}

	return nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Address: r.Address,
		Bump:    r.Bump,

		VaultAddress: r.VaultAddress,
		VaultBump:    r.VaultBump,

		Owner: r.Owner,

		State: r.State,

		Block: r.Block,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Bump = r.Bump

	dst.VaultAddress = r.VaultAddress
	dst.VaultBump = r.VaultBump

	dst.Owner = r.Owner

	dst.State = r.State

	dst.Block = r.Block

	dst.LastUpdatedAt = r.LastUpdatedAt
}

func (r *Record) IsOpen() bool {
	return r.State == StateOpen
}

func (r *Record) IsClosed() bool {
	return r.State == StateClosed
}

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}

	return "unknown"
}
