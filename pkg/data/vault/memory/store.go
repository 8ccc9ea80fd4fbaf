package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/vault-server/pkg/data/vault"
	"github.com/code-payments/vault-server/pkg/database/query"
)

type store struct {
	mu      sync.Mutex
	records []*vault.Record
	last    uint64
}

type ById []*vault.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

// New returns a new in memory vault.Store
func New() vault.Store {
	return &store{}
}

// Save implements vault.Store.Save
func (s *store) Save(_ context.Context, data *vault.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	if item := s.findByAddress(data.Address); item != nil {
		if data.Block <= item.Block {
			return vault.ErrStaleVaultState
		}

		item.State = data.State
		item.Block = data.Block
		item.LastUpdatedAt = time.Now()

		item.CopyTo(data)
	} else {
		for _, item := range s.records {
			if item.VaultAddress == data.VaultAddress || item.Owner == data.Owner {
				return vault.ErrVaultExists
			}
		}

		if data.Id == 0 {
			data.Id = s.last
		}
		data.LastUpdatedAt = time.Now()
		c := data.Clone()
		s.records = append(s.records, c)
	}

	return nil
}

// GetByAddress implements vault.Store.GetByAddress
func (s *store) GetByAddress(_ context.Context, address string) (*vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findByAddress(address); item != nil {
		return item.Clone(), nil
	}
	return nil, vault.ErrVaultNotFound
}

// GetByVault implements vault.Store.GetByVault
func (s *store) GetByVault(_ context.Context, vaultAddress string) (*vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.VaultAddress == vaultAddress {
			return item.Clone(), nil
		}
	}
	return nil, vault.ErrVaultNotFound
}

// GetByOwner implements vault.Store.GetByOwner
func (s *store) GetByOwner(_ context.Context, owner string) (*vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Owner == owner {
			return item.Clone(), nil
		}
	}
	return nil, vault.ErrVaultNotFound
}

// GetAllByState implements vault.Store.GetAllByState
func (s *store) GetAllByState(_ context.Context, state vault.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*vault.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit == 0 {
		limit = 100
	}

	var start uint64
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	} else if direction == query.Descending {
		start = s.last + 1
	}

	var res []*vault.Record
	for _, item := range s.records {
		if item.State != state {
			continue
		}

		if direction == query.Ascending && item.Id <= start {
			continue
		}
		if direction == query.Descending && item.Id >= start {
			continue
		}

		res = append(res, item.Clone())
	}

	if len(res) == 0 {
		return nil, vault.ErrVaultNotFound
	}

	sort.Sort(ById(res))
	if direction == query.Descending {
		for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
			res[i], res[j] = res[j], res[i]
		}
	}

	if uint64(len(res)) > limit {
		res = res[:limit]
	}

	return res, nil
}

// GetCountByState implements vault.Store.GetCountByState
func (s *store) GetCountByState(_ context.Context, state vault.State) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.records {
		if item.State == state {
			count++
		}
	}
	return count, nil
}

func (s *store) findByAddress(address string) *vault.Record {
	for _, item := range s.records {
		if item.Address == address {
			return item
		}
	}
	return nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.last = 0
}
