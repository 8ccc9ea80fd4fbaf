package memory

import (
	"context"
	"crypto/ed25519"
	"math"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/code-payments/vault-server/pkg/ledger"
)

const (
	// Rent parameters matching the Solana defaults
	accountStorageOverhead  = 128
	lamportsPerByteYear     = 3480
	rentExemptionThresholdY = 2
)

// Ledger is a fully in-memory ledger.Ledger. It applies each operation under
// a single lock, giving the same total ordering guarantee the external
// transaction engine would provide.
type Ledger struct {
	mu       sync.Mutex
	accounts map[string]*ledger.AccountInfo
}

// New returns a new in memory ledger.Ledger
func New() *Ledger {
	return &Ledger{
		accounts: make(map[string]*ledger.AccountInfo),
	}
}

// Airdrop credits lamports to an address, creating a system-owned account if
// one doesn't exist. Intended for seeding test fixtures.
func (l *Ledger) Airdrop(address ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := base58.Encode(address)
	if item, ok := l.accounts[key]; ok {
		item.Lamports += lamports
		return
	}

	l.accounts[key] = &ledger.AccountInfo{
		Address:  clone(address),
		Owner:    ledger.SystemOwner,
		Lamports: lamports,
	}
}

// GetAccount implements ledger.Ledger.GetAccount
func (l *Ledger) GetAccount(_ context.Context, address ed25519.PublicKey) (*ledger.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.accounts[base58.Encode(address)]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return cloneAccount(item), nil
}

// CreateAccount implements ledger.Ledger.CreateAccount
func (l *Ledger) CreateAccount(_ context.Context, params *ledger.CreateAccountParams) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := base58.Encode(params.Address)
	if _, ok := l.accounts[key]; ok {
		return ledger.ErrAccountExists
	}

	if params.Lamports < l.rentMinimum(uint64(len(params.Data))) {
		return ledger.ErrNotRentExempt
	}

	funder, ok := l.accounts[base58.Encode(params.Funder)]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	if funder.Lamports < params.Lamports {
		return ledger.ErrInsufficientFunds
	}

	funder.Lamports -= params.Lamports
	l.accounts[key] = &ledger.AccountInfo{
		Address:  clone(params.Address),
		Owner:    clone(params.Owner),
		Lamports: params.Lamports,
		Data:     clone(params.Data),
	}

	return nil
}

// Transfer implements ledger.Ledger.Transfer
func (l *Ledger) Transfer(_ context.Context, source, destination ed25519.PublicKey, amount uint64, authority ledger.Authority) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.accounts[base58.Encode(source)]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	dst, ok := l.accounts[base58.Encode(destination)]
	if !ok {
		return ledger.ErrAccountNotFound
	}

	if err := authority.Verify(src); err != nil {
		return err
	}

	if src.Lamports < amount {
		return ledger.ErrInsufficientFunds
	}

	// A transfer must leave the source rent exempt. Emptying an account
	// entirely goes through CloseAccount.
	remaining := src.Lamports - amount
	if remaining < l.rentMinimum(uint64(len(src.Data))) {
		return ledger.ErrNotRentExempt
	}

	if dst.Lamports > math.MaxUint64-amount {
		return ledger.ErrBalanceOverflow
	}

	src.Lamports = remaining
	dst.Lamports += amount

	return nil
}

// CloseAccount implements ledger.Ledger.CloseAccount
func (l *Ledger) CloseAccount(_ context.Context, address, destination ed25519.PublicKey, authority ledger.Authority) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := base58.Encode(address)
	item, ok := l.accounts[key]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	dst, ok := l.accounts[base58.Encode(destination)]
	if !ok {
		return ledger.ErrAccountNotFound
	}

	if err := authority.Verify(item); err != nil {
		return err
	}

	if dst.Lamports > math.MaxUint64-item.Lamports {
		return ledger.ErrBalanceOverflow
	}

	dst.Lamports += item.Lamports
	delete(l.accounts, key)

	return nil
}

// GetMinimumBalanceForRentExemption implements ledger.Ledger.GetMinimumBalanceForRentExemption
func (l *Ledger) GetMinimumBalanceForRentExemption(_ context.Context, dataLen uint64) (uint64, error) {
	return l.rentMinimum(dataLen), nil
}

// ExecuteInTx implements ledger.Ledger.ExecuteInTx
func (l *Ledger) ExecuteInTx(_ context.Context, fn func(ledger.Ledger) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	overlay := &Ledger{
		accounts: make(map[string]*ledger.AccountInfo, len(l.accounts)),
	}
	for key, item := range l.accounts {
		overlay.accounts[key] = cloneAccount(item)
	}

	if err := fn(overlay); err != nil {
		return err
	}

	l.accounts = overlay.accounts

	return nil
}

func (l *Ledger) rentMinimum(dataLen uint64) uint64 {
	return (accountStorageOverhead + dataLen) * lamportsPerByteYear * rentExemptionThresholdY
}

func clone(value []byte) []byte {
	if value == nil {
		return nil
	}
	cloned := make([]byte, len(value))
	copy(cloned, value)
	return cloned
}

func cloneAccount(item *ledger.AccountInfo) *ledger.AccountInfo {
	return &ledger.AccountInfo{
		Address:  clone(item.Address),
		Owner:    clone(item.Owner),
		Lamports: item.Lamports,
		Data:     clone(item.Data),
	}
}
