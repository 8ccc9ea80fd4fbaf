package processor

import (
	"bytes"
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/vault-server/pkg/data"
	vault_store "github.com/code-payments/vault-server/pkg/data/vault"
	"github.com/code-payments/vault-server/pkg/ledger"
	"github.com/code-payments/vault-server/pkg/metrics"
	"github.com/code-payments/vault-server/pkg/solana"
	vault_program "github.com/code-payments/vault-server/pkg/solana/vault"
	sync_util "github.com/code-payments/vault-server/pkg/sync"
)

const (
	metricsStructName = "processor.Processor"

	instructionProcessedEventName       = "VaultInstructionProcessed"
	instructionCountMetricName          = "vault_instructions_processed"
	instructionProcessingTimeMetricName = "vault_instruction_processing_time"
)

// Processor executes vault program instructions against an external ledger.
// Each instruction is applied atomically: either every balance movement and
// account mutation it requires takes effect, or none do.
type Processor struct {
	log    *logrus.Entry
	ledger ledger.Ledger
	data   data.Provider

	vaultLocks *sync_util.StripedLock

	block uint64
}

func New(l ledger.Ledger, data data.Provider) *Processor {
	return &Processor{
		log:    logrus.StandardLogger().WithField("type", metricsStructName),
		ledger: l,
		data:   data,

		vaultLocks: sync_util.NewStripedLock(1024),
	}
}

// Process validates and executes a single vault instruction.
func (p *Processor) Process(ctx context.Context, ixn solana.Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Process")
	defer tracer.End()

	start := time.Now()

	instructionType, err := vault_program.GetInstructionType(ixn)
	if err != nil {
		tracer.OnError(err)
		return err
	}
	tracer.AddAttribute("instruction", instructionType.String())

	log := p.log.WithFields(logrus.Fields{
		"method":      "Process",
		"instruction": instructionType.String(),
	})

	// Serialize instructions touching the same vault
	stateAccountIndex := 2
	if instructionType == vault_program.InstructionTypeInitialize {
		stateAccountIndex = 1
	}
	if len(ixn.Accounts) <= stateAccountIndex {
		return vault_program.ErrInvalidAccountList
	}
	vaultLock := p.vaultLocks.Get(ixn.Accounts[stateAccountIndex].PublicKey)
	vaultLock.Lock()
	defer vaultLock.Unlock()

	err = p.ledger.ExecuteInTx(ctx, func(tx ledger.Ledger) error {
		switch instructionType {
		case vault_program.InstructionTypeInitialize:
			return p.processInitialize(ctx, tx, ixn)
		case vault_program.InstructionTypeDeposit:
			return p.processDeposit(ctx, tx, ixn)
		case vault_program.InstructionTypeWithdraw:
			return p.processWithdraw(ctx, tx, ixn)
		case vault_program.InstructionTypeClose:
			return p.processClose(ctx, tx, ixn)
		}
		return vault_program.ErrInvalidInstructionData
	})
	if err != nil {
		log.WithError(err).Info("instruction rejected")
		tracer.OnError(err)
		return err
	}

	metrics.RecordEvent(ctx, instructionProcessedEventName, map[string]interface{}{
		"instruction": instructionType.String(),
	})
	metrics.RecordCount(ctx, instructionCountMetricName, 1)
	metrics.RecordDuration(ctx, instructionProcessingTimeMetricName, time.Since(start))

	return nil
}

func (p *Processor) processInitialize(ctx context.Context, tx ledger.Ledger, ixn solana.Instruction) error {
	accounts, err := vault_program.DecompileInitialize(ixn)
	if err != nil {
		return err
	}

	if !accounts.Owner.IsSigner {
		return vault_program.ErrUnauthorized
	}
	owner := accounts.Owner.PublicKey

	stateAddress, stateBump, err := vault_program.GetStateAddress(&vault_program.GetStateAddressArgs{
		Owner: owner,
	})
	if err != nil {
		return errors.Wrap(err, "error deriving state address")
	}
	if !bytes.Equal(stateAddress, accounts.State.PublicKey) {
		return vault_program.ErrInvalidAddressDerivation
	}

	vaultAddress, vaultBump, err := vault_program.GetVaultAddress(&vault_program.GetVaultAddressArgs{
		State: stateAddress,
	})
	if err != nil {
		return errors.Wrap(err, "error deriving vault address")
	}

	_, err = tx.GetAccount(ctx, stateAddress)
	if err == nil {
		return vault_program.ErrAccountAlreadyInitialized
	} else if err != ledger.ErrAccountNotFound {
		return err
	}

	stateRent, err := tx.GetMinimumBalanceForRentExemption(ctx, vault_program.VaultAccountSize)
	if err != nil {
		return err
	}
	vaultRent, err := tx.GetMinimumBalanceForRentExemption(ctx, 0)
	if err != nil {
		return err
	}

	err = tx.CreateAccount(ctx, &ledger.CreateAccountParams{
		Address:  stateAddress,
		Owner:    vault_program.PROGRAM_ID,
		Funder:   owner,
		Lamports: stateRent,
		Data:     vault_program.NewVaultAccount(vaultBump, stateBump).Marshal(),
	})
	switch err {
	case nil:
	case ledger.ErrAccountExists:
		return vault_program.ErrAccountAlreadyInitialized
	case ledger.ErrInsufficientFunds:
		return vault_program.ErrInsufficientFunds
	default:
		return err
	}

	// The vault is created eagerly at the rent floor so deposits never race
	// account creation.
	err = tx.CreateAccount(ctx, &ledger.CreateAccountParams{
		Address:  vaultAddress,
		Owner:    vault_program.PROGRAM_ID,
		Funder:   owner,
		Lamports: vaultRent,
	})
	switch err {
	case nil:
	case ledger.ErrAccountExists:
		return vault_program.ErrAccountAlreadyInitialized
	case ledger.ErrInsufficientFunds:
		return vault_program.ErrInsufficientFunds
	default:
		return err
	}

	return p.saveRecord(ctx, &verifiedVault{
		owner:  owner,
		state:  stateAddress,
		vault:  vaultAddress,
		record: vault_program.NewVaultAccount(vaultBump, stateBump),
	}, vault_store.StateOpen)
}

func (p *Processor) processDeposit(ctx context.Context, tx ledger.Ledger, ixn solana.Instruction) error {
	args, accounts, err := vault_program.DecompileDeposit(ixn)
	if err != nil {
		return err
	}

	if !accounts.Owner.IsSigner {
		return vault_program.ErrUnauthorized
	}

	if args.Amount == 0 {
		return vault_program.ErrInvalidAmount
	}

	verified, err := loadVerifiedVault(ctx, tx, accounts.Owner.PublicKey, accounts.State.PublicKey, accounts.Vault.PublicKey)
	if err != nil {
		return err
	}

	vaultInfo, err := tx.GetAccount(ctx, verified.vault)
	if err != nil {
		return err
	}
	if vaultInfo.Lamports > math.MaxUint64-args.Amount {
		return vault_program.ErrInvalidAmount
	}

	err = tx.Transfer(ctx, verified.owner, verified.vault, args.Amount, &ledger.SignatureAuthority{
		Address: verified.owner,
	})
	switch err {
	case nil:
	case ledger.ErrInvalidAuthority:
		return vault_program.ErrUnauthorized
	case ledger.ErrInsufficientFunds, ledger.ErrNotRentExempt:
		// The owner either can't cover the amount, or covering it would
		// strand the owner's own account below the rent floor.
		return vault_program.ErrInsufficientFunds
	case ledger.ErrBalanceOverflow:
		return vault_program.ErrInvalidAmount
	default:
		return err
	}

	return p.saveRecord(ctx, verified, vault_store.StateOpen)
}

func (p *Processor) processWithdraw(ctx context.Context, tx ledger.Ledger, ixn solana.Instruction) error {
	args, accounts, err := vault_program.DecompileWithdraw(ixn)
	if err != nil {
		return err
	}

	if !accounts.Owner.IsSigner {
		return vault_program.ErrUnauthorized
	}

	if args.Amount == 0 {
		return vault_program.ErrInvalidAmount
	}

	verified, err := loadVerifiedVault(ctx, tx, accounts.Owner.PublicKey, accounts.State.PublicKey, accounts.Vault.PublicKey)
	if err != nil {
		return err
	}

	vaultInfo, err := tx.GetAccount(ctx, verified.vault)
	if err != nil {
		return err
	}

	if args.Amount > vaultInfo.Lamports {
		return vault_program.ErrInsufficientFunds
	}

	rentFloor, err := tx.GetMinimumBalanceForRentExemption(ctx, 0)
	if err != nil {
		return err
	}
	// A withdrawal can never take the vault below its rent floor. The full
	// balance, rent reserve included, is only recoverable through close.
	if vaultInfo.Lamports-args.Amount < rentFloor {
		return vault_program.ErrRentExemptionViolation
	}

	err = tx.Transfer(ctx, verified.vault, verified.owner, args.Amount, verified.vaultAuthority())
	switch err {
	case nil:
	case ledger.ErrInvalidAuthority:
		return vault_program.ErrUnauthorized
	case ledger.ErrInsufficientFunds:
		return vault_program.ErrInsufficientFunds
	case ledger.ErrNotRentExempt:
		return vault_program.ErrRentExemptionViolation
	case ledger.ErrBalanceOverflow:
		return vault_program.ErrInvalidAmount
	default:
		return err
	}

	return p.saveRecord(ctx, verified, vault_store.StateOpen)
}

func (p *Processor) processClose(ctx context.Context, tx ledger.Ledger, ixn solana.Instruction) error {
	accounts, err := vault_program.DecompileClose(ixn)
	if err != nil {
		return err
	}

	if !accounts.Owner.IsSigner {
		return vault_program.ErrUnauthorized
	}

	verified, err := loadVerifiedVault(ctx, tx, accounts.Owner.PublicKey, accounts.State.PublicKey, accounts.Vault.PublicKey)
	if err != nil {
		return err
	}

	// The full vault balance, rent reserve included, is swept back to the
	// owner before the state record is released.
	err = tx.CloseAccount(ctx, verified.vault, verified.owner, verified.vaultAuthority())
	switch err {
	case nil:
	case ledger.ErrInvalidAuthority:
		return vault_program.ErrUnauthorized
	case ledger.ErrBalanceOverflow:
		return vault_program.ErrInvalidAmount
	default:
		return err
	}

	err = tx.CloseAccount(ctx, verified.state, verified.owner, verified.stateAuthority())
	switch err {
	case nil:
	case ledger.ErrInvalidAuthority:
		return vault_program.ErrUnauthorized
	case ledger.ErrBalanceOverflow:
		return vault_program.ErrInvalidAmount
	default:
		return err
	}

	return p.saveRecord(ctx, verified, vault_store.StateClosed)
}

func (p *Processor) saveRecord(ctx context.Context, v *verifiedVault, state vault_store.State) error {
	record := &vault_store.Record{
		Address: base58.Encode(v.state),
		Bump:    v.record.StateBump,

		VaultAddress: base58.Encode(v.vault),
		VaultBump:    v.record.VaultBump,

		Owner: base58.Encode(v.owner),

		State: state,

		Block: p.nextBlock(),
	}
	return p.data.SaveVault(ctx, record)
}

func (p *Processor) nextBlock() uint64 {
	return atomic.AddUint64(&p.block, 1)
}
