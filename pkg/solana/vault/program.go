package vault

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/vault-server/pkg/solana"
)

var (
	ErrInvalidProgram         = solana.ErrIncorrectProgram
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = solana.ErrIncorrectInstruction
	ErrInvalidAccountList     = errors.New("unexpected instruction account list")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("vauVEKffmfgUPopYddhyfkMB2WKefgaQsENYv1dau2V")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
)
