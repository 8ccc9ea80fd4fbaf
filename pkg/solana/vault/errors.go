package vault

// VaultError is an error code produced by the vault program. Codes are
// offset by 0x1770 following the Anchor custom error convention.
type VaultError uint32

const (
	// A required signature is absent or was produced by the wrong key
	ErrUnauthorized VaultError = iota + 0x1770

	// A supplied account does not match the address recomputed from the
	// stored bump seeds
	ErrInvalidAddressDerivation

	// A vault state record already exists for this owner
	ErrAccountAlreadyInitialized

	// The debited account cannot cover the requested amount
	ErrInsufficientFunds

	// The amount is zero or would overflow the balance representation
	ErrInvalidAmount

	// A non-closing withdrawal would leave the vault below the rent floor
	ErrRentExemptionViolation
)

func (e VaultError) Error() string {
	switch e {
	case ErrUnauthorized:
		return "vault/unauthorized"
	case ErrInvalidAddressDerivation:
		return "vault/invalid address derivation"
	case ErrAccountAlreadyInitialized:
		return "vault/account already initialized"
	case ErrInsufficientFunds:
		return "vault/insufficient funds"
	case ErrInvalidAmount:
		return "vault/invalid amount"
	case ErrRentExemptionViolation:
		return "vault/rent exemption violation"
	}

	return "vault/unknown error"
}
