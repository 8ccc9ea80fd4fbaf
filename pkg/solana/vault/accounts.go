package vault

import (
	"bytes"
	"strconv"
)

// VaultAccount is the persisted configuration binding an owner to its two
// derived addresses. The owner itself is not stored; it is bound by the
// record's own derivation seeds.
type VaultAccount struct {
	VaultBump uint8
	StateBump uint8
}

const VaultAccountSize = (8 + // discriminator
	1 + // vault_bump
	1) // state_bump

var vaultAccountDiscriminator = []byte{211, 8, 232, 43, 2, 152, 117, 119}

func NewVaultAccount(vaultBump, stateBump uint8) *VaultAccount {
	return &VaultAccount{
		VaultBump: vaultBump,
		StateBump: stateBump,
	}
}

// Clone makes a deep copy of a VaultAccount.
func (obj *VaultAccount) Clone() *VaultAccount {
	return NewVaultAccount(
		obj.VaultBump,
		obj.StateBump,
	)
}

func (obj *VaultAccount) ToString() string {
	return "VaultAccount{" +
		"vault_bump='" + strconv.Itoa(int(obj.VaultBump)) + "'" +
		", state_bump='" + strconv.Itoa(int(obj.StateBump)) + "'" +
		"}"
}

// Marshal serializes the VaultAccount into the fixed 10 byte account layout.
func (obj *VaultAccount) Marshal() []byte {
	data := make([]byte, VaultAccountSize)

	var offset int

	putDiscriminator(data, vaultAccountDiscriminator, &offset)
	putUint8(data, obj.VaultBump, &offset)
	putUint8(data, obj.StateBump, &offset)

	return data
}

// Unmarshal deserializes the VaultAccount from the provided account data.
func (obj *VaultAccount) Unmarshal(data []byte) error {
	if len(data) != VaultAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, vaultAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint8(data, &obj.VaultBump, &offset)
	getUint8(data, &obj.StateBump, &offset)

	return nil
}
