package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountID is a base58-encoded 32-byte account address. The same address
// type is reused for every role (issuer, investor, auditor, reporter); the
// role registry decides what an account may do.
type AccountID string

// accountLen is the raw address length in bytes.
const accountLen = 32

// ParseAccount validates that s is base58 and decodes to exactly 32 bytes.
func ParseAccount(s string) (AccountID, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("decode account %q: %w", s, err)
	}
	if len(raw) != accountLen {
		return "", fmt.Errorf("account %q: expected %d bytes, got %d", s, accountLen, len(raw))
	}
	return AccountID(s), nil
}

// AccountFromBytes encodes a raw 32-byte address.
func AccountFromBytes(raw []byte) (AccountID, error) {
	if len(raw) != accountLen {
		return "", fmt.Errorf("account: expected %d bytes, got %d", accountLen, len(raw))
	}
	return AccountID(base58.Encode(raw)), nil
}

// Bytes decodes the address back to its raw form.
func (a AccountID) Bytes() ([]byte, error) {
	raw, err := base58.Decode(string(a))
	if err != nil {
		return nil, fmt.Errorf("decode account %q: %w", string(a), err)
	}
	return raw, nil
}

// TreasuryAccount is the synthetic account holding a bond's raised funds.
// It is not base58 (cannot collide with a real address).
func TreasuryAccount(id BondID) AccountID {
	return AccountID("bond:" + id.String())
}
