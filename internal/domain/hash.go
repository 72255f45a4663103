package domain

import (
	"encoding/hex"
	"fmt"
)

// ParseHash decodes a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("hash %q: expected %d bytes, got %d", s, len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// String renders the hash as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler (hex).
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for bond tickers.
func (id BondID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *BondID) UnmarshalText(text []byte) error {
	parsed, err := ParseBondID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
