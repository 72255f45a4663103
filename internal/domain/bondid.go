package domain

import (
	"bytes"
	"fmt"
)

// BondID is the fixed-width bond ticker: up to 8 printable ASCII bytes,
// zero-padded on the right. It is the storage key for everything bond-scoped.
type BondID [8]byte

// ParseBondID builds a BondID from a ticker string.
func ParseBondID(s string) (BondID, error) {
	var id BondID
	if len(s) == 0 || len(s) > len(id) {
		return id, fmt.Errorf("bond id %q: length must be 1..%d", s, len(id))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e {
			return id, fmt.Errorf("bond id %q: non-printable byte at %d", s, i)
		}
	}
	copy(id[:], s)
	return id, nil
}

// String renders the ticker without zero padding.
func (id BondID) String() string {
	return string(bytes.TrimRight(id[:], "\x00"))
}

// IsZero reports whether the id is unset.
func (id BondID) IsZero() bool {
	return id == BondID{}
}
