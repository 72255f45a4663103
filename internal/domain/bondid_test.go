package domain

import "testing"

func TestParseBondID(t *testing.T) {
	id, err := ParseBondID("GRN2030")
	if err != nil {
		t.Fatalf("ParseBondID failed: %v", err)
	}
	if id.String() != "GRN2030" {
		t.Errorf("round trip: got %q", id.String())
	}

	if _, err := ParseBondID(""); err == nil {
		t.Error("expected rejection of empty id")
	}
	if _, err := ParseBondID("TOOLONGID"); err == nil {
		t.Error("expected rejection of 9-byte id")
	}
	if _, err := ParseBondID("AB CD"); err == nil {
		t.Error("expected rejection of whitespace")
	}
}

func TestBondIDIsZero(t *testing.T) {
	var id BondID
	if !id.IsZero() {
		t.Error("zero value should report IsZero")
	}
	id, _ = ParseBondID("X")
	if id.IsZero() {
		t.Error("parsed id should not report IsZero")
	}
}

func TestAccountRoundTrip(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	acc, err := AccountFromBytes(raw)
	if err != nil {
		t.Fatalf("AccountFromBytes failed: %v", err)
	}

	parsed, err := ParseAccount(string(acc))
	if err != nil {
		t.Fatalf("ParseAccount failed: %v", err)
	}
	back, err := parsed.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	for i := range raw {
		if back[i] != raw[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}

	if _, err := AccountFromBytes(raw[:16]); err == nil {
		t.Error("expected rejection of short address")
	}
}

func TestTreasuryAccountIsDistinct(t *testing.T) {
	id, _ := ParseBondID("GRN2030")
	tr := TreasuryAccount(id)
	if _, err := ParseAccount(string(tr)); err == nil {
		t.Error("treasury account must not parse as a real address")
	}
}

func TestRoleMask(t *testing.T) {
	m := RoleIssuer | RoleInvestor
	if !m.Has(RoleIssuer) || m.Has(RoleAuditor) {
		t.Fatalf("unexpected mask behavior: %s", m)
	}
	if m.String() != "ISSUER|INVESTOR" {
		t.Errorf("String() = %q", m.String())
	}
	if RoleMask(0).String() != "NONE" {
		t.Errorf("empty mask String() = %q", RoleMask(0).String())
	}
}
