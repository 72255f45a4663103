package domain

import (
	"fmt"
	"strings"
)

// RoleMask is the bitmask of registry roles held by an account. Roles are
// capabilities, not types: the same AccountID may be issuer on one bond and
// investor on another.
type RoleMask uint8

const (
	RoleMaster RoleMask = 1 << iota
	RoleCustodian
	RoleIssuer
	RoleInvestor
	RoleAuditor
	RoleManager
	RoleImpactReporter
)

// Has reports whether every role in want is held.
func (m RoleMask) Has(want RoleMask) bool {
	return m&want == want
}

// String renders the mask for logs, e.g. "ISSUER|INVESTOR".
func (m RoleMask) String() string {
	names := []struct {
		bit  RoleMask
		name string
	}{
		{RoleMaster, "MASTER"},
		{RoleCustodian, "CUSTODIAN"},
		{RoleIssuer, "ISSUER"},
		{RoleInvestor, "INVESTOR"},
		{RoleAuditor, "AUDITOR"},
		{RoleManager, "MANAGER"},
		{RoleImpactReporter, "IMPACT_REPORTER"},
	}
	var parts []string
	for _, n := range names {
		if m.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// ParseRoleMask is the inverse of String: "ISSUER|INVESTOR" -> mask.
func ParseRoleMask(s string) (RoleMask, error) {
	byName := map[string]RoleMask{
		"MASTER":          RoleMaster,
		"CUSTODIAN":       RoleCustodian,
		"ISSUER":          RoleIssuer,
		"INVESTOR":        RoleInvestor,
		"AUDITOR":         RoleAuditor,
		"MANAGER":         RoleManager,
		"IMPACT_REPORTER": RoleImpactReporter,
	}
	var m RoleMask
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(strings.ToUpper(part))
		if part == "" || part == "NONE" {
			continue
		}
		bit, ok := byName[part]
		if !ok {
			return 0, fmt.Errorf("unknown role %q", part)
		}
		m |= bit
	}
	return m, nil
}
