package roles

import (
	"context"
	"errors"
	"testing"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage/memory"
)

func TestRegistry_GrantRevoke(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.NewRoleStore())

	master := domain.AccountID("master")
	alice := domain.AccountID("alice")

	if err := reg.Bootstrap(ctx, master); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if err := reg.Grant(ctx, master, alice, domain.RoleIssuer|domain.RoleInvestor); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	ok, err := reg.Has(ctx, alice, domain.RoleIssuer)
	if err != nil || !ok {
		t.Fatalf("Has(ISSUER) = %v, %v; want true", ok, err)
	}

	if err := reg.Revoke(ctx, master, alice, domain.RoleIssuer); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	mask, err := reg.Get(ctx, alice)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if mask != domain.RoleInvestor {
		t.Fatalf("mask after revoke = %s, want INVESTOR", mask)
	}
}

func TestRegistry_NonMasterCannotGrant(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.NewRoleStore())

	err := reg.Grant(ctx, "nobody", "alice", domain.RoleIssuer)
	if !errors.Is(err, ErrNotMaster) {
		t.Fatalf("Grant by non-master = %v, want ErrNotMaster", err)
	}
}

func TestRegistry_UnknownAccountHasNoRoles(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.NewRoleStore())

	ok, err := reg.Has(ctx, "stranger", domain.RoleInvestor)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if ok {
		t.Fatal("unknown account should hold no roles")
	}
}
