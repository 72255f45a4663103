package memory

import (
	"context"
	"testing"

	"impact-bond-engine/internal/domain"
)

func TestPackageStore_InsertAndGetByAccount(t *testing.T) {
	store := NewPackageStore()
	ctx := context.Background()
	id := bondID(t, "GRN1")

	lots := []*domain.UnitPackage{
		{BondID: id, Account: "alice", Units: 50, AcquisitionPeriod: 2, CreatedAt: 300},
		{BondID: id, Account: "alice", Units: 30, AcquisitionPeriod: 0, CreatedAt: 100},
		{BondID: id, Account: "bob", Units: 20, AcquisitionPeriod: 1, CreatedAt: 200},
	}
	for _, p := range lots {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByAccount(ctx, id, "alice")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lots, got %d", len(got))
	}
	// Ordered by acquisition period.
	if got[0].AcquisitionPeriod != 0 || got[1].AcquisitionPeriod != 2 {
		t.Errorf("unexpected order: %+v", got)
	}

	all, err := store.GetByBond(ctx, id)
	if err != nil {
		t.Fatalf("GetByBond failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 lots, got %d", len(all))
	}
}

func TestPackageStore_ReplaceForAccount(t *testing.T) {
	store := NewPackageStore()
	ctx := context.Background()
	id := bondID(t, "GRN1")

	if err := store.Insert(ctx, &domain.UnitPackage{BondID: id, Account: "alice", Units: 50}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Settlement writes fresh lots.
	err := store.ReplaceForAccount(ctx, id, "alice", []*domain.UnitPackage{
		{BondID: id, Account: "alice", Units: 50, AcquisitionPeriod: 3, CouponPaid: 120},
	})
	if err != nil {
		t.Fatalf("ReplaceForAccount failed: %v", err)
	}
	got, _ := store.GetByAccount(ctx, id, "alice")
	if len(got) != 1 || got[0].CouponPaid != 120 {
		t.Fatalf("replace not applied: %+v", got)
	}

	// Empty replacement clears the account.
	if err := store.ReplaceForAccount(ctx, id, "alice", nil); err != nil {
		t.Fatalf("clearing replace failed: %v", err)
	}
	got, _ = store.GetByAccount(ctx, id, "alice")
	if len(got) != 0 {
		t.Fatalf("expected no lots, got %d", len(got))
	}
}

func TestPackageStore_DeleteByBond(t *testing.T) {
	store := NewPackageStore()
	ctx := context.Background()
	keep := bondID(t, "KEEP")
	drop := bondID(t, "DROP")

	for _, p := range []*domain.UnitPackage{
		{BondID: keep, Account: "alice", Units: 10},
		{BondID: drop, Account: "alice", Units: 20},
		{BondID: drop, Account: "bob", Units: 30},
	} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if err := store.DeleteByBond(ctx, drop); err != nil {
		t.Fatalf("DeleteByBond failed: %v", err)
	}
	gone, _ := store.GetByBond(ctx, drop)
	if len(gone) != 0 {
		t.Errorf("expected dropped bond to have no lots, got %d", len(gone))
	}
	kept, _ := store.GetByBond(ctx, keep)
	if len(kept) != 1 {
		t.Errorf("expected unrelated bond untouched, got %d lots", len(kept))
	}
}
