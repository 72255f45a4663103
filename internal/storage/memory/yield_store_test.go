package memory

import (
	"context"
	"errors"
	"testing"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

func TestPeriodYieldStore_AppendOnly(t *testing.T) {
	store := NewPeriodYieldStore()
	ctx := context.Background()
	id := bondID(t, "GRN1")

	row := &domain.PeriodYield{BondID: id, Period: 1, Rate: 30_000, Accrued: 500}
	if err := store.Insert(ctx, row); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, row); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey on re-insert, got %v", err)
	}

	got, err := store.Get(ctx, id, 1)
	if err != nil || got.Accrued != 500 {
		t.Fatalf("Get: %+v err=%v", got, err)
	}
	if _, err := store.Get(ctx, id, 2); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPeriodYieldStore_ListOrdered(t *testing.T) {
	store := NewPeriodYieldStore()
	ctx := context.Background()
	id := bondID(t, "GRN1")

	for _, p := range []uint32{3, 1, 2} {
		if err := store.Insert(ctx, &domain.PeriodYield{BondID: id, Period: p}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	rows, err := store.ListByBond(ctx, id)
	if err != nil {
		t.Fatalf("ListByBond failed: %v", err)
	}
	if len(rows) != 3 || rows[0].Period != 1 || rows[2].Period != 3 {
		t.Errorf("unexpected order: %+v", rows)
	}
}

func TestAccountYieldStore_Upsert(t *testing.T) {
	store := NewAccountYieldStore()
	ctx := context.Background()
	id := bondID(t, "GRN1")

	if _, err := store.Get(ctx, id, "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh account, got %v", err)
	}

	if err := store.Upsert(ctx, &domain.AccountYield{BondID: id, Account: "alice", Paid: 100, LastPeriod: 2}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, &domain.AccountYield{BondID: id, Account: "alice", Paid: 250, LastPeriod: 5}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, id, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Paid != 250 || got.LastPeriod != 5 {
		t.Errorf("unexpected cursor: %+v", got)
	}
}
