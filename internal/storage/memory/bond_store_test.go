package memory

import (
	"context"
	"errors"
	"testing"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

func bondID(t *testing.T, s string) domain.BondID {
	t.Helper()
	id, err := domain.ParseBondID(s)
	if err != nil {
		t.Fatalf("ParseBondID(%q): %v", s, err)
	}
	return id
}

func TestBondStore_InsertAndGet(t *testing.T) {
	store := NewBondStore()
	ctx := context.Background()

	b := &domain.Bond{
		ID:        bondID(t, "GRN1"),
		State:     domain.StatePrepare,
		Issuer:    "issuer",
		CreatedAt: 1000,
	}
	if err := store.Insert(ctx, b); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.State != domain.StatePrepare || got.Issuer != "issuer" {
		t.Errorf("unexpected bond: %+v", got)
	}

	// Mutating the returned copy must not touch the stored record.
	got.State = domain.StateActive
	again, _ := store.GetByID(ctx, b.ID)
	if again.State != domain.StatePrepare {
		t.Error("store returned a shared reference")
	}
}

func TestBondStore_DuplicateKey(t *testing.T) {
	store := NewBondStore()
	ctx := context.Background()

	b := &domain.Bond{ID: bondID(t, "GRN1")}
	if err := store.Insert(ctx, b); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.Insert(ctx, b); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestBondStore_UpdateRequiresExisting(t *testing.T) {
	store := NewBondStore()
	ctx := context.Background()

	b := &domain.Bond{ID: bondID(t, "GRN1")}
	if err := store.Update(ctx, b); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Insert(ctx, b); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	b.State = domain.StateBooking
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.GetByID(ctx, b.ID)
	if got.State != domain.StateBooking {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestBondStore_ListOrdered(t *testing.T) {
	store := NewBondStore()
	ctx := context.Background()

	for _, b := range []*domain.Bond{
		{ID: bondID(t, "B"), CreatedAt: 200},
		{ID: bondID(t, "A"), CreatedAt: 100},
		{ID: bondID(t, "C"), CreatedAt: 200},
	} {
		if err := store.Insert(ctx, b); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 || list[0].ID.String() != "A" || list[1].ID.String() != "B" || list[2].ID.String() != "C" {
		t.Errorf("unexpected order: %v", list)
	}
}

func TestBondStore_InvalidInput(t *testing.T) {
	store := NewBondStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Bond{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero id, got %v", err)
	}
}
