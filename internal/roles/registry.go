// Package roles maintains the account role registry. The registry is the
// authorization surface of the engine: every privileged operation asks it
// whether the caller holds the required role bit.
package roles

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// Registry answers role queries and applies master administration over a
// RoleStore.
type Registry struct {
	store storage.RoleStore
}

// NewRegistry creates a Registry over the given store.
func NewRegistry(store storage.RoleStore) *Registry {
	return &Registry{store: store}
}

// Has reports whether the account holds every role in want.
func (r *Registry) Has(ctx context.Context, acc domain.AccountID, want domain.RoleMask) (bool, error) {
	mask, err := r.store.Get(ctx, acc)
	if err != nil {
		return false, fmt.Errorf("get roles for %s: %w", acc, err)
	}
	return mask.Has(want), nil
}

// Get returns the account's full mask.
func (r *Registry) Get(ctx context.Context, acc domain.AccountID) (domain.RoleMask, error) {
	mask, err := r.store.Get(ctx, acc)
	if err != nil {
		return 0, fmt.Errorf("get roles for %s: %w", acc, err)
	}
	return mask, nil
}

// Grant adds roles to an account. Only a master may call this; the caller
// check lives here so no engine path can bypass it.
func (r *Registry) Grant(ctx context.Context, caller, acc domain.AccountID, add domain.RoleMask) error {
	if err := r.requireMaster(ctx, caller); err != nil {
		return err
	}
	mask, err := r.store.Get(ctx, acc)
	if err != nil {
		return fmt.Errorf("get roles for %s: %w", acc, err)
	}
	if err := r.store.Set(ctx, acc, mask|add); err != nil {
		return fmt.Errorf("set roles for %s: %w", acc, err)
	}
	return nil
}

// Revoke removes roles from an account. Master only.
func (r *Registry) Revoke(ctx context.Context, caller, acc domain.AccountID, drop domain.RoleMask) error {
	if err := r.requireMaster(ctx, caller); err != nil {
		return err
	}
	mask, err := r.store.Get(ctx, acc)
	if err != nil {
		return fmt.Errorf("get roles for %s: %w", acc, err)
	}
	if err := r.store.Set(ctx, acc, mask&^drop); err != nil {
		return fmt.Errorf("set roles for %s: %w", acc, err)
	}
	return nil
}

// Bootstrap grants the master role to the first administrator without a
// caller check. Deployment wiring calls this exactly once.
func (r *Registry) Bootstrap(ctx context.Context, acc domain.AccountID) error {
	mask, err := r.store.Get(ctx, acc)
	if err != nil {
		return fmt.Errorf("get roles for %s: %w", acc, err)
	}
	if err := r.store.Set(ctx, acc, mask|domain.RoleMaster); err != nil {
		return fmt.Errorf("bootstrap master %s: %w", acc, err)
	}
	return nil
}

// ErrNotMaster is reported when a non-master calls an administrative
// operation.
var ErrNotMaster = fmt.Errorf("roles: caller is not a master")

func (r *Registry) requireMaster(ctx context.Context, caller domain.AccountID) error {
	ok, err := r.Has(ctx, caller, domain.RoleMaster)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMaster
	}
	return nil
}
