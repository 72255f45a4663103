// Package engine implements the bond state machine: the one component that
// mutates Bond records and talks to the external collaborators (token
// ledger, role registry, clock, event stream). Every operation is a single
// serialized read-modify-write of the bond slot; rejected operations leave
// storage indistinguishable from a no-op.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"impact-bond-engine/internal/clock"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/events"
	"impact-bond-engine/internal/ledger"
	"impact-bond-engine/internal/roles"
	"impact-bond-engine/internal/storage"
	"impact-bond-engine/internal/tokens"
)

// Deps collects the engine's collaborators. RateHistory and Emitter are
// optional; everything else must be set.
type Deps struct {
	Bonds         storage.BondStore
	Packages      storage.PackageStore
	Reports       storage.ImpactReportStore
	PeriodYields  storage.PeriodYieldStore
	AccountYields storage.AccountYieldStore
	Documents     storage.DocumentStore
	RateHistory   storage.RateHistoryStore

	Tokens   *tokens.Ledger
	Registry *roles.Registry
	Clock    clock.Clock
	Emitter  events.Emitter
	Logger   *log.Logger

	Validation domain.ValidationConfig
}

// Service is the bond engine. A single mutex serializes all mutating
// operations, giving each one the atomic read-modify-write the ledger
// invariants depend on.
type Service struct {
	mu sync.Mutex

	bonds         storage.BondStore
	packages      storage.PackageStore
	reports       storage.ImpactReportStore
	periodYields  storage.PeriodYieldStore
	accountYields storage.AccountYieldStore
	documents     storage.DocumentStore
	rateHistory   storage.RateHistoryStore

	tokens   *tokens.Ledger
	registry *roles.Registry
	clock    clock.Clock
	emitter  events.Emitter
	logger   *log.Logger

	cfg domain.ValidationConfig
}

// NewService creates the engine.
func NewService(d Deps) *Service {
	emitter := d.Emitter
	if emitter == nil {
		emitter = events.Nop{}
	}
	logger := d.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	cfg := d.Validation
	if cfg.DayDuration == 0 {
		cfg = domain.DefaultValidationConfig()
	}

	return &Service{
		bonds:         d.Bonds,
		packages:      d.Packages,
		reports:       d.Reports,
		periodYields:  d.PeriodYields,
		accountYields: d.AccountYields,
		documents:     d.Documents,
		rateHistory:   d.RateHistory,
		tokens:        d.Tokens,
		registry:      d.Registry,
		clock:         d.Clock,
		emitter:       emitter,
		logger:        logger,
		cfg:           cfg,
	}
}

// GetBond returns the current bond record.
func (s *Service) GetBond(ctx context.Context, id domain.BondID) (*domain.Bond, error) {
	return s.bonds.GetByID(ctx, id)
}

// ListBonds returns every bond in creation order.
func (s *Service) ListBonds(ctx context.Context) ([]*domain.Bond, error) {
	return s.bonds.List(ctx)
}

// requireRole rejects with ErrUnauthorized unless acc holds the role.
func (s *Service) requireRole(ctx context.Context, acc domain.AccountID, role domain.RoleMask) error {
	ok, err := s.registry.Has(ctx, acc, role)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s lacks role %s", ErrUnauthorized, acc, role)
	}
	return nil
}

// requireState rejects with ErrStateMismatch unless the bond is in one of
// the allowed states.
func requireState(b *domain.Bond, allowed ...domain.BondState) error {
	for _, st := range allowed {
		if b.State == st {
			return nil
		}
	}
	return fmt.Errorf("%w: bond %s is %s", ErrStateMismatch, b.ID, b.State)
}

// transferIn moves EverUSD from an account into the bond treasury, mapping
// token-ledger failures to engine rejections.
func (s *Service) transferIn(ctx context.Context, from domain.AccountID, id domain.BondID, amount uint64) error {
	return mapTokenErr(s.tokens.Transfer(ctx, from, domain.TreasuryAccount(id), amount))
}

// transferOut moves EverUSD from the bond treasury to an account.
func (s *Service) transferOut(ctx context.Context, id domain.BondID, to domain.AccountID, amount uint64) error {
	return mapTokenErr(s.tokens.Transfer(ctx, domain.TreasuryAccount(id), to, amount))
}

func mapTokenErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tokens.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	case errors.Is(err, tokens.ErrOverflow):
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	default:
		return err
	}
}

func mapLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrUnderflow), errors.Is(err, ledger.ErrOverflow):
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	default:
		return err
	}
}

// emit sends an event stamped with the current time.
func (s *Service) emit(typ events.Type, fill func(*events.Event)) {
	e := events.New(typ, s.clock.Now())
	if fill != nil {
		fill(&e)
	}
	s.emitter.Emit(e)
}
