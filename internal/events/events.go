// Package events defines the engine's outbound event stream. Every state
// transition emits exactly one event after its storage writes succeed, so
// subscribers see a serialized history of what actually happened.
package events

import (
	"github.com/google/uuid"

	"impact-bond-engine/internal/domain"
)

// Type names an engine event.
type Type string

const (
	TypeBondCreated     Type = "bond_created"
	TypeBondUpdated     Type = "bond_updated"
	TypeRolesAssigned   Type = "roles_assigned"
	TypeBookingOpened   Type = "booking_opened"
	TypeUnitsBought     Type = "units_bought"
	TypeUnitsReturned   Type = "units_returned"
	TypeBookingReverted Type = "booking_reverted"
	TypeBondActivated   Type = "bond_activated"
	TypeReportSubmitted Type = "report_submitted"
	TypeReportApproved  Type = "report_approved"
	TypeDeposit         Type = "deposit"
	TypeWithdrawal      Type = "withdrawal"
	TypeCouponAccrued   Type = "coupon_accrued"
	TypeYieldWithdrawn  Type = "yield_withdrawn"
	TypeUnitsRedeemed   Type = "units_redeemed"
	TypeBondFinished    Type = "bond_finished"
	TypeBondBankrupt    Type = "bond_bankrupt"
	TypeDocumentFiled   Type = "document_filed"
	TypeDocumentSigned  Type = "document_signed"
)

// Event is one entry of the stream. Fields not meaningful for a given type
// are zero and omitted from the wire form.
type Event struct {
	ID      string           `json:"id"`
	Type    Type             `json:"type"`
	At      int64            `json:"at"`
	BondID  string           `json:"bond_id,omitempty"`
	Account domain.AccountID `json:"account,omitempty"`
	Amount  uint64           `json:"amount,omitempty"`
	Units   uint64           `json:"units,omitempty"`
	Period  uint32           `json:"period,omitempty"`
	Rate    uint32           `json:"rate,omitempty"`
}

// New builds an event with a fresh ID.
func New(typ Type, at int64) Event {
	return Event{ID: uuid.NewString(), Type: typ, At: at}
}

// Emitter receives engine events. Emit must not block the engine; slow
// sinks buffer or drop.
type Emitter interface {
	Emit(e Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(e Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(e Event) { f(e) }

// Nop discards all events.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Event) {}

// Recorder keeps every emitted event in order, for tests.
type Recorder struct {
	Events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(e Event) {
	r.Events = append(r.Events, e)
}

// Last returns the most recent event of a type, if any.
func (r *Recorder) Last(typ Type) (Event, bool) {
	for i := len(r.Events) - 1; i >= 0; i-- {
		if r.Events[i].Type == typ {
			return r.Events[i], true
		}
	}
	return Event{}, false
}
