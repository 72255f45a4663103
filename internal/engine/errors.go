package engine

import "errors"

// Rejection reasons. Every operation either fully applies or returns one of
// these with storage untouched; callers branch with errors.Is.
var (
	// ErrInvalidParameters is reported when a parameter set fails
	// validation or a booking-time edit changes investor economics.
	ErrInvalidParameters = errors.New("engine: invalid bond parameters")

	// ErrStateMismatch is reported when the bond's lifecycle state does
	// not allow the requested operation.
	ErrStateMismatch = errors.New("engine: operation not allowed in current state")

	// ErrUnauthorized is reported when the caller lacks the required role
	// or is not the distinguished account for the operation.
	ErrUnauthorized = errors.New("engine: unauthorized")

	// ErrDeadlineExceeded is reported when an operation arrives outside
	// its time window.
	ErrDeadlineExceeded = errors.New("engine: deadline exceeded")

	// ErrDuplicateReport is reported for a second impact report on the
	// same period; the first valid report freezes the period's rate.
	ErrDuplicateReport = errors.New("engine: period already reported")

	// ErrInsufficientBalance is reported when a transfer or payout cannot
	// be funded.
	ErrInsufficientBalance = errors.New("engine: insufficient balance")

	// ErrCapacityExceeded is reported when a purchase would push issued
	// units past the bond's maxcap.
	ErrCapacityExceeded = errors.New("engine: unit cap exceeded")

	// ErrArithmeticOverflow is reported when a balance computation would
	// wrap. Validation makes this unreachable for in-range inputs.
	ErrArithmeticOverflow = errors.New("engine: arithmetic overflow")
)
