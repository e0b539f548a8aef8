package booking

import (
	"errors"
	"fmt"
)

// Kind classifies why a booking operation failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInput covers missing or unparseable request values and unknown barbers.
	KindInput
	// KindConstraint covers lead time, hours, breaks and overlapping bookings.
	KindConstraint
	// KindExhausted means no admissible slot exists within the lookahead horizon.
	KindExhausted
	// KindRepository wraps a failed store read or write.
	KindRepository
	// KindNotFound means the thing to act on does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConstraint:
		return "constraint"
	case KindExhausted:
		return "exhausted"
	case KindRepository:
		return "repository"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Reason pinpoints the rule behind an input or constraint failure.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonMissingUser     Reason = "missing_user"
	ReasonMissingDateTime Reason = "missing_date_time"
	ReasonInvalidDate     Reason = "invalid_date"
	ReasonInvalidTime     Reason = "invalid_time"
	ReasonInvalidDuration Reason = "invalid_duration"
	ReasonUnknownBarber   Reason = "unknown_barber"
	ReasonTooSoon         Reason = "too_soon"
	ReasonOutsideHours    Reason = "outside_hours"
	ReasonBreakOverlap    Reason = "break_overlap"
	ReasonAlreadyBooked   Reason = "already_booked"
	ReasonUserOverlap     Reason = "user_overlap"
	ReasonSlotBusy        Reason = "slot_busy"
)

// Error is the failure type of every booking operation. Msg is safe to show
// to customers; Err carries the underlying cause.
type Error struct {
	Kind   Kind
	Reason Reason
	Msg    string
	Err    error

	// Alternatives lists nearby open slots when an exact request fails.
	Alternatives []Slot
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindUnknown when err is not a *Error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// ReasonOf returns the Reason of err, or ReasonNone.
func ReasonOf(err error) Reason {
	var be *Error
	if errors.As(err, &be) {
		return be.Reason
	}
	return ReasonNone
}

// Message returns the customer-facing text of err.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Msg
	}
	return err.Error()
}

func inputError(reason Reason, msg string, err error) *Error {
	return &Error{Kind: KindInput, Reason: reason, Msg: msg, Err: err}
}

func constraintError(reason Reason, msg string) *Error {
	return &Error{Kind: KindConstraint, Reason: reason, Msg: msg}
}

func exhaustedError(msg string) *Error {
	return &Error{Kind: KindExhausted, Msg: msg}
}

func notFoundError(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Msg: msg, Err: err}
}

func repositoryError(op string, err error) *Error {
	return &Error{Kind: KindRepository, Msg: "the appointment store is unavailable, please try again", Err: fmt.Errorf("%s: %w", op, err)}
}
