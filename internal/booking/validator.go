package booking

import (
	"fmt"
	"time"

	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

// Policy holds the shop-wide scheduling rules.
type Policy struct {
	Location        *time.Location
	LeadTime        time.Duration
	SlotStepMinutes int
	LookaheadDays   int
	DefaultDuration int
}

func DefaultPolicy() Policy {
	loc, err := time.LoadLocation("Asia/Karachi")
	if err != nil {
		loc = time.UTC
	}
	return Policy{
		Location:        loc,
		LeadTime:        15 * time.Minute,
		SlotStepMinutes: 15,
		LookaheadDays:   30,
		DefaultDuration: DefaultDurationMinutes,
	}
}

// Clock returns the current instant. Tests substitute a fixed one.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Validator decides whether a single candidate slot is admissible for a
// barber given that barber's existing appointments on the same date.
// It performs no I/O.
type Validator struct {
	policy Policy
	clock  Clock
}

func NewValidator(policy Policy, clock Clock) *Validator {
	if clock == nil {
		clock = systemClock{}
	}
	return &Validator{policy: policy, clock: clock}
}

// Check returns nil when the slot is admissible, otherwise a *Error whose
// Reason names the first rule that failed, in this order: presence, lead
// time, working hours, break, existing bookings.
func (v *Validator) Check(date string, start timegrid.TimeOfDay, duration int, b Barber, existing []Appointment) error {
	if date == "" || !start.IsSet() {
		return inputError(ReasonMissingDateTime, "missing date or time", nil)
	}

	startAt, err := timegrid.ToLocalDateTime(date, start, v.policy.Location)
	if err != nil {
		return inputError(ReasonInvalidDate, fmt.Sprintf("invalid date %q", date), err)
	}
	if startAt.Before(v.clock.Now().Add(v.policy.LeadTime)) {
		return constraintError(ReasonTooSoon,
			fmt.Sprintf("too soon: minimum lead time is %d minutes", int(v.policy.LeadTime.Minutes())))
	}

	wh := b.WorkingHours
	if start < wh.Start || start.Add(duration) > wh.End {
		return constraintError(ReasonOutsideHours,
			fmt.Sprintf("outside working hours (%s-%s)", wh.Start, wh.End))
	}

	if bt := b.BreakTime; bt != nil && timegrid.Overlaps(start, duration, bt.Start, bt.Minutes()) {
		return constraintError(ReasonBreakOverlap,
			fmt.Sprintf("overlaps with break time (%s-%s)", bt.Start, bt.End))
	}

	for _, appt := range existing {
		if !appt.IsActive() {
			continue
		}
		if timegrid.Overlaps(start, duration, appt.Time, appt.Duration()) {
			return constraintError(ReasonAlreadyBooked, "time slot already booked")
		}
	}

	return nil
}

// Admissible is Check as a predicate, for scanning loops.
func (v *Validator) Admissible(date string, start timegrid.TimeOfDay, duration int, b Barber, existing []Appointment) bool {
	return v.Check(date, start, duration, b, existing) == nil
}

func (v *Validator) now() time.Time {
	return v.clock.Now().In(v.policy.Location)
}
