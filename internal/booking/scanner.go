package booking

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

const DefaultSuggestionLimit = 3

// IterSlots yields every start time from dayStart in steps of stepMinutes
// such that start+duration <= dayEnd. The sequence is finite and can be
// ranged over any number of times.
func IterSlots(dayStart, dayEnd timegrid.TimeOfDay, stepMinutes, duration int) iter.Seq[timegrid.TimeOfDay] {
	return func(yield func(timegrid.TimeOfDay) bool) {
		if stepMinutes <= 0 || duration <= 0 || !dayStart.IsSet() {
			return
		}
		for t := dayStart; t.Add(duration) <= dayEnd; t = t.Add(stepMinutes) {
			if !yield(t) {
				return
			}
		}
	}
}

// FindNextAvailableSlot scans today through the lookahead horizon and returns
// the first admissible slot for the barber. ok is false when the horizon is
// exhausted.
func (s *Service) FindNextAvailableSlot(ctx context.Context, barberID uuid.UUID, duration int) (slot Slot, ok bool, err error) {
	duration, err = s.durationOrDefault(duration)
	if err != nil {
		return Slot{}, false, err
	}
	b, err := s.barber(ctx, barberID)
	if err != nil {
		return Slot{}, false, err
	}
	return s.nextSlotFor(ctx, *b, duration, s.validator.now())
}

// SuggestAlternatives collects up to limit admissible slots for the barber:
// first on date starting at start (or opening time when start is Unset),
// then on each following day of the horizon from opening time.
func (s *Service) SuggestAlternatives(ctx context.Context, barberID uuid.UUID, date string, start timegrid.TimeOfDay, duration, limit int) ([]Slot, error) {
	duration, err := s.durationOrDefault(duration)
	if err != nil {
		return nil, err
	}
	if _, err := timegrid.ParseDate(date, s.policy.Location); err != nil {
		return nil, inputError(ReasonInvalidDate, fmt.Sprintf("invalid date %q", date), err)
	}
	b, err := s.barber(ctx, barberID)
	if err != nil {
		return nil, err
	}
	return s.suggestFor(ctx, *b, date, start, duration, limit)
}

func (s *Service) nextSlotFor(ctx context.Context, b Barber, duration int, now time.Time) (Slot, bool, error) {
	today := timegrid.DateOf(now)

	for d := 0; d <= s.policy.LookaheadDays; d++ {
		date, err := timegrid.AddDays(today, d)
		if err != nil {
			return Slot{}, false, err
		}

		from := b.WorkingHours.Start
		if d == 0 {
			if earliest := s.earliestToday(now); earliest > from {
				from = earliest
			}
		}
		if from.Add(duration) > b.WorkingHours.End {
			continue
		}

		existing, err := s.repo.ListAppointmentsForBarberOnDate(ctx, b.ID, date)
		if err != nil {
			return Slot{}, false, repositoryError("list barber appointments", err)
		}
		if t, ok := s.firstAdmissible(b, date, from, duration, existing); ok {
			return Slot{Date: date, Time: t}, true, nil
		}
	}
	return Slot{}, false, nil
}

func (s *Service) suggestFor(ctx context.Context, b Barber, date string, start timegrid.TimeOfDay, duration, limit int) ([]Slot, error) {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	collected := make([]Slot, 0, limit)

	for d := 0; d <= s.policy.LookaheadDays && len(collected) < limit; d++ {
		day, err := timegrid.AddDays(date, d)
		if err != nil {
			return nil, inputError(ReasonInvalidDate, fmt.Sprintf("invalid date %q", date), err)
		}
		existing, err := s.repo.ListAppointmentsForBarberOnDate(ctx, b.ID, day)
		if err != nil {
			return nil, repositoryError("list barber appointments", err)
		}

		from := b.WorkingHours.Start
		if d == 0 && start.IsSet() {
			from = start
		}
		for t := range IterSlots(from, b.WorkingHours.End, s.policy.SlotStepMinutes, duration) {
			if !s.validator.Admissible(day, t, duration, b, existing) {
				continue
			}
			collected = append(collected, Slot{Date: day, Time: t})
			if len(collected) >= limit {
				break
			}
		}
	}
	return collected, nil
}

func (s *Service) firstAdmissible(b Barber, date string, from timegrid.TimeOfDay, duration int, existing []Appointment) (timegrid.TimeOfDay, bool) {
	for t := range IterSlots(from, b.WorkingHours.End, s.policy.SlotStepMinutes, duration) {
		if s.validator.Admissible(date, t, duration, b, existing) {
			return t, true
		}
	}
	return timegrid.Unset, false
}

// earliestToday is now+lead time with seconds dropped, rounded up to the
// slot grid. It exceeds 24:00 when the lead time crosses midnight.
func (s *Service) earliestToday(now time.Time) timegrid.TimeOfDay {
	ready := now.Add(s.policy.LeadTime)
	t := timegrid.MinutesSinceMidnight(ready)
	if timegrid.DateOf(ready) != timegrid.DateOf(now) {
		t = t.Add(24 * 60)
	}
	return timegrid.CeilToStep(t, s.policy.SlotStepMinutes)
}
