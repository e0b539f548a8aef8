// Package timegrid holds the wall-clock arithmetic the scheduler works in:
// shop-local dates as YYYY-MM-DD strings and times of day as minutes since
// midnight.
package timegrid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time")
)

// TimeOfDay is a shop-local wall-clock time in minutes since midnight.
// Arithmetic does not wrap at midnight; values past 24:00 simply compare
// greater than any closing time.
type TimeOfDay int

// Unset marks an absent time of day (no time requested, or "as soon as possible").
const Unset TimeOfDay = -1

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ParseTimeOfDay parses a strict 24-hour "HH:MM" value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := hhmm.FindStringSubmatch(s)
	if m == nil {
		return Unset, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return Clock(h, minute), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Clock builds a TimeOfDay from hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) IsSet() bool {
	return t >= 0
}

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	if !t.IsSet() {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// AddMinutes is wall-clock HH:MM arithmetic without day rollover.
func AddMinutes(t TimeOfDay, minutes int) TimeOfDay {
	return t.Add(minutes)
}

// Overlaps reports whether [startA, startA+durationA) and [startB, startB+durationB)
// intersect. Touching endpoints do not overlap.
func Overlaps(startA TimeOfDay, durationA int, startB TimeOfDay, durationB int) bool {
	return startA < startB.Add(durationB) && startB < startA.Add(durationA)
}

// CeilToStep rounds t up to the next multiple of step minutes.
func CeilToStep(t TimeOfDay, step int) TimeOfDay {
	if step <= 0 {
		return t
	}
	if over := int(t) % step; over != 0 {
		return t.Add(step - over)
	}
	return t
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return d, nil
}

// ToLocalDateTime combines a date and time of day into an instant in loc.
func ToLocalDateTime(date string, t TimeOfDay, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	if !t.IsSet() {
		return time.Time{}, fmt.Errorf("%w: unset", ErrInvalidTime)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), int(t)/60, int(t)%60, 0, 0, loc), nil
}

// AddDays shifts a YYYY-MM-DD date by n calendar days.
func AddDays(date string, n int) (string, error) {
	d, err := ParseDate(date, time.UTC)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, n).Format(DateLayout), nil
}

// DateOf formats the calendar date of ts in its own location.
func DateOf(ts time.Time) string {
	return ts.Format(DateLayout)
}

// MinutesSinceMidnight returns the whole minutes elapsed on ts's calendar day,
// dropping seconds.
func MinutesSinceMidnight(ts time.Time) TimeOfDay {
	return Clock(ts.Hour(), ts.Minute())
}
