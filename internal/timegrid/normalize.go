package timegrid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NamedSlots maps spoken parts of the day to a concrete start time.
var NamedSlots = map[string]TimeOfDay{
	"morning":   Clock(10, 0),
	"afternoon": Clock(14, 0),
	"evening":   Clock(17, 0),
}

var asapPhrases = map[string]bool{
	"":                    true,
	"asap":                true,
	"as soon as possible": true,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var dateLayouts = []string{DateLayout, "2006/01/02", "2006-1-2", "2006/1/2"}

var spokenTime = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)

// NormalizeTime converts a user time token to a TimeOfDay. It accepts
// "14:00", "2pm", "2:30 pm", "9", and the named slots. ASAP phrases and the
// empty string yield Unset with no error.
func NormalizeTime(raw string) (TimeOfDay, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if asapPhrases[s] {
		return Unset, nil
	}
	if t, ok := NamedSlots[s]; ok {
		return t, nil
	}

	m := spokenTime.FindStringSubmatch(s)
	if m == nil {
		return Unset, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if minute > 59 {
		return Unset, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}

	switch m[3] {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return Unset, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
		if m[3] == "pm" && hour != 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return Unset, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
		}
	}
	return Clock(hour, minute), nil
}

// NormalizeDate converts a user date token to YYYY-MM-DD relative to now.
// Besides literal year-month-day dates (dash or slash, with or without
// zero padding) it understands "today", "tomorrow" and
// weekday names; a weekday equal to today's means the same day next week.
// The empty string yields "" with no error.
func NormalizeDate(raw string, now time.Time) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "":
		return "", nil
	case "today":
		return DateOf(now), nil
	case "tomorrow":
		return DateOf(now.AddDate(0, 0, 1)), nil
	}
	if wd, ok := weekdays[s]; ok {
		return DateOf(now.AddDate(0, 0, DaysUntil(now.Weekday(), wd))), nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// DaysUntil counts days from one weekday to the next occurrence of another,
// in 1..7.
func DaysUntil(from, to time.Weekday) int {
	ahead := (int(to) - int(from) + 7) % 7
	if ahead == 0 {
		ahead = 7
	}
	return ahead
}

// Weekday looks up a lower-case weekday name.
func Weekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[name]
	return wd, ok
}
