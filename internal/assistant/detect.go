package assistant

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

var (
	literalDate = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	clockTime   = regexp.MustCompile(`\b(at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	wordRE      = regexp.MustCompile(`[a-z]+`)
)

var weekdayOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// namedSlotOrder fixes the lookup order so "evening" in "tomorrow evening" is
// found deterministically.
var namedSlotOrder = []string{"morning", "afternoon", "evening"}

// DetectDateTime pulls a date and a time of day out of free text, relative to
// now. Either result is "" when the message does not mention one. The date
// is YYYY-MM-DD and the time HH:MM.
func DetectDateTime(message string, now time.Time) (date, clock string) {
	text := strings.ToLower(message)

	if m := literalDate.FindString(text); m != "" {
		if d, err := timegrid.NormalizeDate(m, now); err == nil {
			date = d
		}
		text = strings.Replace(text, m, " ", 1)
	}

	if date == "" {
		words := wordRE.FindAllString(text, -1)
		switch {
		case slices.Contains(words, "today"):
			date = timegrid.DateOf(now)
		case slices.Contains(words, "tomorrow"):
			date = timegrid.DateOf(now.AddDate(0, 0, 1))
		default:
			for _, name := range weekdayOrder {
				if !slices.Contains(words, name) {
					continue
				}
				wd, _ := timegrid.Weekday(name)
				date = timegrid.DateOf(now.AddDate(0, 0, timegrid.DaysUntil(now.Weekday(), wd)))
				break
			}
		}
	}

	if strings.Contains(text, "as soon as possible") || slices.Contains(wordRE.FindAllString(text, -1), "asap") {
		return date, ""
	}
	for _, name := range namedSlotOrder {
		if strings.Contains(text, name) {
			return date, timegrid.NamedSlots[name].String()
		}
	}

	for _, m := range clockTime.FindAllStringSubmatch(text, -1) {
		if t, ok := parseClock(m); ok {
			return date, t.String()
		}
	}
	return date, ""
}

// parseClock accepts a bare hour only after "at", so "for 2 people" is not
// read as 02:00.
func parseClock(m []string) (timegrid.TimeOfDay, bool) {
	at, hour, minute, meridiem := m[1], m[2], m[3], m[4]
	if at == "" && minute == "" && meridiem == "" {
		return timegrid.Unset, false
	}
	raw := hour
	if minute != "" {
		raw += ":" + minute
	}
	t, err := timegrid.NormalizeTime(raw + meridiem)
	if err != nil {
		return timegrid.Unset, false
	}
	return t, true
}
