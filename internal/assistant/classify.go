package assistant

import (
	"slices"
	"strings"
)

type keywordRule struct {
	intent   string
	keywords []string
}

// Rules are tried in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{IntentSmallTalk, []string{"hello", "hi", "hey"}},
	{IntentListServices, []string{"service", "services", "offer", "offers", "prices", "pricing", "price", "menu"}},
	{IntentListBarbers, []string{"barber", "barbers", "stylists", "stylist", "team", "worker", "workers"}},
	{IntentBook, []string{"book", "books", "bok", "set up", "reserve", "fix", "make", "schedule"}},
	{IntentCancel, []string{"cancel", "delete", "remove", "drop"}},
	{IntentView, []string{"view", "see", "upcoming", "show", "my appointments"}},
}

// Classify picks an intent from keywords when no classifier result is
// available. Unmatched messages are small talk.
func Classify(message string) string {
	text := " " + strings.Join(wordRE.FindAllString(strings.ToLower(message), -1), " ") + " "
	words := strings.Fields(text)

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(text, " "+kw+" ") {
					return rule.intent
				}
				continue
			}
			if slices.Contains(words, kw) {
				return rule.intent
			}
		}
	}
	return IntentSmallTalk
}
