package stripe

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mihaimyh/sheetsync/pkg/billing"
)

var subscriptionStatusLabels = map[string]string{
	"active":             billing.StatusActive,
	"trialing":           billing.StatusTrial,
	"past_due":           billing.StatusPastDue,
	"canceled":           billing.StatusCancelled,
	"unpaid":             billing.StatusUnpaid,
	"incomplete":         billing.StatusIncomplete,
	"incomplete_expired": billing.StatusExpired,
	"paused":             billing.StatusPaused,
}

// MapSubscriptionStatus maps a Stripe subscription status to its status label.
// Lookup is case-insensitive; unknown statuses are title-cased and passed through.
func MapSubscriptionStatus(status string) string {
	if label, ok := subscriptionStatusLabels[strings.ToLower(status)]; ok {
		return label
	}
	return titleWords(status)
}

// titleWords title-cases every run of letters, so "past_due2x" becomes
// "Past_Due2X". Anything that is not a letter starts a new word.
func titleWords(s string) string {
	// A Caser keeps state, so one is built per call
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(s))
	start := -1
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
		} else {
			if start >= 0 {
				b.WriteString(caser.String(s[start:i]))
				start = -1
			}
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}
