package booking

import (
	"regexp"
	"strings"
)

// phoneRe accepts international or French national formats after
// separator stripping. The upstream NLU emits roughly E.164 but garbles
// punctuation.
var phoneRe = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

// NormalizePhone strips separators so equality checks and duplicate
// lookups are stable across NLU formatting variants.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range strings.TrimSpace(phone) {
		if c == '+' || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ValidPhone reports whether a normalized phone number is plausible.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(NormalizePhone(phone))
}

// ConfidenceScore rates how trustworthy the extracted fields look, 0-1.
// The score drops for a single-word name, an implausible phone number
// and hedging words the NLU sometimes passes through verbatim.
func ConfidenceScore(name, phone, specialRequests string) float64 {
	score := 1.0

	words := strings.Fields(strings.TrimSpace(name))
	switch {
	case len(words) == 0:
		score -= 0.5
	case len(words) == 1:
		score -= 0.2
	}

	if !ValidPhone(phone) {
		score -= 0.3
	}

	// Hedging phrases leaking from the transcript signal a shaky
	// extraction.
	lower := strings.ToLower(name + " " + specialRequests)
	for _, marker := range []string{"je crois", "peut-être", "euh", "je sais pas"} {
		if strings.Contains(lower, marker) {
			score -= 0.15
			break
		}
	}

	if score < 0 {
		return 0
	}
	return score
}

// needsConfirmationThreshold flags reservations for manual review.
const needsConfirmationThreshold = 0.7
