package rank

import (
	"strings"

	"github.com/agnivade/levenshtein"

	glance "github.com/Paranoid-AF/glance"
)

// Suggest returns the label closest to query when nothing matched it, for a
// "did you mean" hint. It never changes what Rank returns.
func Suggest(commands []glance.Command, query string) (string, bool) {
	q := []rune(strings.ToLower(strings.TrimSpace(query)))
	if len(q) < 3 {
		return "", false
	}
	maxDist := len(q) / 3
	if maxDist < 1 {
		maxDist = 1
	}

	best := ""
	bestDist := maxDist + 1
	for _, cmd := range commands {
		// Compare against the label prefix of the same length so a short
		// typo still finds a long label.
		candidate := []rune(strings.ToLower(cmd.Label))
		if len(candidate) > len(q) {
			candidate = candidate[:len(q)]
		}
		d := levenshtein.ComputeDistance(string(q), string(candidate))
		if d < bestDist {
			best, bestDist = cmd.Label, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
