package rank

import (
	"strings"

	glance "github.com/Paranoid-AF/glance"
)

// Base tiers. A command that reaches none of them is excluded.
const (
	scoreExact    = 100
	scorePrefix   = 50
	scoreContains = 20
)

// Context boosts applied on top of the base tier.
const (
	boostMatchingType = 50
	penaltyRivalType  = -20
	boostDefinition   = 40
	boostUniversal    = 10
)

// stems are the substrings checked against a command's tag, label and
// keywords when its category is not set explicitly.
var stems = map[glance.Category]string{
	glance.CategoryCurrency:    "currency",
	glance.CategoryUnit:        "unit",
	glance.CategoryTime:        "time",
	glance.CategoryDefinition:  "defin",
	glance.CategoryTranslation: "translat",
	glance.CategoryAnalysis:    "analy",
}

// ScoredCommand pairs a command with its score for one ranking pass.
type ScoredCommand struct {
	Command glance.Command
	Score   int
}

// Score returns the relevance of cmd for query under tc. Zero means the
// command does not match the query at all; boosted scores may be negative.
func Score(cmd glance.Command, query string, tc TextContext) int {
	score, _ := score(cmd, query, tc)
	return score
}

// score returns the accumulated score and whether the base tier matched.
func score(cmd glance.Command, query string, tc TextContext) (int, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	label := strings.ToLower(cmd.Label)

	var total int
	switch {
	case label == q:
		total = scoreExact
	case strings.HasPrefix(label, q):
		total = scorePrefix
	case strings.Contains(label, q) || strings.Contains(strings.ToLower(cmd.Description), q):
		total = scoreContains
	default:
		return 0, false
	}

	if !tc.IsValid {
		return total, true
	}

	if tc.IsCurrency {
		if InCategory(cmd, glance.CategoryCurrency) {
			total += boostMatchingType
		}
		if InCategory(cmd, glance.CategoryUnit) {
			total += penaltyRivalType
		}
	}
	if tc.IsUnit {
		if InCategory(cmd, glance.CategoryUnit) {
			total += boostMatchingType
		}
		if InCategory(cmd, glance.CategoryCurrency) {
			total += penaltyRivalType
		}
	}
	if tc.IsTime && InCategory(cmd, glance.CategoryTime) {
		total += boostMatchingType
	}
	if tc.IsSingleWord && InCategory(cmd, glance.CategoryDefinition) {
		total += boostDefinition
	}
	if IsUniversal(cmd) {
		total += boostUniversal
	}
	return total, true
}

// InCategory reports whether cmd belongs to cat. The explicit category wins;
// otherwise the category stem is looked for in the variant tag, then the
// label, then the keywords, all case-insensitively.
func InCategory(cmd glance.Command, cat glance.Category) bool {
	if cat == glance.CategoryGeneral {
		return cmd.Category == glance.CategoryGeneral
	}
	if cmd.Category != glance.CategoryGeneral {
		return cmd.Category == cat
	}
	stem, ok := stems[cat]
	if !ok {
		return false
	}
	if cmd.Variant != nil && strings.Contains(strings.ToLower(cmd.Variant.Tag()), stem) {
		return true
	}
	if strings.Contains(strings.ToLower(cmd.Label), stem) {
		return true
	}
	for _, kw := range cmd.Keywords {
		if strings.Contains(strings.ToLower(kw), stem) {
			return true
		}
	}
	return false
}

// IsUniversal reports whether cmd is useful for any kind of captured text.
func IsUniversal(cmd glance.Command) bool {
	return InCategory(cmd, glance.CategoryTranslation) || InCategory(cmd, glance.CategoryAnalysis)
}
