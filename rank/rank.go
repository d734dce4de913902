package rank

import (
	"sort"
	"strings"

	glance "github.com/Paranoid-AF/glance"
)

// Rank filters and orders commands for query. An empty or whitespace-only
// query returns commands unchanged, in catalog order, without classifying
// capturedText. Otherwise commands that match the query lexically are
// returned by descending score, ties kept in catalog order.
func Rank(commands []glance.Command, query, capturedText string) []glance.Command {
	if strings.TrimSpace(query) == "" {
		return commands
	}
	scored := ScoreAll(commands, query, Classify(capturedText))
	out := make([]glance.Command, len(scored))
	for i, s := range scored {
		out[i] = s.Command
	}
	return out
}

// ScoreAll scores every command against query under tc, drops the ones
// with no lexical match and stable-sorts the rest by descending score.
func ScoreAll(commands []glance.Command, query string, tc TextContext) []ScoredCommand {
	out := make([]ScoredCommand, 0, len(commands))
	for _, cmd := range commands {
		s, matched := score(cmd, query, tc)
		if !matched {
			continue
		}
		out = append(out, ScoredCommand{Command: cmd, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
