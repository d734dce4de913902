package rank

import glance "github.com/Paranoid-AF/glance"

const (
	// SuggestedCount is how many actions are lifted into the suggested section.
	SuggestedCount = 4
	// ClipboardDisplayCount is how many clipboard entries the palette shows.
	ClipboardDisplayCount = 5
)

// Sections is the display partition of a ranked command list.
type Sections struct {
	// Suggested holds the first SuggestedCount actions.
	Suggested []glance.Command
	// Widgets holds every ranked widget command.
	Widgets []glance.Command
	// Actions holds the actions not already in Suggested.
	Actions []glance.Command
	// Clipboard holds recent clipboard entries; only filled for an empty query.
	Clipboard []glance.ClipboardEntry
}

// Sectionize partitions ranked commands for display. Relative order is
// preserved inside every section. Commands without a variant cannot run and
// are left out. The clipboard section is shown only when query is exactly
// empty, matching ShortcutIndex.
func Sectionize(ranked []glance.Command, query string, clipboard []glance.ClipboardEntry) Sections {
	var s Sections
	var actions []glance.Command
	for _, cmd := range ranked {
		if cmd.Variant == nil {
			continue
		}
		if cmd.Kind() == glance.KindAction {
			actions = append(actions, cmd)
		} else {
			s.Widgets = append(s.Widgets, cmd)
		}
	}

	n := min(SuggestedCount, len(actions))
	s.Suggested = actions[:n:n]
	s.Actions = actions[n:]

	if query == "" && len(clipboard) > 0 {
		s.Clipboard = clipboard[:min(ClipboardDisplayCount, len(clipboard))]
	}
	return s
}

// Flatten returns the selectable commands in display order: suggested,
// widgets, then the remaining actions.
func (s Sections) Flatten() []glance.Command {
	out := make([]glance.Command, 0, len(s.Suggested)+len(s.Widgets)+len(s.Actions))
	out = append(out, s.Suggested...)
	out = append(out, s.Widgets...)
	out = append(out, s.Actions...)
	return out
}

// ShortcutIndex maps a clipboard shortcut key ("1".."5") to a 0-based entry
// index. Shortcuts only apply while the query is empty and the entry exists.
func ShortcutIndex(query, key string, entries int) (int, bool) {
	if query != "" {
		return 0, false
	}
	if len(key) != 1 || key[0] < '1' || key[0] > '0'+ClipboardDisplayCount {
		return 0, false
	}
	idx := int(key[0] - '1')
	if idx >= min(entries, ClipboardDisplayCount) {
		return 0, false
	}
	return idx, true
}
