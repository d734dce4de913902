package capture

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	glance "github.com/Paranoid-AF/glance"
)

const (
	// HistoryLimit is the number of clipboard entries retained.
	HistoryLimit = 50
	// DisplayLimit is the number of entries shown in the palette.
	DisplayLimit = 5

	previewRunes = 100
)

// History is a bounded, most-recent-first clipboard history. Adding
// content that is already present moves it to the front.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []glance.ClipboardEntry
	now     func() time.Time
}

// NewHistory creates a history holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{limit: limit, now: time.Now}
}

// Add records content and reports whether the history changed.
// Whitespace-only content and a repeat of the newest entry are ignored.
func (h *History) Add(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) > 0 && h.entries[0].Content == content {
		return false
	}

	entry := glance.ClipboardEntry{
		ID:        uuid.NewString(),
		Content:   content,
		Preview:   Preview(content),
		Timestamp: h.now(),
	}
	for i, e := range h.entries {
		if e.Content == content {
			entry.ID = e.ID
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}

	h.entries = append([]glance.ClipboardEntry{entry}, h.entries...)
	if len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
	return true
}

// Entries returns up to n entries, most recent first. n <= 0 returns all.
func (h *History) Entries(n int) []glance.ClipboardEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]glance.ClipboardEntry, n)
	copy(out, h.entries[:n])
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Preview collapses whitespace to single spaces and truncates to 100 runes.
func Preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes-1]) + "…"
}
