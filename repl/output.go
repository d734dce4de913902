package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	glance "github.com/Paranoid-AF/glance"
	"github.com/Paranoid-AF/glance/palette"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	_, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n")))
	return len(p), err // report original length to caller
}

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

// termWindow stands in for the overlay window: hiding is printed, and the
// ignore-cursor flag is tracked.
type termWindow struct {
	w      io.Writer
	hidden bool
	ignore bool
}

func (t *termWindow) HideWindow() error {
	t.hidden = true
	fmt.Fprintf(t.w, "[palette hidden]\r\n")
	return nil
}

func (t *termWindow) SetIgnoreCursorEvents(ignore bool) error {
	t.ignore = ignore
	return nil
}

func (t *termWindow) show() {
	if t.hidden {
		t.hidden = false
		fmt.Fprintf(t.w, "[palette shown]\r\n")
	}
}

// render draws the palette view on the tty.
func render(w io.Writer, snap palette.Snapshot) {
	fmt.Fprint(w, crlf(view(snap)))
}

func view(snap palette.Snapshot) string {
	var b strings.Builder
	s := snap.Session
	if snap.State == palette.StateHidden {
		b.WriteString("(hidden; any command shows the palette)\n\n")
		return b.String()
	}

	fmt.Fprintf(&b, "captured: %q\n", oneLine(s.CapturedText))
	if s.LoadingCommands {
		b.WriteString("loading commands...\n")
	}

	selected := ""
	if s.Selection != nil {
		selected = s.Selection.ID
	}
	section := func(title string, cmds []glance.Command) {
		if len(cmds) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s\n", title)
		for _, c := range cmds {
			mark := " "
			if c.ID == selected {
				mark = ">"
			}
			fmt.Fprintf(&b, " %s %-20s %s\n", mark, c.ID, c.Label)
		}
	}
	section("suggested", snap.Sections.Suggested)
	section("widgets", snap.Sections.Widgets)
	section("actions", snap.Sections.Actions)

	if len(snap.Sections.Clipboard) > 0 {
		b.WriteString("clipboard\n")
		for i, e := range snap.Sections.Clipboard {
			fmt.Fprintf(&b, "   %d %s\n", i+1, e.Preview)
		}
	}

	if len(snap.Visible) == 0 && !s.LoadingCommands {
		b.WriteString("(no commands)\n")
		if snap.DidYouMean != "" {
			fmt.Fprintf(&b, "did you mean %q?\n", snap.DidYouMean)
		}
	}

	switch s.Popover.State {
	case palette.PopoverProcessing:
		b.WriteString("[...]\n")
	case palette.PopoverSuccess:
		fmt.Fprintf(&b, "[ok] %s\n", s.Popover.Content)
	case palette.PopoverError:
		fmt.Fprintf(&b, "[error] %s\n", s.Popover.Content)
	}
	b.WriteString("\n")
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// entry is one TOML record of a REPL step.
type entry struct {
	Request entryRequest  `toml:"request"`
	Palette entryPalette  `toml:"palette"`
	Popover *entryPopover `toml:"popover,omitempty"`
	Error   string        `toml:"error,omitempty"`
}

type entryRequest struct {
	Timestamp time.Time `toml:"timestamp"`
	Input     string    `toml:"input"`
}

type entryPalette struct {
	State      string   `toml:"state"`
	Query      string   `toml:"query"`
	Captured   string   `toml:"captured"`
	Selected   string   `toml:"selected,omitempty"`
	Suggested  []string `toml:"suggested"`
	Widgets    []string `toml:"widgets"`
	Actions    []string `toml:"actions"`
	Clipboard  []string `toml:"clipboard,omitempty"`
	DidYouMean string   `toml:"did_you_mean,omitempty"`
}

type entryPopover struct {
	State   string `toml:"state"`
	Content string `toml:"content"`
}

func ids(cmds []glance.Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.ID)
	}
	return out
}

func newEntry(input string, snap palette.Snapshot, opErr error) entry {
	s := snap.Session
	e := entry{
		Request: entryRequest{Timestamp: time.Now().Truncate(time.Second), Input: input},
		Palette: entryPalette{
			State:      snap.State.String(),
			Query:      s.Query,
			Captured:   s.CapturedText,
			Suggested:  ids(snap.Sections.Suggested),
			Widgets:    ids(snap.Sections.Widgets),
			Actions:    ids(snap.Sections.Actions),
			DidYouMean: snap.DidYouMean,
		},
	}
	if s.Selection != nil {
		e.Palette.Selected = s.Selection.ID
	}
	for _, c := range snap.Sections.Clipboard {
		e.Palette.Clipboard = append(e.Palette.Clipboard, c.Preview)
	}
	if s.Popover.State != palette.PopoverClosed {
		e.Popover = &entryPopover{State: s.Popover.State.String(), Content: s.Popover.Content}
	}
	if opErr != nil {
		e.Error = opErr.Error()
	}
	return e
}

// writeEntry writes a single TOML-formatted record to w.
func writeEntry(w io.Writer, input string, snap palette.Snapshot, opErr error) {
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("═", 60))
	if err := toml.NewEncoder(w).Encode(newEntry(input, snap, opErr)); err != nil {
		slog.Warn("failed to write entry", "error", err)
	}
	fmt.Fprintln(w)
}
