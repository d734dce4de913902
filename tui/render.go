package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	glance "github.com/Paranoid-AF/glance"
	"github.com/Paranoid-AF/glance/palette"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")).Bold(true)
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("#1e1e2e")).Background(lipgloss.Color("#a6e3a1"))
	descStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#45475a"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	popoverStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSections(snap palette.Snapshot, width int) string {
	s := snap.Session
	if s.LoadingCommands && len(s.Commands) == 0 {
		return hintStyle.Render("loading…") + "\n"
	}

	selected := ""
	if s.Selection != nil {
		selected = s.Selection.ID
	}

	var b strings.Builder
	section := func(title string, cmds []glance.Command) {
		if len(cmds) == 0 {
			return
		}
		b.WriteString(headerStyle.Render(title))
		b.WriteString("\n")
		for _, c := range cmds {
			line := c.Label
			if c.Description != "" {
				line += "  " + descStyle.Render(truncate(c.Description, width-lipgloss.Width(c.Label)-8))
			}
			if c.ID == selected {
				b.WriteString(selectedStyle.Render("› " + c.Label))
			} else {
				b.WriteString(itemStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}
	section("Suggested", snap.Sections.Suggested)
	section("Widgets", snap.Sections.Widgets)
	section("Actions", snap.Sections.Actions)

	if len(snap.Sections.Clipboard) > 0 {
		b.WriteString(headerStyle.Render("Clipboard"))
		b.WriteString("\n")
		for i, e := range snap.Sections.Clipboard {
			b.WriteString(itemStyle.Render(fmt.Sprintf("%d  %s", i+1, truncate(e.Preview, width-8))))
			b.WriteString("\n")
		}
	}

	if len(snap.Visible) == 0 && len(snap.Sections.Clipboard) == 0 {
		b.WriteString(hintStyle.Render("No matching commands"))
		b.WriteString("\n")
		if snap.DidYouMean != "" {
			b.WriteString(hintStyle.Render(fmt.Sprintf("Did you mean %q?", snap.DidYouMean)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderPopover(p palette.Popover, width int) string {
	style := popoverStyle.Width(max(20, width-4))
	switch p.State {
	case palette.PopoverProcessing:
		return style.Render(hintStyle.Render("Working…"))
	case palette.PopoverSuccess:
		return style.Render(p.Content)
	case palette.PopoverError:
		return style.BorderForeground(lipgloss.Color("#f38ba8")).Render(errorStyle.Render(p.Content))
	}
	return ""
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	if n <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
