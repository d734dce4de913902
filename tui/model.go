package main

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Paranoid-AF/glance/palette"
	"github.com/Paranoid-AF/glance/rank"
)

// changedMsg reports that the controller state changed.
type changedMsg struct{}

// activatedMsg carries the outcome of running a command.
type activatedMsg struct{ err error }

// teaWindow records what the controller and overlay asked of the window.
// Both may call it from goroutines other than the program's.
type teaWindow struct {
	hidden atomic.Bool
	// ignore is set while the pointer is outside the palette and popover.
	// A terminal cannot pass clicks through, so it only dims the hint line.
	ignore atomic.Bool
}

func (w *teaWindow) HideWindow() error {
	w.hidden.Store(true)
	return nil
}

func (w *teaWindow) SetIgnoreCursorEvents(ignore bool) error {
	w.ignore.Store(ignore)
	return nil
}

type model struct {
	ctx     context.Context
	ctrl    *palette.Controller
	overlay *palette.Overlay
	win     *teaWindow
	changes chan struct{}

	input  textinput.Model
	snap   palette.Snapshot
	status string
	width  int
}

// newModel builds the model over backend. A nil clock means real time.
func newModel(ctx context.Context, backend palette.Backend, clock palette.Clock) *model {
	in := textinput.New()
	in.Placeholder = "Type a command…"
	in.Prompt = "› "
	in.CharLimit = 200
	in.Width = 50
	in.Focus()

	m := &model{
		ctx:     ctx,
		win:     &teaWindow{},
		changes: make(chan struct{}, 1),
		input:   in,
		width:   60,
	}
	m.ctrl = palette.NewController(backend, m.win, palette.Options{
		Clock: clock,
		OnChange: func() {
			select {
			case m.changes <- struct{}{}:
			default:
			}
		},
	})
	m.overlay = palette.NewOverlay(m.win, clock, m.ctrl.Hide)
	return m
}

// close stops the overlay and controller timers.
func (m *model) close() {
	m.overlay.Close()
	m.ctrl.Close()
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange(), m.focus())
}

// waitForChange delivers the next controller change to Update.
func (m *model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *model) focus() tea.Cmd {
	m.win.hidden.Store(false)
	m.input.SetValue("")
	return func() tea.Msg {
		m.ctrl.Focus(m.ctx)
		return nil
	}
}

func (m *model) activate(id string) tea.Cmd {
	return func() tea.Msg {
		if id == "" {
			return activatedMsg{err: m.ctrl.ActivateHighlighted(m.ctx)}
		}
		return activatedMsg{err: m.ctrl.Activate(m.ctx, id)}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-6)
		return m, nil

	case changedMsg:
		m.snap = m.ctrl.Snapshot()
		return m, m.waitForChange()

	case activatedMsg:
		m.status = ""
		if msg.err != nil && m.snap.Session.Popover.State == palette.PopoverClosed {
			m.status = msg.err.Error()
		}
		return m, nil

	case tea.FocusMsg:
		m.overlay.Focus()
		return m, m.focus()

	case tea.BlurMsg:
		m.overlay.Blur()
		return m, nil

	case tea.MouseMsg:
		m.overlay.PointerMoved(float64(msg.X), float64(msg.Y))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.win.hidden.Load() {
		// any key brings the palette back
		return m, m.focus()
	}

	switch msg.Type {
	case tea.KeyEsc:
		if m.snap.Session.Popover.State != palette.PopoverClosed {
			m.ctrl.DismissPopover()
		} else {
			m.ctrl.Hide()
		}
		return m, nil
	case tea.KeyUp, tea.KeyCtrlP, tea.KeyShiftTab:
		m.ctrl.MoveHighlight(-1)
		return m, nil
	case tea.KeyDown, tea.KeyCtrlN, tea.KeyTab:
		m.ctrl.MoveHighlight(1)
		return m, nil
	case tea.KeyEnter:
		return m, m.activate("")
	case tea.KeyCtrlR:
		return m, m.focus()
	case tea.KeyRunes:
		key := string(msg.Runes)
		if _, ok := rank.ShortcutIndex(m.input.Value(), key, len(m.snap.Sections.Clipboard)); ok {
			return m, func() tea.Msg {
				m.ctrl.HandleShortcut(m.ctx, key)
				return nil
			}
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.ctrl.SetQuery(after)
	}
	return m, cmd
}

func (m *model) View() string {
	if m.win.hidden.Load() {
		m.overlay.SetRegions(palette.Rect{}, nil)
		return hintStyle.Render("palette hidden · any key to reopen · ctrl+c to quit") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("glance"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if t := strings.Join(strings.Fields(m.snap.Session.CapturedText), " "); t != "" {
		b.WriteString(hintStyle.Render("captured: " + truncate(t, m.width-12)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderSections(m.snap, m.width))

	rows := strings.Count(b.String(), "\n")
	var pop *palette.Rect
	if p := renderPopover(m.snap.Session.Popover, m.width); p != "" {
		b.WriteString("\n")
		pop = &palette.Rect{
			Y: float64(rows + 1),
			W: float64(lipgloss.Width(p)),
			H: float64(lipgloss.Height(p)),
		}
		b.WriteString(p)
		b.WriteString("\n")
	}
	m.overlay.SetRegions(palette.Rect{W: float64(m.width), H: float64(rows)}, pop)

	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	hint := "↑/↓ move · enter run · esc close · ctrl+r recapture · ctrl+c quit"
	if m.win.ignore.Load() {
		b.WriteString(dimStyle.Render(hint))
	} else {
		b.WriteString(hintStyle.Render(hint))
	}
	return b.String()
}
