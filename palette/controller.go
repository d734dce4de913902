// Package palette drives the command palette: it captures ambient text,
// loads and ranks the catalog, tracks the highlighted row and runs the
// chosen command. Every backend call runs outside the session lock and its
// result is applied only if no newer event superseded it.
package palette

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	glance "github.com/Paranoid-AF/glance"
	"github.com/Paranoid-AF/glance/rank"
)

// Capturer reads ambient text.
type Capturer interface {
	CaptureText(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error)
}

// CatalogLoader returns the command catalog, optionally ordered for hint.
type CatalogLoader interface {
	LoadCommandCatalog(ctx context.Context, hint string) ([]glance.Command, error)
}

// ActionRunner executes an inline action on text.
type ActionRunner interface {
	ExecuteAction(ctx context.Context, action glance.ActionType, text string) (glance.ActionResult, error)
}

// UsageRecorder records that a command was run.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, commandID string) error
}

// WidgetOpener asks the host to open a widget window.
type WidgetOpener interface {
	OpenWidget(ctx context.Context, widget glance.WidgetType) error
}

// Paster pastes text into the previously focused application.
type Paster interface {
	Paste(ctx context.Context, text string) error
}

// Backend is every capability the controller consumes.
type Backend interface {
	Capturer
	CatalogLoader
	ActionRunner
	UsageRecorder
	WidgetOpener
	Paster
}

// WindowManager controls the palette's overlay window.
type WindowManager interface {
	HideWindow() error
	SetIgnoreCursorEvents(ignore bool) error
}

// State is the controller's lifecycle state.
type State int

const (
	StateHidden State = iota
	StateFocused
	StateReady
)

func (s State) String() string {
	switch s {
	case StateFocused:
		return "focused"
	case StateReady:
		return "ready"
	}
	return "hidden"
}

// Options configures a Controller.
type Options struct {
	// Clock drives the auto-clear timer. Defaults to RealClock.
	Clock Clock
	// OnChange is called, without any lock held, after every state change.
	OnChange func()
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	State    State
	Session  Session
	Sections rank.Sections
	// Visible is the selectable commands in display order.
	Visible []glance.Command
	// DidYouMean is a label close to the query when nothing matched.
	DidYouMean string
}

// Controller is the palette state machine.
type Controller struct {
	backend  Backend
	wm       WindowManager
	clock    Clock
	onChange func()
	capture  *CapturePipeline

	// exec guards action results and the auto-clear timer.
	exec Generation

	mu         sync.Mutex
	state      State
	session    Session
	clipboard  []glance.ClipboardEntry
	clearTimer Timer
	closed     bool

	wg sync.WaitGroup
}

// NewController creates a hidden controller.
func NewController(backend Backend, wm WindowManager, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	return &Controller{
		backend:  backend,
		wm:       wm,
		clock:    opts.Clock,
		onChange: opts.OnChange,
		capture:  NewCapturePipeline(backend),
	}
}

// Mount shows the palette for the first time.
func (c *Controller) Mount(ctx context.Context) {
	c.Focus(ctx)
}

// Focus resets the session, captures ambient text and loads the catalog
// ordered for it. A newer Focus supersedes an older one still in flight.
func (c *Controller) Focus(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateFocused
	c.stopClearTimerLocked()
	c.exec.Next()
	c.session.Reset()
	c.session.LoadingCommands = true
	tok := c.capture.Begin()
	c.mu.Unlock()
	c.notify()

	captured, ok := c.capture.Run(ctx, tok)
	if !ok {
		return
	}

	c.mu.Lock()
	if !c.capture.IsCurrent(tok) {
		c.mu.Unlock()
		return
	}
	c.session.CapturedText = captured.Text
	c.mu.Unlock()
	c.notify()

	commands, err := c.backend.LoadCommandCatalog(ctx, captured.Text)
	if err != nil {
		slog.Warn("failed to load command catalog", "error", err)
		commands = nil
	}

	c.mu.Lock()
	if !c.capture.IsCurrent(tok) {
		c.mu.Unlock()
		slog.Debug("discarding stale catalog", "token", tok)
		return
	}
	c.session.Commands = commands
	c.session.LoadingCommands = false
	c.state = StateReady
	c.mu.Unlock()
	c.notify()
}

// Hide hides the palette window. Pending focus work and action results are
// dropped.
func (c *Controller) Hide() {
	c.mu.Lock()
	if c.closed || c.state == StateHidden {
		c.mu.Unlock()
		return
	}
	c.state = StateHidden
	c.stopClearTimerLocked()
	c.capture.Invalidate()
	c.exec.Next()
	c.mu.Unlock()

	if err := c.wm.HideWindow(); err != nil {
		slog.Warn("failed to hide window", "error", err)
	}
	c.notify()
}

// SetQuery updates the query. A popover that is not processing is closed,
// and a highlight that is no longer visible is dropped.
func (c *Controller) SetQuery(q string) {
	c.mu.Lock()
	c.session.Query = q
	if c.session.Popover.State != PopoverProcessing {
		c.closePopoverLocked()
	}
	if sel := c.session.Selection; sel != nil && indexOf(c.visibleLocked(), sel.ID) < 0 {
		c.session.Selection = nil
	}
	c.mu.Unlock()
	c.notify()
}

// Highlight selects the visible command id. It reports false if id is not
// visible.
func (c *Controller) Highlight(id string) bool {
	c.mu.Lock()
	visible := c.visibleLocked()
	i := indexOf(visible, id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.session.Selection = &Selection{ID: id, Kind: visible[i].Kind()}
	c.mu.Unlock()
	c.notify()
	return true
}

// MoveHighlight moves the highlight by delta rows, wrapping at both ends.
func (c *Controller) MoveHighlight(delta int) {
	c.mu.Lock()
	visible := c.visibleLocked()
	if len(visible) == 0 || delta == 0 {
		c.mu.Unlock()
		return
	}
	cur := -1
	if c.session.Selection != nil {
		cur = indexOf(visible, c.session.Selection.ID)
	}
	var next int
	switch {
	case cur < 0 && delta > 0:
		next = delta - 1
	case cur < 0:
		next = len(visible) + delta
	default:
		next = cur + delta
	}
	next %= len(visible)
	if next < 0 {
		next += len(visible)
	}
	cmd := visible[next]
	c.session.Selection = &Selection{ID: cmd.ID, Kind: cmd.Kind()}
	c.mu.Unlock()
	c.notify()
}

// ActivateHighlighted runs the highlighted command, or the first visible
// one when nothing is highlighted.
func (c *Controller) ActivateHighlighted(ctx context.Context) error {
	c.mu.Lock()
	var id string
	if c.session.Selection != nil {
		id = c.session.Selection.ID
	} else if visible := c.visibleLocked(); len(visible) > 0 {
		id = visible[0].ID
	}
	c.mu.Unlock()
	if id == "" {
		return errors.New("no command to activate")
	}
	return c.Activate(ctx, id)
}

// Activate runs the command id. Widgets are opened after hiding the
// palette; actions run inline and report into the popover. The returned
// error mirrors what the popover shows.
func (c *Controller) Activate(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("palette is closed")
	}
	cmd, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("unknown command %q", id)
	}
	c.session.Selection = &Selection{ID: cmd.ID, Kind: cmd.Kind()}
	c.mu.Unlock()
	c.notify()

	switch v := cmd.Variant.(type) {
	case glance.Widget:
		c.openWidget(ctx, cmd.ID, v)
		return nil
	case glance.Action:
		return c.runAction(ctx, cmd.ID, v)
	}
	return fmt.Errorf("command %q has no variant", id)
}

// HandleShortcut pastes the clipboard entry bound to key. It reports false,
// doing nothing, when the key is not an active shortcut.
func (c *Controller) HandleShortcut(ctx context.Context, key string) bool {
	c.mu.Lock()
	entries := c.clipboardLocked()
	idx, ok := rank.ShortcutIndex(c.session.Query, key, len(entries))
	if !ok {
		c.mu.Unlock()
		return false
	}
	entry := entries[idx]
	c.mu.Unlock()

	c.Hide()
	if err := c.backend.Paste(ctx, entry.Content); err != nil {
		slog.Warn("failed to paste clipboard entry", "id", entry.ID, "error", err)
	}
	return true
}

// DismissPopover closes the popover. An action still in flight is
// abandoned.
func (c *Controller) DismissPopover() {
	c.mu.Lock()
	c.exec.Next()
	c.session.ExecutingID = ""
	c.closePopoverLocked()
	c.mu.Unlock()
	c.notify()
}

// UpdateClipboard replaces the clipboard feed, most recent first.
func (c *Controller) UpdateClipboard(entries []glance.ClipboardEntry) {
	c.mu.Lock()
	c.clipboard = append([]glance.ClipboardEntry(nil), entries...)
	c.mu.Unlock()
	c.notify()
}

// Snapshot returns a copy of the current state with the ranked sections.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state, Session: c.session}
	if sel := c.session.Selection; sel != nil {
		cp := *sel
		snap.Session.Selection = &cp
	}
	ranked := rank.Rank(c.session.Commands, c.session.Query, c.session.CapturedText)
	snap.Sections = rank.Sectionize(ranked, c.session.Query, c.clipboard)
	snap.Visible = snap.Sections.Flatten()
	if len(ranked) == 0 && len(c.session.Commands) > 0 {
		snap.DidYouMean, _ = rank.Suggest(c.session.Commands, c.session.Query)
	}
	return snap
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops all timers and waits for background usage recording.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopClearTimerLocked()
	c.capture.Invalidate()
	c.exec.Next()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) visibleLocked() []glance.Command {
	ranked := rank.Rank(c.session.Commands, c.session.Query, c.session.CapturedText)
	return rank.Sectionize(ranked, c.session.Query, nil).Flatten()
}

func (c *Controller) clipboardLocked() []glance.ClipboardEntry {
	return rank.Sectionize(nil, c.session.Query, c.clipboard).Clipboard
}

func (c *Controller) findLocked(id string) (glance.Command, bool) {
	for _, cmd := range c.session.Commands {
		if cmd.ID == id {
			return cmd, true
		}
	}
	return glance.Command{}, false
}

func (c *Controller) closePopoverLocked() {
	c.stopClearTimerLocked()
	c.session.Popover = Popover{}
}

func (c *Controller) stopClearTimerLocked() {
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
}

func indexOf(cmds []glance.Command, id string) int {
	for i, cmd := range cmds {
		if cmd.ID == id {
			return i
		}
	}
	return -1
}
