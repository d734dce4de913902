package palette

import (
	"context"
	"sort"
	"sync"
	"time"

	glance "github.com/Paranoid-AF/glance"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due, in
// deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeWM struct {
	mu      sync.Mutex
	hides   int
	ignores []bool
	hideErr error
}

func (w *fakeWM) HideWindow() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hides++
	return w.hideErr
}

func (w *fakeWM) SetIgnoreCursorEvents(ignore bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ignores = append(w.ignores, ignore)
	return nil
}

func (w *fakeWM) hideCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hides
}

func (w *fakeWM) pushed() []bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]bool(nil), w.ignores...)
}

type fakeBackend struct {
	mu sync.Mutex

	clipboard  string
	selection  string
	captureErr error
	// captureFn overrides the fields above when set.
	captureFn func(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error)

	commands   []glance.Command
	catalogErr error
	hints      []string

	result  glance.ActionResult
	execErr error
	// execFn overrides result and execErr when set.
	execFn    func(ctx context.Context, action glance.ActionType, text string) (glance.ActionResult, error)
	execCalls []string

	usage     []string
	usageErr  error
	widgets   []glance.WidgetType
	widgetErr error
	pasted    []string
}

func (b *fakeBackend) CaptureText(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error) {
	b.mu.Lock()
	fn := b.captureFn
	text := b.clipboard
	if mode == glance.CaptureSelection {
		text = b.selection
	}
	err := b.captureErr
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, mode)
	}
	if err != nil {
		return glance.Capture{}, err
	}
	return glance.Capture{Text: text, Source: mode}, nil
}

func (b *fakeBackend) LoadCommandCatalog(ctx context.Context, hint string) ([]glance.Command, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hints = append(b.hints, hint)
	if b.catalogErr != nil {
		return nil, b.catalogErr
	}
	return b.commands, nil
}

func (b *fakeBackend) ExecuteAction(ctx context.Context, action glance.ActionType, text string) (glance.ActionResult, error) {
	b.mu.Lock()
	b.execCalls = append(b.execCalls, text)
	fn := b.execFn
	res, err := b.result, b.execErr
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, action, text)
	}
	return res, err
}

func (b *fakeBackend) RecordUsage(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage = append(b.usage, id)
	return b.usageErr
}

func (b *fakeBackend) OpenWidget(ctx context.Context, widget glance.WidgetType) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.widgets = append(b.widgets, widget)
	return b.widgetErr
}

func (b *fakeBackend) Paste(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pasted = append(b.pasted, text)
	return nil
}

func (b *fakeBackend) snapshotHints() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hints...)
}

func (b *fakeBackend) snapshotExecCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.execCalls...)
}

func testCommands() []glance.Command {
	return []glance.Command{
		{ID: "action.translate", Label: "Translate", Category: glance.CategoryTranslation, Variant: glance.Action{Type: glance.ActionTranslate}},
		{ID: "action.currency", Label: "Convert Currency", Category: glance.CategoryCurrency, Variant: glance.Action{Type: glance.ActionConvertCurrency}},
		{ID: "widget.translator", Label: "Translator", Category: glance.CategoryTranslation, Variant: glance.Widget{Type: "translator"}},
		{ID: "widget.settings", Label: "Settings", Variant: glance.Widget{Type: "settings"}},
	}
}
