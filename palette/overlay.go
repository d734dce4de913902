package palette

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// BlurSettle is how long after flipping to click-through a blur is
	// still attributed to the flip rather than to the user.
	BlurSettle = 50 * time.Millisecond
	// HideDelay is how long a genuine blur waits before hiding the palette.
	HideDelay = 100 * time.Millisecond
)

// Rect is an axis-aligned screen region.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether the point lies inside r. The right and bottom
// edges are exclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Overlay keeps a transparent overlay window click-through everywhere
// except over the palette and the popover, and hides the palette after a
// genuine loss of focus.
type Overlay struct {
	wm    WindowManager
	clock Clock
	hide  func()

	hideGen Generation

	mu        sync.Mutex
	palette   Rect
	popover   *Rect
	ignore    bool
	flippedAt time.Time
	hideTimer Timer
	closed    bool
}

// NewOverlay creates an overlay that calls hide when the palette should go
// away. The window starts out receiving pointer events.
func NewOverlay(wm WindowManager, clock Clock, hide func()) *Overlay {
	if clock == nil {
		clock = RealClock()
	}
	return &Overlay{wm: wm, clock: clock, hide: hide}
}

// SetRegions updates the interactive regions. popover is nil while the
// popover is closed.
func (o *Overlay) SetRegions(palette Rect, popover *Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.palette = palette
	if popover != nil {
		r := *popover
		o.popover = &r
	} else {
		o.popover = nil
	}
}

// PointerMoved recomputes the click-through flag for a pointer at (x, y).
// The window manager is told only when the flag changes.
func (o *Overlay) PointerMoved(x, y float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	inside := o.palette.Contains(x, y) || (o.popover != nil && o.popover.Contains(x, y))
	ignore := !inside
	if ignore == o.ignore {
		return
	}
	o.ignore = ignore
	if ignore {
		o.flippedAt = o.clock.Now()
	}
	if err := o.wm.SetIgnoreCursorEvents(ignore); err != nil {
		slog.Warn("failed to set click-through", "ignore", ignore, "error", err)
	}
}

// Ignoring reports the current click-through flag.
func (o *Overlay) Ignoring() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ignore
}

// Blur handles the window losing focus. A blur shortly after flipping to
// click-through is ignored; otherwise the palette hides after HideDelay
// unless focus comes back first.
func (o *Overlay) Blur() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if !o.flippedAt.IsZero() && o.clock.Now().Sub(o.flippedAt) < BlurSettle {
		slog.Debug("ignoring blur after click-through flip")
		return
	}
	o.stopHideTimerLocked()
	tok := o.hideGen.Next()
	o.hideTimer = o.clock.AfterFunc(HideDelay, func() {
		o.mu.Lock()
		if o.closed || !o.hideGen.IsCurrent(tok) {
			o.mu.Unlock()
			return
		}
		o.hideTimer = nil
		o.mu.Unlock()
		if o.hide != nil {
			o.hide()
		}
	})
}

// Focus cancels a pending hide.
func (o *Overlay) Focus() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopHideTimerLocked()
}

// Close stops the pending hide timer. Later events are ignored.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.stopHideTimerLocked()
}

func (o *Overlay) stopHideTimerLocked() {
	o.hideGen.Next()
	if o.hideTimer != nil {
		o.hideTimer.Stop()
		o.hideTimer = nil
	}
}
