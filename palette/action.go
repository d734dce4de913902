package palette

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	glance "github.com/Paranoid-AF/glance"
)

const (
	// MaxActionChars is the longest text a processing action accepts inline.
	MaxActionChars = 250
	// NoTextClearDelay is how long the no-text message stays up.
	NoTextClearDelay = 3 * time.Second
)

// Messages shown in the popover for the two local failures.
const (
	MsgNoText      = "No text selected. Select or copy some text first."
	MsgTextTooLong = "Can't do more than 250 characters here. Open the widget instead."
)

var (
	ErrNoText      = errors.New("no text selected")
	ErrTextTooLong = errors.New("text too long for an inline action")
)

// runAction is the inline action sub-machine: acquire text, check its size,
// execute, then report success or failure into the popover.
func (c *Controller) runAction(ctx context.Context, id string, a glance.Action) error {
	c.recordUsage(ctx, id)

	tok := c.exec.Next()
	c.mu.Lock()
	c.stopClearTimerLocked()
	text := c.session.CapturedText
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		text = c.capture.Selection(ctx)
		if strings.TrimSpace(text) != "" {
			c.mu.Lock()
			if c.exec.IsCurrent(tok) {
				c.session.CapturedText = text
			}
			c.mu.Unlock()
		}
	}

	if strings.TrimSpace(text) == "" {
		c.showError(tok, MsgNoText, NoTextClearDelay)
		return ErrNoText
	}
	if a.Type.IsProcessing() && utf8.RuneCountInString(text) > MaxActionChars {
		c.showError(tok, MsgTextTooLong, 0)
		return ErrTextTooLong
	}

	c.mu.Lock()
	if !c.exec.IsCurrent(tok) {
		c.mu.Unlock()
		return nil
	}
	c.session.Popover = Popover{State: PopoverProcessing}
	c.session.ExecutingID = id
	c.mu.Unlock()
	c.notify()

	res, err := c.backend.ExecuteAction(ctx, a.Type, text)

	c.mu.Lock()
	if !c.exec.IsCurrent(tok) {
		c.mu.Unlock()
		slog.Debug("discarding stale action result", "id", id)
		return nil
	}
	c.session.ExecutingID = ""
	if err != nil {
		c.session.Popover = Popover{State: PopoverError, Content: errorMessage(err)}
	} else {
		c.session.Popover = Popover{State: PopoverSuccess, Content: res.Result}
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// showError puts msg in the popover. A positive clearAfter closes it again
// after that delay unless something newer replaced it.
func (c *Controller) showError(tok uint64, msg string, clearAfter time.Duration) {
	c.mu.Lock()
	if !c.exec.IsCurrent(tok) {
		c.mu.Unlock()
		return
	}
	c.session.Popover = Popover{State: PopoverError, Content: msg}
	if clearAfter > 0 {
		c.clearTimer = c.clock.AfterFunc(clearAfter, func() {
			c.mu.Lock()
			if !c.exec.IsCurrent(tok) || c.session.Popover.State != PopoverError {
				c.mu.Unlock()
				return
			}
			c.session.Popover = Popover{}
			c.clearTimer = nil
			c.mu.Unlock()
			c.notify()
		})
	}
	c.mu.Unlock()
	c.notify()
}

// openWidget hides the palette, then opens the widget and records usage in
// parallel. Failures are logged only.
func (c *Controller) openWidget(ctx context.Context, id string, w glance.Widget) {
	c.Hide()

	var g errgroup.Group
	g.Go(func() error {
		if err := c.backend.OpenWidget(ctx, w.Type); err != nil {
			slog.Warn("failed to open widget", "widget", w.Type, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.backend.RecordUsage(ctx, id); err != nil {
			slog.Debug("failed to record usage", "id", id, "error", err)
		}
		return nil
	})
	g.Wait()
}

// recordUsage fires usage recording in the background.
func (c *Controller) recordUsage(ctx context.Context, id string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.backend.RecordUsage(ctx, id); err != nil {
			slog.Debug("failed to record usage", "id", id, "error", err)
		}
	}()
}

// errorMessage extracts the user-facing text of an action failure.
func errorMessage(err error) string {
	var ge *glance.Error
	if errors.As(err, &ge) {
		return ge.Error()
	}
	return err.Error()
}
