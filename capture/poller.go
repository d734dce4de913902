package capture

import (
	"context"
	"log/slog"
	"time"

	glance "github.com/Paranoid-AF/glance"
)

// Reader reads ambient text.
type Reader interface {
	CaptureText(ctx context.Context, mode glance.CaptureMode) (glance.Capture, error)
}

// Poller feeds clipboard changes into a History.
type Poller struct {
	reader   Reader
	history  *History
	interval time.Duration
	onChange func()
}

// NewPoller creates a poller. onChange, if non-nil, runs after each
// change to the history.
func NewPoller(r Reader, h *History, interval time.Duration, onChange func()) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{reader: r, history: h, interval: interval, onChange: onChange}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	c, err := p.reader.CaptureText(ctx, glance.CaptureClipboard)
	if err != nil {
		if ctx.Err() == nil {
			slog.Debug("clipboard poll failed", "error", err)
		}
		return
	}
	if p.history.Add(c.Text) && p.onChange != nil {
		p.onChange()
	}
}
