package palette

import (
	"context"
	"log/slog"
	"strings"

	glance "github.com/Paranoid-AF/glance"
)

// CapturePipeline reads ambient text for a palette session. Each focus event
// begins a new capture generation; a result for an older generation is
// reported as stale and must be dropped by the caller.
type CapturePipeline struct {
	capturer Capturer
	gen      Generation
}

// NewCapturePipeline creates a pipeline reading through c.
func NewCapturePipeline(c Capturer) *CapturePipeline {
	return &CapturePipeline{capturer: c}
}

// Begin starts a new capture generation and returns its token.
func (p *CapturePipeline) Begin() uint64 {
	return p.gen.Next()
}

// Invalidate makes every outstanding token stale.
func (p *CapturePipeline) Invalidate() {
	p.gen.Next()
}

// IsCurrent reports whether tok is the latest capture generation.
func (p *CapturePipeline) IsCurrent(tok uint64) bool {
	return p.gen.IsCurrent(tok)
}

// Run captures text for generation tok: the clipboard first, then the live
// selection when the clipboard is empty. Failures count as no text. The
// returned bool is false when tok was superseded while the capture ran.
func (p *CapturePipeline) Run(ctx context.Context, tok uint64) (glance.Capture, bool) {
	c := p.read(ctx, glance.CaptureClipboard)
	if strings.TrimSpace(c.Text) == "" {
		c = p.read(ctx, glance.CaptureSelection)
	}
	if !p.gen.IsCurrent(tok) {
		slog.Debug("discarding stale capture", "token", tok, "current", p.gen.Current())
		return glance.Capture{}, false
	}
	return c, true
}

// Selection re-reads the live selection outside of any generation.
func (p *CapturePipeline) Selection(ctx context.Context) string {
	return p.read(ctx, glance.CaptureSelection).Text
}

func (p *CapturePipeline) read(ctx context.Context, mode glance.CaptureMode) glance.Capture {
	c, err := p.capturer.CaptureText(ctx, mode)
	if err != nil {
		slog.Debug("capture failed", "mode", mode, "error", err)
		return glance.Capture{Source: mode}
	}
	if strings.TrimSpace(c.Text) == "" {
		return glance.Capture{Source: mode}
	}
	return c
}
