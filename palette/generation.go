package palette

import "sync/atomic"

// Generation hands out monotonically increasing tokens. Work that can be
// superseded takes a token when it starts and applies its result only while
// that token is still current.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new generation and returns its token. Every earlier token
// becomes stale.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current returns the token of the latest generation.
func (g *Generation) Current() uint64 {
	return g.n.Load()
}

// IsCurrent reports whether tok belongs to the latest generation.
func (g *Generation) IsCurrent(tok uint64) bool {
	return g.n.Load() == tok
}
