package catalog

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	glance "github.com/Paranoid-AF/glance"
)

const (
	defaultTTL  = 10 * time.Minute
	defaultTopK = 3
)

// UsageCounter reports how often each command was run.
type UsageCounter interface {
	Counts(ctx context.Context) (map[string]int, error)
}

// SemanticIndex finds the commands closest in meaning to a text.
type SemanticIndex interface {
	Build(ctx context.Context, commands []glance.Command) error
	Nearest(ctx context.Context, text string, k int) ([]string, error)
}

// LoaderConfig configures a Loader. Usage and Index are optional.
type LoaderConfig struct {
	Path  string
	TTL   time.Duration
	TopK  int
	Usage UsageCounter
	Index SemanticIndex
}

// Loader serves the catalog ordered for a context hint. Ordered catalogs
// are cached per hint until the TTL passes or the catalog or usage changes.
type Loader struct {
	path  string
	topK  int
	usage UsageCounter
	index SemanticIndex
	cache *ttlcache.Cache[string, []glance.Command]

	mu   sync.Mutex
	base []glance.Command
}

// NewLoader creates a Loader. Call Close to stop its cache.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	c := ttlcache.New[string, []glance.Command](
		ttlcache.WithTTL[string, []glance.Command](cfg.TTL),
		ttlcache.WithDisableTouchOnHit[string, []glance.Command](),
	)
	go c.Start()
	return &Loader{
		path:  cfg.Path,
		topK:  cfg.TopK,
		usage: cfg.Usage,
		index: cfg.Index,
		cache: c,
	}
}

// Close stops the cache expiration loop.
func (l *Loader) Close() {
	l.cache.Stop()
}

// Warm loads the base catalog and builds the semantic index for it.
func (l *Loader) Warm(ctx context.Context) error {
	cmds := l.Base()
	if l.index == nil {
		return nil
	}
	return l.index.Build(ctx, cmds)
}

// Base returns the unordered catalog: the user file if present and valid,
// otherwise the built-in one.
func (l *Loader) Base() []glance.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.base == nil {
		l.base = l.read()
	}
	return l.base
}

func (l *Loader) read() []glance.Command {
	if l.path == "" {
		return Default()
	}
	cmds, err := Load(l.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no user catalog, using built-in", "path", l.path)
		return Default()
	case err != nil:
		slog.Warn("invalid user catalog, using built-in", "error", err)
		return Default()
	}
	return cmds
}

// Reload re-reads the catalog file and rebuilds the index. On a decode
// error the previous catalog is kept.
func (l *Loader) Reload(ctx context.Context) error {
	var cmds []glance.Command
	if l.path != "" {
		var err error
		cmds, err = Load(l.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			cmds = Default()
		case err != nil:
			return err
		}
	} else {
		cmds = Default()
	}

	l.mu.Lock()
	l.base = cmds
	l.mu.Unlock()
	l.Invalidate()
	slog.Info("catalog reloaded", "commands", len(cmds))

	if l.index != nil {
		if err := l.index.Build(ctx, cmds); err != nil {
			slog.Warn("failed to rebuild semantic index", "error", err)
		}
	}
	return nil
}

// Invalidate drops every cached ordering.
func (l *Loader) Invalidate() {
	l.cache.DeleteAll()
}

// LoadCommandCatalog returns the catalog ordered for hint: most used first,
// then the commands closest to hint moved to the front.
func (l *Loader) LoadCommandCatalog(ctx context.Context, hint string) ([]glance.Command, error) {
	hint = strings.TrimSpace(hint)
	if item := l.cache.Get(hint); item != nil {
		return item.Value(), nil
	}

	cmds := append([]glance.Command(nil), l.Base()...)

	if l.usage != nil {
		counts, err := l.usage.Counts(ctx)
		if err != nil {
			slog.Debug("usage counts unavailable", "error", err)
		} else {
			sort.SliceStable(cmds, func(i, j int) bool {
				return counts[cmds[i].ID] > counts[cmds[j].ID]
			})
		}
	}

	if l.index != nil && hint != "" {
		ids, err := l.index.Nearest(ctx, hint, l.topK)
		if err != nil {
			slog.Debug("semantic ordering unavailable", "error", err)
		} else {
			cmds = promote(cmds, ids)
		}
	}

	l.cache.Set(hint, cmds, ttlcache.DefaultTTL)
	return cmds, nil
}

// promote moves the commands named in ids to the front, keeping the
// relative order both groups had in cmds.
func promote(cmds []glance.Command, ids []string) []glance.Command {
	if len(ids) == 0 {
		return cmds
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]glance.Command, 0, len(cmds))
	var rest []glance.Command
	for _, cmd := range cmds {
		if want[cmd.ID] {
			out = append(out, cmd)
		} else {
			rest = append(rest, cmd)
		}
	}
	return append(out, rest...)
}
