// Command glanced is the glance daemon.
// It listens on a Unix domain socket for palette hosts, captures ambient
// text, serves the ordered command catalog and runs inline actions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	glance "github.com/Paranoid-AF/glance"
	"github.com/Paranoid-AF/glance/actions"
	"github.com/Paranoid-AF/glance/capture"
	"github.com/Paranoid-AF/glance/catalog"
	"github.com/Paranoid-AF/glance/index"
	"github.com/Paranoid-AF/glance/usage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "log every request and response to stderr")
	flag.Parse()

	if *showVersion {
		fmt.Println("glanced", Version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := glance.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = glance.DefaultConfig()
	}
	for _, w := range glance.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := newDaemon(ctx, cfg)
	if err != nil {
		slog.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}
	defer d.Close()

	socketPath := glance.SocketPath()
	slog.Info("starting", "socket", socketPath)

	srv, err := NewServer(socketPath, d.services())
	if err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
	defer srv.Close()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
		srv.Close()
		d.Close()
		os.Exit(0)
	}()

	slog.Info("ready")
	if err := srv.Serve(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// daemon owns the long-lived backends behind the server.
type daemon struct {
	cfg       *glance.Config
	system    *capture.System
	history   *capture.History
	store     *usage.Store
	idx       *index.CommandIndex
	cachePath string
	loader    *catalog.Loader
	watcher   *catalog.Watcher
	engine    *actions.Engine
	closeOnce sync.Once
}

func newDaemon(ctx context.Context, cfg *glance.Config) (*daemon, error) {
	d := &daemon{
		cfg:       cfg,
		system:    capture.NewSystem(),
		cachePath: filepath.Join(glance.DataDir(), "command_embeddings.json"),
	}

	lc := catalog.LoaderConfig{
		Path: glance.ResolveCatalogPath(cfg),
		TTL:  time.Duration(cfg.Catalog.TTLMinutes) * time.Minute,
		TopK: cfg.Embedding.TopK,
	}

	store, err := usage.Open(glance.ResolveUsageDBPath(cfg))
	if err != nil {
		slog.Warn("usage store unavailable, catalog will not be ordered by usage", "error", err)
	} else {
		d.store = store
		lc.Usage = store
	}

	if glance.EmbeddingEnabled(cfg) {
		emb := index.NewEmbedder(
			glance.ResolveEmbeddingBaseURL(cfg),
			glance.ResolveEmbeddingAPIKey(cfg),
			glance.ResolveEmbeddingModel(cfg),
		)
		d.idx = index.NewCommandIndex(emb)
		if err := d.idx.LoadCache(d.cachePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load embedding cache", "error", err)
		}
		lc.Index = d.idx
	}

	d.loader = catalog.NewLoader(lc)
	d.engine = actions.NewEngine(cfg)

	if glance.ClipboardEnabled(cfg) {
		d.history = capture.NewHistory(capture.HistoryLimit)
		interval := time.Duration(cfg.Clipboard.PollMillis) * time.Millisecond
		go capture.NewPoller(d.system, d.history, interval, nil).Run(ctx)
	}

	if glance.CatalogWatchEnabled(cfg) {
		w, err := catalog.NewWatcher(lc.Path, func() { d.reloadCatalog(ctx) })
		if err != nil {
			slog.Warn("catalog watcher unavailable", "error", err)
		} else if err := w.Start(ctx); err != nil {
			slog.Warn("failed to watch catalog", "path", lc.Path, "error", err)
		} else {
			d.watcher = w
		}
	}

	go d.warm(ctx)
	return d, nil
}

// warm loads the catalog, builds the semantic index and primes the
// empty-hint ordering in parallel with the first clipboard read.
func (d *daemon) warm(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.loader.Warm(ctx); err != nil {
			return fmt.Errorf("build semantic index: %w", err)
		}
		d.saveIndex()
		return nil
	})
	g.Go(func() error {
		_, err := d.loader.LoadCommandCatalog(ctx, "")
		return err
	})
	if d.history != nil {
		g.Go(func() error {
			c, err := d.system.CaptureText(ctx, glance.CaptureClipboard)
			if err == nil {
				d.history.Add(c.Text)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("warmup incomplete", "error", err)
		return
	}
	slog.Debug("warmup done")
}

func (d *daemon) reloadCatalog(ctx context.Context) {
	if err := d.loader.Reload(ctx); err != nil {
		slog.Warn("catalog reload failed, keeping previous catalog", "error", err)
		return
	}
	d.saveIndex()
}

func (d *daemon) saveIndex() {
	if d.idx == nil {
		return
	}
	if err := d.idx.SaveCache(d.cachePath); err != nil {
		slog.Warn("failed to save embedding cache", "error", err)
	}
}

func (d *daemon) services() Services {
	svc := Services{
		Capture: d.system,
		Catalog: d.loader,
		Actions: d.engine,
		Paste:   d.system,
		NewExecutor: func(cfg *glance.Config) Executor {
			return actions.NewEngine(cfg)
		},
	}
	if d.store != nil {
		svc.Usage = d.store
	}
	if d.history != nil {
		svc.Clipboard = d.history
	}
	return svc
}

// Close stops every background loop and closes the usage store. The action
// engine is owned by the server.
func (d *daemon) Close() {
	d.closeOnce.Do(func() {
		if d.watcher != nil {
			d.watcher.Stop()
		}
		d.loader.Close()
		if d.store != nil {
			if err := d.store.Close(); err != nil {
				slog.Warn("failed to close usage store", "error", err)
			}
		}
	})
}
