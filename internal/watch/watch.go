// Package watch re-runs a query whenever a fixture file changes.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/bore/internal/errors"
	"github.com/vango-dev/bore/internal/source"
	"github.com/vango-dev/bore/pkg/bore"
)

// DefaultDebounce is the quiet period before a change is evaluated.
const DefaultDebounce = 100 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Path is the fixture file to watch.
	Path string

	// Query runs against each mount.
	Query bore.Query

	// Debounce is the delay before triggering on change.
	Debounce time.Duration

	// ArenaOptions configure the arena fixtures are mounted in.
	ArenaOptions []bore.Option

	// Loader reads the fixture. A default loader is used if nil.
	Loader *source.Loader

	Logger *slog.Logger
}

// Result is one evaluation of the fixture.
type Result struct {
	Path    string
	Root    *bore.Wrapper
	Matches []*bore.Wrapper

	// Err is set when the fixture could not be read, mounted or queried.
	Err error
}

// Watcher mounts a fixture file and reports query results on every
// change. Wrappers in a Result are valid until the next one.
type Watcher struct {
	config   Config
	onResult func(Result)
	mu       sync.Mutex
	logger   *slog.Logger
}

// New creates a watcher.
func New(config Config) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Loader == nil {
		config.Loader = source.New()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Watcher{
		config: config,
		logger: config.Logger.With("component", "watch"),
	}
}

// OnResult sets the callback for evaluations.
func (w *Watcher) OnResult(fn func(Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResult = fn
}

// Run evaluates the fixture once and again after every write to it,
// until ctx ends. It returns nil when ctx ends.
//
// The parent directory is watched rather than the file so editors that
// replace the file on save keep triggering.
func (w *Watcher) Run(ctx context.Context) error {
	path, err := filepath.Abs(w.config.Path)
	if err != nil {
		return errors.Wrap(err, "B052")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "B052")
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return errors.Wrap(err, "B052")
	}

	opts := []bore.Option{bore.WithLogger(w.config.Logger), bore.WithReleaseDetached(true)}
	arena := bore.New(append(opts, w.config.ArenaOptions...)...)
	defer arena.Close()

	w.evaluate(ctx, arena, path)

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(w.config.Debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-debounce.C:
			w.evaluate(ctx, arena, path)
		}
	}
}

func (w *Watcher) evaluate(ctx context.Context, arena *bore.Arena, path string) {
	res := Result{Path: path}
	res.Root, res.Matches, res.Err = w.run(ctx, arena, path)
	if res.Err != nil {
		w.logger.Debug("evaluation failed", "path", path, "error", res.Err)
	} else {
		w.logger.Debug("evaluated", "path", path, "matches", len(res.Matches))
	}

	w.mu.Lock()
	callback := w.onResult
	w.mu.Unlock()
	if callback != nil {
		callback(res)
	}
}

func (w *Watcher) run(ctx context.Context, arena *bore.Arena, path string) (*bore.Wrapper, []*bore.Wrapper, error) {
	markup, err := w.config.Loader.LoadString(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	root, err := arena.Mount(markup)
	if err != nil {
		return nil, nil, err
	}
	if w.config.Query == nil {
		return root, nil, nil
	}
	matches, err := root.All(w.config.Query)
	if err != nil {
		return root, nil, err
	}
	return root, matches, nil
}
