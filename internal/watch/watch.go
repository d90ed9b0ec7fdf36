// Package watch rebuilds documents when their sources change.
//
// A Watcher registers every non-ignored directory below a root with
// fsnotify, filters events through doublestar globs, and coalesces bursts of
// events into a single callback once the tree has been quiet for the
// debounce period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// Sentinel errors.
var (
	ErrInvalidPattern = errors.New("invalid watch pattern")
	ErrAlreadyRunning = errors.New("watcher already started")
	ErrWatcherFailed  = errors.New("file watcher failed")
)

// defaultIgnoredDirs are directory trees never watched. They match
// directories only, so dotfiles such as .gitignore or .draft.adoc stay
// visible while .git and .cache are pruned.
var defaultIgnoredDirs = []string{
	"**/.git",
	"**/node_modules",
	"**/.*",
}

// defaultIgnores are files never reported. Editor swap and backup files are
// noisy and never sources.
var defaultIgnores = []string{
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.#*",
	"**/.DS_Store",
}

// Config configures a Watcher.
type Config struct {
	// Root is the directory watched recursively. Empty means the working
	// directory.
	Root string

	// Patterns select the files whose changes trigger OnChange. Empty
	// matches every non-ignored file.
	Patterns []string

	// Ignore is merged with the built-in ignores.
	Ignore []string

	Debounce time.Duration

	// OnChange receives the changed paths, relative to Root and slash
	// separated. It never runs concurrently with itself.
	OnChange func(ctx context.Context, changed []string) error

	Logger *log.Logger
}

// Watcher monitors a source tree. Run may be called once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	root     string
	ignores  []string
	debounce time.Duration
	logger   *log.Logger
	started  atomic.Bool
}

// New validates cfg and registers the directories below cfg.Root.
func New(cfg Config) (*Watcher, error) {
	if err := validatePatterns("pattern", cfg.Patterns); err != nil {
		return nil, err
	}
	if err := validatePatterns("ignore", cfg.Ignore); err != nil {
		return nil, err
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "docpack"})
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatcherFailed, err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		root:     root,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: debounce,
		logger:   logger,
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is canceled, which returns nil. A watcher
// that can no longer deliver events returns an error wrapping
// ErrWatcherFailed.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		busy    atomic.Bool
		fire    func()
	)

	// A batch that arrives while the previous callback still runs is kept
	// and retried after another debounce period.
	fire = func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			w.logger.Debug("Build in progress, postponing")
			mu.Lock()
			timer.Reset(w.debounce)
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		if len(changed) == 0 || w.cfg.OnChange == nil {
			return
		}

		w.logger.Info("Sources changed", "count", len(changed))
		if err := w.cfg.OnChange(ctx, changed); err != nil && ctx.Err() == nil {
			w.logger.Error("Rebuild failed", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Debug("Closing watcher", "error", err)
		}
	}()

	w.logger.Info("Watching for changes", "root", w.root)
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("%w: event channel closed", ErrWatcherFailed)
			}
			rel, ok := w.relative(evt.Name)
			if !ok || w.ignored(rel) {
				continue
			}
			// New directories are registered before filtering so sources
			// created inside them are seen.
			if evt.Has(fsnotify.Create) {
				w.addNewDir(evt.Name)
			}
			if !w.selected(rel) {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("%w: error channel closed", ErrWatcherFailed)
			}
			if isFatal(err) {
				return fmt.Errorf("%w: %w", ErrWatcherFailed, err)
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// addTree registers dir and every non-ignored directory below it.
// Unreadable directories are skipped with a warning.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("%w: %w", ErrWatcherFailed, err)
			}
			w.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && rel != "." && w.ignoredDir(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("%w: watching %s: %w", ErrWatcherFailed, path, err)
		}
		return nil
	})
}

// addNewDir registers a directory created after startup, including any
// subdirectories it already holds.
func (w *Watcher) addNewDir(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("Cannot watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ignored reports whether rel is excluded itself or lies below an excluded
// directory.
func (w *Watcher) ignored(rel string) bool {
	if matchAny(w.ignores, rel) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if matchAny(defaultIgnoredDirs, dir) {
			return true
		}
	}
	return false
}

// ignoredDir reports whether a whole directory is excluded. Globs ending in
// "/**" match the directory itself through their prefix.
func (w *Watcher) ignoredDir(rel string) bool {
	return matchAny(defaultIgnoredDirs, rel) || matchAny(w.ignores, rel) || matchAny(w.ignores, rel+"/")
}

func (w *Watcher) selected(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func validatePatterns(label string, patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %s %q", ErrInvalidPattern, label, p)
		}
	}
	return nil
}
