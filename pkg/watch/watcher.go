// Package watch routes filesystem changes to a tree model. The fsnotify goroutine only
// sends paths; nodes are resolved, marked dirty and refreshed by the goroutine that owns
// the model.
package watch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

// Watcher watches folders and files for changes.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *logrus.Logger
	paths  chan string

	mu   sync.Mutex
	deep map[string]bool // folders whose new subfolders are watched too
}

// New creates a watcher. Call Run to start delivering paths.
func New(logger *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Watcher{fs: fw, logger: logger, paths: make(chan string, 100), deep: make(map[string]bool)}, nil
}

// Paths returns the channel changed paths are delivered on.
func (w *Watcher) Paths() <-chan string { return w.paths }

// Add watches path. Folders are watched with all their subfolders when recursive, else on
// their own; files are watched through their folder so replacing the file does not drop
// the watch.
func (w *Watcher) Add(path string, recursive bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fs.Add(filepath.Dir(path))
	}
	if !recursive {
		return w.fs.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.WithError(err).WithField("path", p).Debug("not watching unreadable folder")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fs.Add(p); err != nil {
			w.logger.WithError(err).WithField("path", p).Warn("could not watch folder")
			return nil
		}
		w.mu.Lock()
		w.deep[filepath.Clean(p)] = true
		w.mu.Unlock()
		return nil
	})
}

// watchesBelow reports whether new subfolders of dir are to be watched.
func (w *Watcher) watchesBelow(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deep[filepath.Clean(dir)]
}

// WatchModel watches the backing path of every root in the model.
func (w *Watcher) WatchModel(m *treemodel.Model) error {
	var errs []error
	for _, r := range m.RootNodes() {
		var path string
		recursive := false
		switch r.Kind() {
		case tree.KindFolder:
			path, recursive = r.Folder().Path, r.Folder().Recursive
		case tree.KindFile:
			path = r.Document().Path
		case tree.KindRegion:
			path = r.Region().Path
		default:
			continue
		}
		if err := w.Add(path, recursive); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run forwards change paths until ctx is done or the watcher is closed. New folders are
// watched as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.paths)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if event.Has(fsnotify.Create) && w.watchesBelow(filepath.Dir(event.Name)) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.Add(event.Name, true); err != nil {
						w.logger.WithError(err).WithField("path", event.Name).Debug("could not watch new folder")
					}
				}
			}
			w.logger.WithFields(logrus.Fields{
				"path": event.Name,
				"op":   event.Op.String(),
			}).Debug("filesystem event")
			select {
			case w.paths <- event.Name:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("watcher error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Resolve marks the node responsible for path dirty: the node wrapping path when it still
// exists, otherwise the nearest enclosing folder in the model. It returns nil when nothing
// in the model covers path.
func Resolve(m *treemodel.Model, path string) *tree.Node {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil {
		if n := m.FindByKey(path); n != nil {
			n.MarkDirty()
			return n
		}
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if n := m.FindByKey(dir); n != nil && n.IsFolder() {
			n.MarkDirty()
			return n
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil
		}
	}
}

// LoopOptions configures Loop.
type LoopOptions struct {
	Debounce time.Duration // Quiet period before refreshing; 200ms when zero
	Logger   *logrus.Logger
	// OnEvent is called for every path; n is nil when nothing in the model covers it.
	OnEvent func(path string, n *tree.Node)
	// OnRefresh is called after every refresh.
	OnRefresh func(processed int, took time.Duration)
}

// Loop is the owner side: it resolves incoming paths and refreshes the model once the
// paths have been quiet for the debounce period. It returns when paths is closed or ctx
// is done.
func Loop(ctx context.Context, m *treemodel.Model, paths <-chan string, opts LoopOptions) error {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-paths:
			if !ok {
				return nil
			}
			n := Resolve(m, path)
			if opts.OnEvent != nil {
				opts.OnEvent(path, n)
			}
			if n == nil {
				logger.WithField("path", path).Debug("change outside the model")
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			start := time.Now()
			processed := m.Refresh()
			took := time.Since(start)
			logger.WithFields(logrus.Fields{
				"nodes":    processed,
				"duration": took,
			}).Debug("refreshed model")
			if opts.OnRefresh != nil {
				opts.OnRefresh(processed, took)
			}
		}
	}
}
