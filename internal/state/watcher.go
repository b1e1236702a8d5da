package state

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidation describes which cached model paths a file change affects.
type Invalidation struct {
	// All is set when a shared animation file changed.
	All bool
	// Path is the changed model, relative to the model directory.
	Path string
	// Animations is set when a per-model animation directory changed; it
	// holds "<dir>/<name>" of "<dir>/<name>.animations".
	Animations string
}

// Match reports whether the cached model path is affected.
func (inv Invalidation) Match(path string) bool {
	switch {
	case inv.All:
		return true
	case inv.Animations != "":
		dir, name := filepath.Split(inv.Animations)
		pdir, base := filepath.Split(filepath.FromSlash(path))
		if filepath.Clean(dir) != filepath.Clean(pdir) {
			return false
		}
		return base == name || strings.TrimSuffix(base, filepath.Ext(base)) == name
	default:
		return filepath.Clean(filepath.FromSlash(path)) == filepath.Clean(inv.Path)
	}
}

// invalidationFor maps a changed file to the models it affects.
func invalidationFor(modelDir, sharedAnimDir, changed string) (Invalidation, bool) {
	if sharedAnimDir != "" {
		if rel, err := filepath.Rel(sharedAnimDir, changed); err == nil && !strings.HasPrefix(rel, "..") {
			return Invalidation{All: true}, true
		}
	}
	rel, err := filepath.Rel(modelDir, changed)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Invalidation{}, false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	for i, p := range parts {
		if name, ok := strings.CutSuffix(p, ".animations"); ok {
			return Invalidation{Animations: filepath.Join(append(parts[:i:i], name)...)}, true
		}
	}
	return Invalidation{Path: rel}, true
}

// Watcher reports model directory changes. Invalidations are queued and
// applied on the render goroutine with Apply.
type Watcher struct {
	dir       string
	sharedDir string
	fs        *fsnotify.Watcher
	pending   chan Invalidation
	done      chan struct{}
	log       *zap.Logger
}

// NewWatcher watches dir and every directory below it.
func NewWatcher(dir, sharedAnimDir string, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:       filepath.Clean(dir),
		sharedDir: filepath.Clean(sharedAnimDir),
		fs:        fw,
		pending:   make(chan Invalidation, 64),
		done:      make(chan struct{}),
		log:       log,
	}
	if sharedAnimDir == "" {
		w.sharedDir = ""
	}
	for _, d := range []string{w.dir, w.sharedDir} {
		if d == "" {
			continue
		}
		if err := w.addTree(d); err != nil {
			fw.Close()
			return nil, err
		}
	}
	go w.run()
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("Model watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("Model watcher failed to add directory", zap.String("dir", event.Name), zap.Error(err))
			}
		}
	}
	inv, ok := invalidationFor(w.dir, w.sharedDir, event.Name)
	if !ok {
		return
	}
	w.log.Info("Model file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
	select {
	case w.pending <- inv:
	case <-w.done:
	}
}

// Apply invalidates every queued change in m and returns how many were applied.
func (w *Watcher) Apply(m *Manager) int {
	n := 0
	for {
		select {
		case inv := <-w.pending:
			m.Invalidate(inv.Match)
			n++
		default:
			return n
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}
