package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papapumpkin/depcheck/internal/depspec"
)

// debounce is how long a path must stay quiet before its change is
// reported.
const debounce = 100 * time.Millisecond

// Watcher monitors the specification file and the library directories of a
// build for changes using fsnotify. Changes carries the changed paths after
// debouncing.
type Watcher struct {
	Changes <-chan string // Read-only external channel

	changes  chan string // Internal write channel
	stop     chan struct{}
	done     chan struct{}
	watcher  *fsnotify.Watcher
	specPath string
	suffix   string
	dirs     map[string]bool
	started  bool
}

// NewWatcher creates a watcher reporting writes to specPath and to files
// ending in suffix inside the watched directories.
func NewWatcher(specPath, suffix string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(specPath); err == nil {
		specPath = abs
	}

	ch := make(chan string, 16)
	return &Watcher{
		Changes:  ch,
		changes:  ch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		watcher:  fw,
		specPath: specPath,
		suffix:   suffix,
		dirs:     make(map[string]bool),
	}, nil
}

// Add starts watching dir. Directories already watched and directories
// that do not exist are skipped.
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if w.dirs[abs] {
		return nil
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		return nil
	}
	if err := w.watcher.Add(abs); err != nil {
		return err
	}
	w.dirs[abs] = true
	return nil
}

// Start begins delivering changes.
func (w *Watcher) Start() {
	w.started = true
	go w.loop()
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	if w.started {
		<-w.done // Wait for loop to exit
	}
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					if !w.emit(file) {
						return
					}
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	return name == w.specPath || strings.HasSuffix(name, w.suffix)
}

// emit delivers one change. It reports false once the watcher is stopping.
func (w *Watcher) emit(file string) bool {
	select {
	case w.changes <- file:
		return true
	case <-w.stop:
		return false
	}
}

// Watch runs an audit immediately and again whenever the specification or
// an object file of a library changes, until ctx is done. Every outcome,
// successful or fatal, is passed to onResult. Audits run sequentially.
func Watch(ctx context.Context, opts Options, onResult func(*Result, error)) error {
	suffix := opts.ObjectSuffix
	if suffix == "" {
		suffix = depspec.DefaultObjectSuffix
	}
	specPath, err := depspec.Locate(opts.Root, opts.SpecFile)
	if err != nil {
		return err
	}

	w, err := NewWatcher(specPath, suffix)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Add(filepath.Dir(specPath)); err != nil {
		return err
	}
	if err := w.Add(opts.Root); err != nil {
		return err
	}

	run := func() error {
		res, err := Run(ctx, opts)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onResult(res, err)
		if res == nil {
			return nil
		}
		// Libraries may have been added to the specification.
		for _, lib := range res.Registry.Libraries() {
			if err := w.Add(filepath.Join(opts.Root, lib)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := run(); err != nil {
		return ignoreCancel(err)
	}
	w.Start()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				return nil
			}
			drain(w.Changes)
			if err := run(); err != nil {
				return ignoreCancel(err)
			}
		}
	}
}

// drain discards changes that are already queued, so a burst of writes
// triggers a single audit.
func drain(ch <-chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
