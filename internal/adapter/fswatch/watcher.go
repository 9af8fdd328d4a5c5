// Package fswatch signals when the map data directory changes so the host
// can reload everything.
package fswatch

import (
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
)

// DefaultQuiet is how long the directory must be still before a reload is
// signalled. Copying a dataset touches several files in quick succession.
const DefaultQuiet = 250 * time.Millisecond

// dataExtensions are the file types a load reads.
var dataExtensions = []string{".csv", ".json", ".geojson"}

// Reload lists the data files that changed during one quiet period, sorted.
type Reload struct {
	Files []string
}

// Watcher monitors a data directory with fsnotify.
type Watcher struct {
	Dir     string
	Quiet   time.Duration
	Reloads <-chan Reload

	reloads chan Reload
	done    chan struct{}
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewWatcher creates a watcher for dir. Call Start to begin.
func NewWatcher(dir string, quiet time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "fswatch: create watcher")
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	ch := make(chan Reload, 1)
	return &Watcher{
		Dir:     dir,
		Quiet:   quiet,
		Reloads: ch,
		reloads: ch,
		done:    make(chan struct{}),
		watcher: fw,
		logger:  logger,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.Dir); err != nil {
		return eris.Wrapf(err, "fswatch: watch %s", w.Dir)
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Reloads channel.
func (w *Watcher) Stop() {
	_ = w.watcher.Close()
	<-w.done
	close(w.reloads)
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.Quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isDataFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.Quiet)
			}

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			slices.Sort(files)
			clear(pending)
			w.emit(Reload{Files: files})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("data directory watch error", "dir", w.Dir, "error", err)
		}
	}
}

// emit delivers r, folding it into an undelivered earlier reload so a slow
// consumer sees one reload covering every change.
func (w *Watcher) emit(r Reload) {
	select {
	case w.reloads <- r:
		return
	default:
	}
	select {
	case prev := <-w.reloads:
		merged := append(prev.Files, r.Files...)
		slices.Sort(merged)
		r.Files = slices.Compact(merged)
	default:
	}
	w.reloads <- r
}

func isDataFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return slices.Contains(dataExtensions, strings.ToLower(filepath.Ext(base)))
}
