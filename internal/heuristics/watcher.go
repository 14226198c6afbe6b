package heuristics

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// Watcher observes the heuristics directory and logs a warning whenever a
// reference file changes on disk.  The Store itself stays immutable for the
// lifetime of the process; the warning tells operators that a restart is
// needed to pick up the new reference-data version.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger logging.Logger
	done   chan struct{}
}

// NewWatcher starts watching dir.  Call Close to stop.
func NewWatcher(dir string, logger logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, logger: logger.Named("heuristics.watcher"), done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Warn("reference data changed on disk; restart required to load the new version",
				logging.String("file", filepath.Base(ev.Name)),
				logging.String("op", ev.Op.String()),
			)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("heuristics watcher error", logging.Err(err))
		}
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
