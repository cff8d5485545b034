package config

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the dictionary/ontology/rules source files for changes
// and logs a warning on write, remove and rename events. It deliberately does not trigger a
// live reindex (§9 is silent on hot dictionary swaps and the store treats
// the dictionary as read-only after initialization, per §3 "IRI
// dictionary"); an operator restart is required to pick up the change.
type Watcher struct {
	fw  *fsnotify.Watcher
	log *zap.Logger
}

// NewWatcher starts watching every non-empty path in paths.
func NewWatcher(paths []string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := fw.Add(p); err != nil {
			logger.Warn("config watch: failed to watch path", zap.String("path", p), zap.Error(err))
		}
	}
	w := &Watcher{fw: fw, log: logger}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.log.Warn("config source file changed on disk; restart to apply",
					zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fw.Close() }
