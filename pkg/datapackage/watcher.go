package datapackage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reports changes to the resource records of a datapackage. Each
// event is the name of a resource whose record was written or created.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	events  chan string
	logger  zerolog.Logger
}

// NewWatcher starts watching the resources directory of the store's
// datapackage. Close the watcher to release the underlying notifier.
func NewWatcher(store *Store, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	resourcesDir := filepath.Join(store.BasePath(), ResourcesDir)
	if err := fsw.Add(resourcesDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", resourcesDir, err)
	}

	w := &Watcher{
		store:   store,
		watcher: fsw,
		events:  make(chan string),
		logger:  logger.With().Str("component", "resource-watcher").Logger(),
	}
	return w, nil
}

// Events returns the channel resource-change notifications are delivered
// on. The channel closes when Run returns.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Run forwards filesystem events until ctx is cancelled or the watcher is
// closed. Only writes and creates of .json records are reported; editor
// temp files and removals are ignored.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), ".json")
			if name == filepath.Base(event.Name) {
				continue // not a .json record
			}

			w.logger.Debug().Str("resource", name).Msg("Resource changed")
			select {
			case w.events <- name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// Close stops the underlying filesystem notifier.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
