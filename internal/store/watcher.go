package store

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watchedOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher reports changes to block library files in a directory
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	onChange func(path string) error
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches dir and calls onChange with the absolute path of every
// library file that is written, created, removed or renamed
func NewWatcher(dir string, onChange func(path string) error) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log.Debug().Str("dir", dir).Msg("Watching block library")

	return &Watcher{
		watcher:  fsWatcher,
		dir:      dir,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("dir", w.dir).Msg("Library watcher error")

			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&watchedOps == 0 || !IsLibraryFile(event.Name) {
		return
	}

	log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Library file changed")

	if err := w.onChange(event.Name); err != nil {
		log.Error().Err(err).Str("path", event.Name).Msg("Library reload failed")
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
