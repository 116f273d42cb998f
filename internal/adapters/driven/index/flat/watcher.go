package flat

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/previsit-labs/previsit-cli/internal/logger"
)

// debounce coalesces the create+rename burst an atomic artifact swap emits.
const debounce = 250 * time.Millisecond

// Watch observes the artifact's directory and invokes onChange after the
// artifact is replaced by an offline rebuild. Long-lived chat sessions use
// this to hot-reload the index without restarting.
//
// Watch blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the file: the atomic rename replaces the
	// inode, which would silently drop a file-level watch.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("Index artifact event: %s", ev)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			logger.Info("Index artifact changed, reloading")
			onChange()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Artifact watcher error: %v", err)
		}
	}
}
