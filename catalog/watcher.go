package catalog

import (
	"context"
	"strings"

	"vibecast/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch registers files dropped into the cache root out-of-band, so the
// catalog also covers payloads placed there by hand or by other tools.
// Blocks until the context is cancelled.
func (s *Syncer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.root); err != nil {
		return err
	}
	logger.Info("Watching cache root", logger.String("root", s.root))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".mp3") {
				continue
			}
			if err := s.register(event.Name); err != nil {
				logger.Warn("Failed to register watched payload",
					logger.String("path", event.Name),
					logger.ErrorField(err))
			} else {
				logger.Debug("Registered watched payload", logger.String("path", event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Cache watcher error", logger.ErrorField(err))
		}
	}
}
