package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay collapses the burst of events editors produce for one save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the config file whenever it changes and passes every valid
// result to fn. Invalid files are logged and skipped. The parent directory
// is watched so atomic rename-on-save is seen. Watch returns once the
// watcher is running; it stops when ctx is done.
func Watch(ctx context.Context, configPath string, logger *slog.Logger, fn func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}
	configPath, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", configPath, err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != configPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				config, err := LoadConfig(configPath)
				if err == nil {
					err = config.Validate()
				}
				if err != nil {
					logger.Warn("config reload skipped", "path", configPath, "error", err)
					continue
				}
				logger.Info("config reloaded", "path", configPath)
				fn(config)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
