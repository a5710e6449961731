package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the burst of events editors produce on save.
var watchDebounce = 250 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// result to onChange. It blocks until ctx is done. The parent directory is
// watched rather than the file so atomic rename-on-save is seen. Load
// failures are logged and the previous configuration stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config), log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))

		case <-timer.C:
			cfg, err := Load(target)
			if err != nil {
				log.Warn("config reload failed", zap.String("path", target), zap.Error(err))
				continue
			}
			if err := cfg.Validate(); err != nil {
				log.Warn("reloaded config is invalid", zap.String("path", target), zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", target), zap.Int("workspaces", len(cfg.Workspaces)))
			onChange(cfg)
		}
	}
}
