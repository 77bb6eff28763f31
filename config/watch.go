package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch delivers the config at path every time the file changes. Changes
// that do not parse are logged and skipped. The channel is closed once ctx
// is done.
func Watch(ctx context.Context, path string) (<-chan Config, error) {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// editors replace files on save, watching the directory catches that
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	configs := make(chan Config, 1)

	go func() {
		defer close(configs)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != path {
					continue
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				config, err := Load(path)
				if err != nil {
					slog.Warn("Ignoring config change", slog.String("err", err.Error()))
					continue
				}

				// replace a config the consumer has not picked up yet
				select {
				case <-configs:
				default:
				}

				select {
				case configs <- config:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				slog.Warn("Config watcher failed", slog.String("err", err.Error()))
			}
		}
	}()

	return configs, nil
}
