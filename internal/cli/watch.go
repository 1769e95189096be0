package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/randotrack/internal/coalesce"
)

// watchLogic calls onChange after logic files under path change and then
// stay quiet for delay. A file path watches that file; a directory watches
// its .cue and .json files. onChange always runs on the calling goroutine.
// watchLogic returns when ctx is cancelled.
func watchLogic(ctx context.Context, path string, delay time.Duration, logger *slog.Logger, onChange func()) error {
	info, err := os.Stat(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot watch logic", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so the parent directory is watched even
	// for a single file.
	dir, file := path, ""
	if !info.IsDir() {
		dir, file = filepath.Dir(path), filepath.Clean(path)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	relevant := func(name string) bool {
		if file != "" {
			return filepath.Clean(name) == file
		}
		ext := filepath.Ext(name)
		return ext == ".cue" || ext == ".json"
	}

	changed := make(chan struct{}, 1)
	debounce := coalesce.NewDebouncer(delay, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			logger.Debug("logic changed", "file", event.Name, "op", event.Op.String())
			debounce.Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-changed:
			onChange()
		}
	}
}
