package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay collapses the burst of events editors produce when saving.
const settleDelay = 100 * time.Millisecond

// Watch calls onChange with the re-read configuration each time cfile
// changes on disk, until ctx is done. The directory is watched instead
// of the file so that editors replacing the file are noticed too. A
// file that fails to parse or validate is logged and ignored.
func Watch(ctx context.Context, cfile string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	target, err := filepath.Abs(cfile)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve config path %s: %w", cfile, err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		var settle <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					settle = time.After(settleDelay)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Config watcher error", "error", err)
			case <-settle:
				settle = nil
				conf, err := ReadConfig(cfile)
				if err != nil {
					slog.Error("Ignoring changed config file", "file", cfile, "error", err)
					continue
				}
				slog.Info("Config file changed", "file", cfile)
				onChange(conf)
			}
		}
	}()
	return nil
}
