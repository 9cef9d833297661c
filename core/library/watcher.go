package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"Playa/core/audio"
	"Playa/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange once things settle after media files under roots are
// created, removed or renamed. It watches in the background until ctx is done.
func Watch(ctx context.Context, roots []string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, root := range roots {
		addTree(watcher, root)
	}

	go func() {
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !relevant(watcher, event) {
					continue
				}
				logger.Debug("library change detected",
					logger.String("path", event.Name),
					logger.String("op", event.Op.String()))
				timer.Reset(debounce)

			case <-timer.C:
				onChange()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("library watcher error", logger.ErrorField(err))

			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("watching library roots", logger.Strings("roots", roots))
	return nil
}

// relevant reports whether event changes the set of media files. New
// directories are added to the watch list.
func relevant(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			addTree(watcher, event.Name)
			return true
		}
	}
	return audio.IsSupported(event.Name)
}

func addTree(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				logger.Warn("failed to watch directory", logger.String("path", path), logger.ErrorField(err))
			}
		}
		return nil
	})
}
