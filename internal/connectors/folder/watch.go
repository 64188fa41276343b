package folder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Watch notifies on every file change below folders. Sub-directories are
// watched recursively, including ones created later. The channel carries
// no payload; consumers re-run a cycle.
func (c *Connector) Watch(ctx context.Context, folders []domain.SyncItem) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	added := 0
	for _, folder := range folders {
		n, err := addTree(watcher, folder.OriginalID)
		if err != nil {
			logger.Warn("watch %s: %v", folder.OriginalID, err)
		}
		added += n
	}
	if added == 0 {
		watcher.Close()
		return nil, fmt.Errorf("no folder could be watched")
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !c.handleEvent(watcher, event) {
					continue
				}
				// Coalesce: one pending signal is enough
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("folder watcher: %v", err)
			}
		}
	}()
	return changes, nil
}

// handleEvent reports whether event is a content change. New directories
// are added to the watch list.
func (c *Connector) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if ignored[filepath.Base(event.Name)] {
		return false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if event.Has(fsnotify.Create) {
		if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
			if _, err := addTree(watcher, event.Name); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
		}
	}
	return true
}

// addTree watches root and every directory below it.
func addTree(watcher *fsnotify.Watcher, root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
