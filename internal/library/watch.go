package library

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for the tree to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watch rescans the library whenever the tree changes, after debounce of
// quiet. onScan receives each rescan's result. Watch blocks until ctx is
// done.
func (l *Library) Watch(ctx context.Context, debounce time.Duration, onScan func(n int, err error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify.NewWatcher")
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := l.watchTree(watcher, l.root); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			if !l.relevant(event) {
				continue
			}
			// New directories need their own watch.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if err := l.watchTree(watcher, event.Name); err != nil {
					l.logger.Debug().Err(err).Str("path", event.Name).Msg("could not watch new entry")
				}
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			l.logger.Warn().Err(err).Msg("fsnotify watcher error")
		case <-timer.C:
			n, err := l.Scan(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if onScan != nil {
				onScan(n, err)
			}
		}
	}
}

// watchTree adds path and every non-hidden directory below it.
func (l *Library) watchTree(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == path {
				return errors.Wrapf(err, "watch %s", p)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && p != l.root {
			return filepath.SkipDir
		}
		return errors.Wrapf(watcher.Add(p), "watch directory %s", p)
	})
}

// relevant reports whether an event can change the index.
func (l *Library) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	// Removed or renamed directories have no extension to check.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return true
	}
	return IsVideoFile(name) || filepath.Ext(name) == ""
}
