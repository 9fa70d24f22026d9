package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shah0006/syncd/apperr"
	"github.com/shah0006/syncd/logging"
)

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the configuration document at path whenever it changes
// on disk and invokes onChange with the freshly parsed Config. It
// watches path's parent directory rather than the file itself, since
// editors and config-management tools commonly replace a file via
// rename-over rather than an in-place write, which fsnotify can't
// observe on a direct file watch.
//
// Grounded on sync/watcher.go's fsnotify event loop: a single watcher
// goroutine selecting on Events/Errors, debounced so a burst of writes
// to the same file collapses into one reload.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return apperr.New(apperr.Fatal, "config watcher init failed", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return apperr.New(apperr.Fatal, "config watcher add failed", err)
	}

	target := filepath.Clean(path)

	go func() {
		log := logging.Sub("config")
		defer w.Close()

		timer := time.NewTimer(reloadDebounce)
		if !timer.Stop() {
			<-timer.C
		}
		pending := false

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if !pending {
					pending = true
					timer.Reset(reloadDebounce)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("config watcher error", "err", err)
			case <-timer.C:
				pending = false
				cfg, err := Load(path)
				if err != nil {
					log.Error("config reload failed", "err", err)
					continue
				}
				log.Info("config reloaded", "path", path)
				onChange(cfg)
			}
		}
	}()
	return nil
}
