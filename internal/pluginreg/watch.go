package pluginreg

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yangconf/confd/internal/errs"
)

// WatchDir drives optional hot-discovery of newly dropped-in plugin
// files: a Create event for a path matching pattern triggers a fresh
// Load of dir, running Start on whatever was newly added. Returns once
// ctx is cancelled or the watcher itself fails.
func (r *Registry) WatchDir(ctx context.Context, dir, pattern string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.New(errs.Plugin, "new watcher: %v", err).WithPath(dir)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errs.New(errs.Plugin, "watch %q: %v", dir, err).WithPath(dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			matched, err := filepath.Match(filepath.Join(dir, pattern), ev.Name)
			if err != nil || !matched {
				continue
			}
			loaded, err := r.Load(dir, pattern)
			if err != nil {
				return err
			}
			for _, name := range loaded {
				r.mu.RLock()
				var api API
				for _, e := range r.entries {
					if e.name == name {
						api = e.api
						break
					}
				}
				r.mu.RUnlock()
				if api.Start != nil {
					if err := api.Start(ctx); err != nil {
						return errs.New(errs.Plugin, "start newly discovered %q: %v", name, err)
					}
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errs.New(errs.Plugin, "watch %q: %v", dir, err).WithPath(dir)
		}
	}
}
