package server

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce is how long to wait after the last write before
// reloading, so editors that write in several chunks trigger one reload.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches the policy file and hot-reloads the pipeline on change.
type Reloader struct {
	watcher *fsnotify.Watcher
	server  *Server
	log     *zap.Logger
}

// NewReloader creates a file watcher for the server's policy path.
func NewReloader(server *Server, log *zap.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(server.cfg.PolicyPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", server.cfg.PolicyPath, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{watcher: watcher, server: server, log: log}, nil
}

// Run watches for file changes and reloads the policy. Blocks until ctx
// is cancelled. A failed reload keeps the previous pipeline active.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := r.server.ReloadPolicy(); err != nil {
					r.log.Error("hot-reload failed; previous policy stays active", zap.Error(err))
					return
				}
				r.log.Info("hot-reload: policy reloaded")
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("file watcher error", zap.Error(err))
		}
	}
}
