package policy

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reloader watches a policy config file and hot-swaps the engine config
// on change.
type Reloader struct {
	watcher *fsnotify.Watcher
	engine  *Engine
	path    string
	log     zerolog.Logger
}

// NewReloader creates a file watcher for the policy config path.
func NewReloader(engine *Engine, path string, log zerolog.Logger) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("policy: watch %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("policy: create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("policy: watch %q: %w", path, err)
	}
	return &Reloader{watcher: watcher, engine: engine, path: path, log: log}, nil
}

// Run watches for file changes and reloads config. Blocks until ctx is
// cancelled. Writes are debounced so editors that write in bursts
// trigger one reload.
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

		case ev, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn().Err(err).Msg("policy file watcher error")
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := LoadConfig(r.path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", r.path).Msg("policy hot-reload failed")
		return
	}
	r.engine.SetConfig(cfg)
	r.log.Info().Str("path", r.path).Msg("policy reloaded")
}
