package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/simdock-lab/simdock/internal/molfile"
)

// settleDelay lets a file finish writing before it is screened.
const settleDelay = 500 * time.Millisecond

// Watch monitors dir for new ligand files and calls handle for each one.
// It returns when the context is cancelled or the watcher fails.
func Watch(ctx context.Context, dir string, logger *slog.Logger, handle func(path string)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("watching for new ligands", "dir", dir)

	// Debounce per path so a create followed by writes fires once.
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if molfile.ValidateFile(event.Name, molfile.LigandFormats) != nil {
				continue
			}
			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Reset(settleDelay)
				continue
			}
			pending[path] = time.AfterFunc(settleDelay, func() {
				handle(path)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
