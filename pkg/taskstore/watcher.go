package taskstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harrisonrobin/cloudtodo/pkg/status"
)

// Watcher refetches on a fixed interval and hands each board to Render.
type Watcher struct {
	syncer   *Syncer
	interval time.Duration
	render   func(status.Board, error)
}

// NewWatcher creates a watcher. A non-positive interval defaults to 30s.
func NewWatcher(syncer *Syncer, interval time.Duration, render func(status.Board, error)) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{syncer: syncer, interval: interval, render: render}
}

// Start refreshes once immediately and then on every tick until ctx is done.
// Errors are rendered and the loop carries on; the user decides when to stop.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			w.syncer.log.Debug("watcher stopped")
			return
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	board, err := w.syncer.Refresh(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		w.syncer.log.Warn("refresh failed", zap.Error(err))
	}
	w.render(board, err)
}
