package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

const pollInterval = 2 * time.Second

// descriptionWatcher polls the description file and calls onChange when
// its size or modification time changes. Polling also catches editors
// that replace the file instead of writing it.
type descriptionWatcher struct {
	ctx      context.Context
	path     string
	interval time.Duration
	onChange func(context.Context)

	mu     sync.Mutex
	last   string // size:mtime fingerprint
	stopCh chan struct{}
}

func newDescriptionWatcher(ctx context.Context, path string, onChange func(context.Context)) *descriptionWatcher {
	w := &descriptionWatcher{ctx: ctx, path: path, interval: pollInterval, onChange: onChange}
	w.last = w.fingerprint()
	return w
}

// Start begins the polling loop.
func (w *descriptionWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	go w.pollLoop(w.stopCh)
}

// Stop terminates the polling loop. Safe to call more than once.
func (w *descriptionWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *descriptionWatcher) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *descriptionWatcher) check() {
	fp := w.fingerprint()
	w.mu.Lock()
	changed := fp != "" && fp != w.last
	if fp != "" {
		w.last = fp
	}
	w.mu.Unlock()

	if changed {
		w.onChange(w.ctx)
	}
}

// fingerprint is empty while the file is missing, e.g. between an
// editor's delete and rename.
func (w *descriptionWatcher) fingerprint() string {
	info, err := os.Stat(w.path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}
