package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch rescans the library whenever audio files in the directory change
// and calls onChange with scans that modified the index. Bursts of events
// are coalesced over debounce. Blocks until ctx is done.
func (l *Library) Watch(ctx context.Context, debounce time.Duration, onChange func(ScanResult)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(l.dir); err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	rescan := func() {
		res, err := l.Scan(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.log.Warn("rescan failed", zap.Error(err))
			}
			return
		}
		if res.Changed() && onChange != nil {
			onChange(res)
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			l.log.Debug("music dir changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, rescan)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") || !IsAudioFile(name) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
