package localfs

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bcsurf2822/ragpipe/internal/logger"
)

// Quiet period after the last filesystem event before a signal is sent.
// Editors produce bursts of writes; one signal per burst is enough since
// the cycle rescans the whole tree anyway.
const debounceDelay = 2 * time.Second

// notifier turns raw fsnotify events into a debounced nudge channel. It
// is advisory only: a missed event is corrected by the next scheduled
// scan.
type notifier struct {
	watcher *fsnotify.Watcher
	ch      chan struct{}
}

func newNotifier(ctx context.Context, root string) (*notifier, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	n := &notifier{watcher: watcher, ch: make(chan struct{}, 1)}
	if err := n.addRecursive(root); err != nil {
		watcher.Close()
		return nil, err
	}

	go n.loop(ctx)
	return n, nil
}

func (n *notifier) C() <-chan struct{} { return n.ch }

func (n *notifier) Close() error {
	return n.watcher.Close()
}

// addRecursive registers the root and every non-hidden subdirectory.
func (n *notifier) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return n.watcher.Add(path)
	})
}

func (n *notifier) loop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories must be watched too.
				_ = n.addRecursive(ev.Name)
			}
			if timer == nil {
				timer = time.AfterFunc(debounceDelay, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounceDelay)
			}
		case <-fire:
			timer = nil
			select {
			case n.ch <- struct{}{}:
			default:
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			logger.Debug("[localfs] watcher error: %v", err)
		}
	}
}
