package mirror

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the mirror layout when the canteen staff edit the
// kitchen file directly. Events are debounced because spreadsheet
// applications write in bursts, and the mirror's own saves are suppressed
// via the own-write flag to avoid reload loops.
type Watcher struct {
	mirror  *Mirror
	watcher *fsnotify.Watcher

	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// NewWatcher creates a watcher over the mirror's kitchen file. The file
// must exist at creation time; start a watcher only after a successful
// first Load.
func NewWatcher(m *Mirror) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(m.Path()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch kitchen file %s: %w", m.Path(), err)
	}

	return &Watcher{
		mirror:   m,
		watcher:  fsw,
		debounce: 500 * time.Millisecond,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.mirror.consumeOwnWrite() {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("mirror watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

// scheduleReload (re)arms the debounce timer; the reload runs once the
// burst of write events settles.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.mirror.Load(); err != nil {
			log.Printf("mirror reload after external edit failed: %v", err)
			return
		}
		log.Printf("mirror layout reloaded after external edit")
	})
}
