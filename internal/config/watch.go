package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/draftpilot/internal/event"
)

// Watcher reloads a Config when its files change on disk. Rapid write
// bursts are coalesced by a debounce window.
type Watcher struct {
	cfg      *Config
	fsw      *fsnotify.Watcher
	bus      *event.Bus
	onChange func(*Config)
	onError  func(error)

	debounce time.Duration

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the debounce window for coalescing rapid changes.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler receives watch and reload failures.
func WithErrorHandler(fn func(error)) WatchOption {
	return func(w *Watcher) { w.onError = fn }
}

// WithBus publishes a config-changed event after every successful
// reload.
func WithBus(bus *event.Bus) WatchOption {
	return func(w *Watcher) { w.bus = bus }
}

// Watch starts watching the config's files. onChange runs after every
// successful reload.
func Watch(cfg *Config, onChange func(*Config), opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		onChange: onChange,
		debounce: 100 * time.Millisecond,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, path := range []string{cfg.paths.User, cfg.paths.Project} {
		if path == "" {
			continue
		}
		// Missing files are tolerated at load time; only watch what
		// exists.
		if err := fsw.Add(path); err != nil {
			w.report(err)
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// loop coalesces fsnotify events and reloads after the debounce window.
func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.cfg.Reload(); err != nil {
				w.report(err)
				continue
			}
			if w.onChange != nil {
				w.onChange(w.cfg)
			}
			if w.bus != nil {
				_ = w.bus.Publish(event.New(event.TopicConfigChanged, nil, "config"))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}
