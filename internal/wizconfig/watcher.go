package wizconfig

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"uwizard/internal/logging"
)

// Watcher watches the server config and env file for changes and invokes
// OnReload (debounced) when either is written. Grounded on the teacher's
// mangle-policy file watcher: a single fsnotify.Watcher over a directory,
// with a per-path debounce map to collapse the write-then-rename bursts
// editors and atomic-save tools produce.
type Watcher struct {
	watcher     *fsnotify.Watcher
	dir         string
	configName  string
	envName     string
	debounce    time.Duration
	onReload    func()

	mu          sync.Mutex
	lastEvent   map[string]time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewWatcher watches dir for changes to configName (wizard.json) and
// envName (the env file). onReload fires at most once per debounce window.
func NewWatcher(dir, configName, envName string, onReload func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fw,
		dir:        dir,
		configName: configName,
		envName:    envName,
		debounce:   300 * time.Millisecond,
		onReload:   onReload,
		lastEvent:  make(map[string]time.Time),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	return w, nil
}

// Start adds the watch and begins processing events in a background
// goroutine. Non-blocking.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	log := logging.Get(logging.CategoryBoot)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(ev.Name)
			if base != w.configName && base != w.envName {
				continue
			}
			if !w.shouldFire(base) {
				continue
			}
			log.Info("wizconfig: reload triggered by %s", base)
			if w.onReload != nil {
				w.onReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("wizconfig watcher error: %v", err)
		}
	}
}

func (w *Watcher) shouldFire(base string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.lastEvent[base]; ok && now.Sub(last) < w.debounce {
		w.lastEvent[base] = now
		return false
	}
	w.lastEvent[base] = now
	return true
}

// Stop closes the watcher and waits for the background goroutine to exit.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
