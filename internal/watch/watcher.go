// Package watch re-applies a mod whenever its settings or document change
// on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/flexmod/flexmod/internal/apply"
	"github.com/flexmod/flexmod/internal/event"
	"github.com/flexmod/flexmod/internal/project"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Apply is passed to every apply pass.
	Apply []apply.Option
	// OnApply is called after every pass.
	OnApply func(*apply.Report, error)
	Bus     *event.Bus
}

// Watcher watches the FlexMod directory of one mod. The directory itself is
// watched rather than the files, since stores replace files by rename.
type Watcher struct {
	watcher *fsnotify.Watcher
	mod     *project.Mod
	opts    Options

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
}

// New creates a watcher for mod.
func New(mod *project.Mod, opts Options) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(mod.FlexModDir); err != nil {
		w.Close()
		return nil, err
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Bus == nil {
		opts.Bus = event.Default()
	}

	log.Info().Str("mod", mod.Name).Str("dir", mod.FlexModDir).Msg("settings watcher initialized")

	return &Watcher{
		watcher: w,
		mod:     mod,
		opts:    opts,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.opts.Bus.Publish(event.Event{
				Type: event.FileChanged,
				Data: event.FileChangedData{Mod: w.mod.Name, File: filepath.Base(ev.Name)},
			})
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			w.applyNow()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("mod", w.mod.Name).Msg("settings watcher error")
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	switch filepath.Base(ev.Name) {
	case filepath.Base(w.mod.SettingsPath()), filepath.Base(w.mod.DocumentPath()):
		return true
	}
	return false
}

func (w *Watcher) applyNow() {
	opts := append([]apply.Option{apply.WithBus(w.opts.Bus)}, w.opts.Apply...)
	report, err := apply.ApplyMod(context.Background(), w.mod, opts...)
	if err != nil {
		log.Error().Err(err).Str("mod", w.mod.Name).Msg("re-apply failed")
	}
	if w.opts.OnApply != nil {
		w.opts.OnApply(report, err)
	}
}

// Stop stops the watcher and waits for a pass in progress to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}

	if started {
		<-w.doneCh
	}

	return w.watcher.Close()
}
