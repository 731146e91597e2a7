// Package preview watches persisted project files and publishes change
// events so live previews can refresh without polling.
package preview

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/logging"
	"github.com/pageforge-ai/pageforge/internal/project"
)

// Watcher monitors the files directory under the storage root. Each project
// writes its sources to <root>/files/<projectID>/, so a change to any
// allowlisted file maps back to a project ID directly from the path.
type Watcher struct {
	watcher  *fsnotify.Watcher
	filesDir string
	bus      *event.Bus
	log      zerolog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
}

// NewWatcher creates a watcher over the given storage root. The files
// directory is created if it does not exist yet so the watch can be
// established before the first generation runs.
func NewWatcher(storageRoot string, bus *event.Bus) (*Watcher, error) {
	if bus == nil {
		bus = event.Default()
	}

	filesDir := filepath.Join(storageRoot, "files")
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(filesDir); err != nil {
		w.Close()
		return nil, err
	}

	// Project subdirectories that already exist are watched up front.
	// New ones are picked up from create events on the parent.
	entries, err := os.ReadDir(filesDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = w.Add(filepath.Join(filesDir, entry.Name()))
			}
		}
	}

	log := logging.Component("preview")
	log.Info().Str("dir", filesDir).Msg("Preview watcher initialized")

	return &Watcher{
		watcher:  w,
		filesDir: filesDir,
		bus:      bus,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
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

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("Preview watcher error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// A new project directory appeared, watch it for file writes.
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if filepath.Dir(ev.Name) == w.filesDir {
			_ = w.watcher.Add(ev.Name)
		}
		return
	}

	filename := filepath.Base(ev.Name)
	if !project.FileAllowed(filename) {
		return
	}

	projectDir := filepath.Dir(ev.Name)
	if filepath.Dir(projectDir) != w.filesDir {
		return
	}
	projectID := filepath.Base(projectDir)

	w.log.Debug().Str("projectID", projectID).Str("file", filename).Msg("Project file changed")
	w.bus.PublishSync(event.Event{
		Type: event.FileEdited,
		Data: event.FileEditedData{ProjectID: projectID, File: filename},
	})
}

// Stop stops the watcher and waits for the run loop to exit.
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
