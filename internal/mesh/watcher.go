package mesh

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"meshgate/pkg/logging"
)

// ManifestWatcher is a DiscoveryFeed backed by a directory of agent
// manifests, one YAML file per agent. Creating or updating a manifest
// announces the agent; deleting it withdraws the agent. Events are
// debounced so editors that write in several steps produce one
// announcement.
type ManifestWatcher struct {
	mu sync.Mutex

	dir              string
	debounceInterval time.Duration

	watcher *fsnotify.Watcher
	events  chan RegistryEvent

	// agentsByPath remembers which agent each manifest file announced so a
	// deleted file can be mapped back to a deregistration.
	agentsByPath map[string]string

	pending map[string]*time.Timer

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewManifestWatcher creates a watcher for the given manifest directory.
// A zero debounce interval selects a 200ms default.
func NewManifestWatcher(dir string, debounceInterval time.Duration) *ManifestWatcher {
	if debounceInterval <= 0 {
		debounceInterval = 200 * time.Millisecond
	}
	return &ManifestWatcher{
		dir:              dir,
		debounceInterval: debounceInterval,
		events:           make(chan RegistryEvent, 16),
		agentsByPath:     make(map[string]string),
		pending:          make(map[string]*time.Timer),
		stopCh:           make(chan struct{}),
	}
}

// Events returns the discovery feed channel.
func (w *ManifestWatcher) Events() <-chan RegistryEvent {
	return w.events
}

// Start scans the directory once, announcing every existing manifest, then
// begins following filesystem changes.
func (w *ManifestWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("manifest watcher already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.watcher = watcher
	w.running = true

	w.wg.Add(1)
	go w.watchLoop()

	// Initial scan happens after the watch is established so changes made
	// during the scan are not lost.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read manifest directory %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isManifestFile(entry.Name()) {
			continue
		}
		w.announcePathLocked(filepath.Join(w.dir, entry.Name()))
	}

	logging.Info("Mesh", "Watching agent manifests in %s", w.dir)
	return nil
}

// Stop stops following changes and closes the event channel.
func (w *ManifestWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	close(w.stopCh)
	w.watcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
}

func isManifestFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func (w *ManifestWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isManifestFile(event.Name) {
				continue
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Mesh", "Manifest watcher error: %v", err)
		}
	}
}

func (w *ManifestWatcher) handleFSEvent(event fsnotify.Event) {
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.debounce(event.Name, func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.running {
				w.announcePathLocked(event.Name)
			}
		})

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.debounce(event.Name, func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.running {
				w.withdrawPathLocked(event.Name)
			}
		})
	}
}

// debounce schedules fn after the debounce interval, resetting the timer if
// another event for the same path arrives first.
func (w *ManifestWatcher) debounce(path string, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if timer, exists := w.pending[path]; exists {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounceInterval, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		fn()
	})
}

func (w *ManifestWatcher) announcePathLocked(path string) {
	desc, err := loadManifest(path)
	if err != nil {
		logging.Warn("Mesh", "Skipping agent manifest %s: %v", path, err)
		return
	}

	// A manifest that renames its agent withdraws the old name first.
	if previous, ok := w.agentsByPath[path]; ok && previous != desc.Name {
		w.emit(RegistryEvent{Kind: EventAgentDeregistered, Agent: AgentDescriptor{Name: previous}})
	}
	w.agentsByPath[path] = desc.Name

	w.emit(RegistryEvent{Kind: EventAgentRegistered, Agent: desc})
	logging.Debug("Mesh", "Announced agent %s from %s (%d skills)", desc.Name, filepath.Base(path), len(desc.Skills))
}

func (w *ManifestWatcher) withdrawPathLocked(path string) {
	name, ok := w.agentsByPath[path]
	if !ok {
		return
	}
	delete(w.agentsByPath, path)
	w.emit(RegistryEvent{Kind: EventAgentDeregistered, Agent: AgentDescriptor{Name: name}})
	logging.Debug("Mesh", "Withdrew agent %s (%s removed)", name, filepath.Base(path))
}

func (w *ManifestWatcher) emit(ev RegistryEvent) {
	select {
	case w.events <- ev:
	case <-w.stopCh:
	}
}

func loadManifest(path string) (AgentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentDescriptor{}, err
	}

	var desc AgentDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return AgentDescriptor{}, fmt.Errorf("invalid manifest: %w", err)
	}
	if desc.Name == "" {
		return AgentDescriptor{}, fmt.Errorf("manifest has no agent name")
	}
	if len(desc.Skills) == 0 {
		return AgentDescriptor{}, fmt.Errorf("agent %s declares no skills", desc.Name)
	}
	return desc, nil
}
