package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"skillgap/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher reloads a PromptStore when its prompt files change on disk
type PromptWatcher struct {
	mu sync.Mutex

	files []PromptFile
	store *PromptStore

	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	running bool
}

// NewPromptWatcher creates a watcher for the given prompt files
func NewPromptWatcher(store *PromptStore, files []PromptFile, debounceDelay time.Duration, logger *errors.Logger) *PromptWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	return &PromptWatcher{
		files:         files,
		store:         store,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}
}

// Start begins watching. It is a no-op when there are no prompt files.
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(pw.files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	for _, path := range pw.paths() {
		if stat, err := os.Stat(path); err == nil {
			pw.lastModTime[path] = stat.ModTime()
		}
		// Watching the directory also catches atomic writes (rename over the file)
		dir := filepath.Dir(path)
		if err := watcher.Add(dir); err != nil && pw.logger != nil {
			pw.logger.Warn("Failed to watch prompt directory", "directory", dir, "error", err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher started", "files", pw.paths(), "debounce_delay", pw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}

	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false

	if err := pw.fsWatcher.Close(); err != nil {
		if pw.logger != nil {
			pw.logger.LogError(err, "Failed to close prompt file watcher")
		}
		return err
	}

	if pw.logger != nil {
		pw.logger.Info("Prompt file watcher stopped")
	}
	return nil
}

// IsRunning reports whether the watcher is active
func (pw *PromptWatcher) IsRunning() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.running
}

func (pw *PromptWatcher) paths() []string {
	out := make([]string, 0, len(pw.files))
	for _, f := range pw.files {
		if abs, err := filepath.Abs(f.Path); err == nil {
			out = append(out, abs)
		} else {
			out = append(out, f.Path)
		}
	}
	return out
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.shouldProcessEvent(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			if pw.logger != nil {
				pw.logger.LogError(err, "Prompt watcher error")
			}

		case <-pw.reloadChan:
			if pw.hasAnyFileChanged() {
				pw.reload()
			}

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) reload() {
	if err := pw.store.LoadFiles(pw.files); err != nil {
		if pw.logger != nil {
			pw.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
		}
		return
	}
	if pw.logger != nil {
		pw.logger.Info("Prompt files reloaded", "count", pw.store.Len())
	}
}

func (pw *PromptWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(pw.paths(), func(p string) bool {
		return name == p || filepath.Base(name) == filepath.Base(p)
	})
}

func (pw *PromptWatcher) hasAnyFileChanged() bool {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	changed := false
	for _, path := range pw.paths() {
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		if last, ok := pw.lastModTime[path]; !ok || stat.ModTime().After(last) {
			pw.lastModTime[path] = stat.ModTime()
			changed = true
		}
	}
	return changed
}

// scheduleReload debounces bursts of events into a single reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
