package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads prompt templates from user-editable files, one
// template per <name>.txt file. Edits take effect without a restart:
// a filesystem watcher invalidates the cache when a file changes.
//
// Absent files are reported as errors; the orchestrator falls back to
// its embedded defaults.
type PromptStore struct {
	mu      sync.RWMutex
	dir     string
	cache   map[string]string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewPromptStore creates a prompt store over promptDir.
// If promptDir is empty, defaults to ~/.ragdex/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".ragdex", "prompts")
	}

	if err := os.MkdirAll(promptDir, 0700); err != nil {
		return nil, fmt.Errorf("creating prompt directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(promptDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching prompt directory: %w", err)
	}

	s := &PromptStore{
		dir:     promptDir,
		cache:   make(map[string]string),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go s.watch()
	return s, nil
}

// Load returns the template body for the given name.
func (s *PromptStore) Load(name string) (string, error) {
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", fmt.Errorf("loading prompt %s: %w", name, err)
	}
	prompt := string(data)

	s.mu.Lock()
	s.cache[name] = prompt
	s.mu.Unlock()
	return prompt, nil
}

// Close stops the filesystem watcher.
func (s *PromptStore) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *PromptStore) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), ".txt")
			s.mu.Lock()
			delete(s.cache, name)
			s.mu.Unlock()
			logger.Debug("Prompt template %s invalidated", name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Prompt watcher error: %v", err)
		}
	}
}
