package decision

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"moneyagent/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher serves the system prompt, hot-reloading an override file
// when one is configured. With no path (or an unreadable file) the built-in
// prompt is used.
type PromptWatcher struct {
	path string

	mu      sync.RWMutex
	current string

	watcher *fsnotify.Watcher
}

func NewPromptWatcher(path string) (*PromptWatcher, error) {
	pw := &PromptWatcher{path: strings.TrimSpace(path), current: defaultSystemPrompt}
	if pw.path == "" {
		return pw, nil
	}
	pw.reload()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch registered on the file itself.
	if err := w.Add(filepath.Dir(pw.path)); err != nil {
		w.Close()
		return nil, err
	}
	pw.watcher = w
	go pw.loop()
	return pw, nil
}

func (pw *PromptWatcher) loop() {
	for {
		select {
		case evt, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != filepath.Clean(pw.path) {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pw.reload()
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			logger.Errorf("prompt watcher: %v", err)
		}
	}
}

func (pw *PromptWatcher) reload() {
	raw, err := os.ReadFile(pw.path)
	if err != nil {
		logger.Warnf("prompt override %s unreadable, keeping current prompt: %v", pw.path, err)
		return
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		logger.Warnf("prompt override %s is empty, keeping current prompt", pw.path)
		return
	}
	pw.mu.Lock()
	pw.current = text
	pw.mu.Unlock()
	logger.Infof("system prompt reloaded from %s (%d bytes)", pw.path, len(text))
}

func (pw *PromptWatcher) SystemPrompt() string {
	pw.mu.RLock()
	defer pw.mu.RUnlock()
	return pw.current
}

func (pw *PromptWatcher) Close() error {
	if pw.watcher == nil {
		return nil
	}
	return pw.watcher.Close()
}
