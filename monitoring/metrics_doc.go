// Package monitoring publishes the model evaluation metrics document and the
// live prediction feed.
package monitoring

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrMetricsUnavailable marks an absent metrics document. It is a
// reportable-but-non-fatal condition, surfaced as a not-found response.
var ErrMetricsUnavailable = errors.New("metrics document unavailable")

// MetricsStore serves the metrics document written at training time.
// Training may rewrite the document while the server runs; an fsnotify
// watcher keeps the served copy current. The fitted model artifacts are
// never reloaded this way.
type MetricsStore struct {
	path string

	mu  sync.RWMutex
	doc map[string]float64

	watcher *fsnotify.Watcher
}

// NewMetricsStore loads the document if present. Absence is not an error
// here; it surfaces per request via Current.
func NewMetricsStore(path string) *MetricsStore {
	s := &MetricsStore{path: path}
	s.reload()
	return s
}

// Watch reloads the document whenever the file is rewritten or created.
func (s *MetricsStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					s.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.S().Warnw("metrics watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (s *MetricsStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

// Current returns the served copy of the metrics document, or
// ErrMetricsUnavailable when no document exists.
func (s *MetricsStore) Current() (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrMetricsUnavailable
	}
	out := make(map[string]float64, len(s.doc))
	for k, v := range s.doc {
		out[k] = v
	}
	return out, nil
}

func (s *MetricsStore) reload() {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		s.mu.Lock()
		s.doc = nil
		s.mu.Unlock()
		return
	}
	var doc map[string]float64
	if err := json.Unmarshal(payload, &doc); err != nil {
		zap.S().Warnw("metrics document unreadable", "path", s.path, "error", err)
		return
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}
