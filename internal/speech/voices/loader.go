// Package voices manages the per-provider voice catalogs, optionally
// overridden and hot-reloaded from a YAML file.
package voices

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/enhasa/enhasa/internal/speech/engine"
)

type fileCatalog struct {
	Provider     engine.ProviderID    `yaml:"provider"`
	DefaultVoice string               `yaml:"default_voice"`
	Voices       []engine.VoiceOption `yaml:"voices"`
}

type catalogFile struct {
	Catalogs []fileCatalog `yaml:"catalogs"`
}

// Loader holds the active catalog snapshot. A reload replaces the whole
// snapshot; a catalog handed out is never mutated afterwards.
type Loader struct {
	path string

	mu       sync.RWMutex
	catalogs map[engine.ProviderID]engine.VoiceCatalog
}

// NewLoader creates a loader seeded with the built-in catalogs. path may be
// empty, in which case Load keeps the defaults.
func NewLoader(path string) *Loader {
	return &Loader{path: path, catalogs: Defaults()}
}

// Load reads the override file. Providers the file does not mention keep
// their built-in catalog. An invalid file leaves the current snapshot active.
func (l *Loader) Load() error {
	if l.path == "" {
		return nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read voice catalog %q: %w", l.path, err)
	}
	overrides, err := Parse(data)
	if err != nil {
		return fmt.Errorf("load %q: %w", l.path, err)
	}

	next := Defaults()
	for id, c := range overrides {
		next[id] = c
	}

	l.mu.Lock()
	l.catalogs = next
	l.mu.Unlock()
	return nil
}

// Parse decodes and validates a catalog file.
func Parse(data []byte) (map[engine.ProviderID]engine.VoiceCatalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	result := make(map[engine.ProviderID]engine.VoiceCatalog, len(f.Catalogs))
	for _, fc := range f.Catalogs {
		c := engine.VoiceCatalog{Provider: fc.Provider, DefaultVoice: fc.DefaultVoice, Voices: fc.Voices}
		if err := Validate(c); err != nil {
			return nil, err
		}
		if _, dup := result[c.Provider]; dup {
			return nil, fmt.Errorf("provider %q listed twice", c.Provider)
		}
		result[c.Provider] = c
	}
	return result, nil
}

// Validate checks a catalog for a known provider, unique voice ids and a
// default voice that is part of the catalog.
func Validate(c engine.VoiceCatalog) error {
	if c.Provider != engine.ElevenLabs && c.Provider != engine.PlayHT {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if len(c.Voices) == 0 {
		return fmt.Errorf("provider %q: no voices", c.Provider)
	}
	seen := make(map[string]bool, len(c.Voices))
	for _, v := range c.Voices {
		if v.ID == "" {
			return fmt.Errorf("provider %q: voice without id", c.Provider)
		}
		if seen[v.ID] {
			return fmt.Errorf("provider %q: duplicate voice %q", c.Provider, v.ID)
		}
		seen[v.ID] = true
	}
	if c.DefaultVoice == "" {
		return errors.New("default_voice is required")
	}
	if !seen[c.DefaultVoice] {
		return fmt.Errorf("provider %q: default voice %q not in catalog", c.Provider, c.DefaultVoice)
	}
	return nil
}

// Catalog returns a copy of the active catalog for provider.
func (l *Loader) Catalog(provider engine.ProviderID) (engine.VoiceCatalog, bool) {
	l.mu.RLock()
	c, ok := l.catalogs[provider]
	l.mu.RUnlock()
	if !ok {
		return engine.VoiceCatalog{}, false
	}
	return clone(c), true
}

func clone(c engine.VoiceCatalog) engine.VoiceCatalog {
	voices := make([]engine.VoiceOption, len(c.Voices))
	for i, v := range c.Voices {
		v.SuitableGenres = slices.Clone(v.SuitableGenres)
		voices[i] = v
	}
	c.Voices = voices
	return c
}

// WatchAndReload watches the catalog file and reloads it on change.
// This blocks until the done channel is closed.
func (l *Loader) WatchAndReload(done <-chan struct{}) error {
	if l.path == "" {
		<-done
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", dir, err)
	}
	name := filepath.Clean(l.path)

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if err := l.Load(); err != nil {
					slog.Warn("voice catalog reload rejected", slog.String("path", l.path), slog.String("error", err.Error()))
					continue
				}
				slog.Info("voice catalog reloaded", slog.String("path", l.path))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
