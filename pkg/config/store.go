package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists section data keyed by section ID. The bridge keeps two
// sections, automation and assistant, but the store does not know that.
type Store interface {
	// Load reads the configuration from disk
	Load() error

	// Save writes the configuration to disk
	Save() error

	// GetSection retrieves the data of one section
	GetSection(sectionID string) (map[string]interface{}, error)

	// SetSection stores the data of one section
	SetSection(sectionID string, data map[string]interface{}) error

	// GetAll retrieves every section's data
	GetAll() (map[string]map[string]interface{}, error)

	// SetAll replaces every section's data
	SetAll(data map[string]map[string]interface{}) error
}

// storeFormat is the on-disk layout of the configuration file.
type storeFormat struct {
	Version  string                            `json:"version"`
	Sections map[string]map[string]interface{} `json:"sections"`
}

const storeVersion = "1.0"

// FileStore implements Store over a single JSON file. Saves are atomic:
// a temp file next to the target is renamed into place.
type FileStore struct {
	path     string
	data     map[string]map[string]interface{}
	mu       sync.RWMutex
	version  string
	modified bool
}

// NewFileStore opens (or prepares) the configuration file. An empty path
// selects the default ~/.gpt-bridge/config.json. A missing file is not
// an error; the first Save creates it.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".gpt-bridge", "config.json")
	}

	store := &FileStore{
		path:    path,
		data:    make(map[string]map[string]interface{}),
		version: storeVersion,
	}

	if err := store.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return store, nil
}

// Load reads the configuration file, replacing the in-memory data. A
// missing file leaves the store empty.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = make(map[string]map[string]interface{})
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var format storeFormat
	if err := json.NewDecoder(file).Decode(&format); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	s.version = format.Version
	s.data = format.Sections
	if s.data == nil {
		s.data = make(map[string]map[string]interface{})
	}
	s.modified = false

	return nil
}

// Save writes the configuration atomically, creating the directory if
// needed.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(storeFormat{Version: s.version, Sections: s.data}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// GetSection returns a copy of one section's data. An unknown section
// yields an empty map, which lets sections fall back to their defaults.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[sectionID]
	if !exists {
		return make(map[string]interface{}), nil
	}
	return copySection(data), nil
}

// SetSection replaces one section's data with a copy of the argument.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sectionID] = copySection(data)
	s.modified = true
	return nil
}

// GetAll returns a deep copy of every section.
func (s *FileStore) GetAll() (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]map[string]interface{}, len(s.data))
	for sectionID, sectionData := range s.data {
		all[sectionID] = copySection(sectionData)
	}
	return all, nil
}

// SetAll replaces every section with a deep copy of the argument.
func (s *FileStore) SetAll(data map[string]map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make(map[string]map[string]interface{}, len(data))
	for sectionID, sectionData := range data {
		all[sectionID] = copySection(sectionData)
	}
	s.data = all
	s.modified = true
	return nil
}

// IsModified reports whether the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// copySection shields the store's maps from callers and callers from the
// store.
func copySection(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
