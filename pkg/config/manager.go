package config

import (
	"fmt"
	"sync"
)

// ChangeListener is notified after configuration has been saved. The
// scheduler uses this to restart its polling loop on settings changes.
type ChangeListener func()

// Manager coordinates sections and their persistence, and fans out change
// notifications to subscribers.
type Manager struct {
	store     Store
	mu        sync.RWMutex
	sections  map[string]Section
	order     []string
	listeners []ChangeListener
}

// NewManager creates a manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:    store,
		sections: make(map[string]Section),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// RegisterSection adds a section. Registering the same ID twice is an error.
func (m *Manager) RegisterSection(section Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := section.ID()
	if _, exists := m.sections[id]; exists {
		return fmt.Errorf("section %q already registered", id)
	}
	m.sections[id] = section
	m.order = append(m.order, id)
	return nil
}

// GetSection returns a registered section by ID.
func (m *Manager) GetSection(id string) (Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	section, ok := m.sections[id]
	return section, ok
}

// GetSections returns all registered sections in registration order.
func (m *Manager) GetSections() []Section {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sections := make([]Section, 0, len(m.order))
	for _, id := range m.order {
		sections = append(sections, m.sections[id])
	}
	return sections
}

// LoadAll loads the store and applies each section's stored data.
func (m *Manager) LoadAll() error {
	if err := m.store.Load(); err != nil {
		return fmt.Errorf("load config store: %w", err)
	}

	for _, section := range m.GetSections() {
		data, err := m.store.GetSection(section.ID())
		if err != nil {
			return fmt.Errorf("load section %q: %w", section.ID(), err)
		}
		if err := section.SetData(data); err != nil {
			return fmt.Errorf("apply section %q: %w", section.ID(), err)
		}
	}
	return nil
}

// SaveAll validates and persists every section, then notifies listeners.
func (m *Manager) SaveAll() error {
	for _, section := range m.GetSections() {
		if err := section.Validate(); err != nil {
			return fmt.Errorf("validate section %q: %w", section.ID(), err)
		}
		if err := m.store.SetSection(section.ID(), section.Data()); err != nil {
			return fmt.Errorf("stage section %q: %w", section.ID(), err)
		}
	}
	if err := m.store.Save(); err != nil {
		return fmt.Errorf("save config store: %w", err)
	}

	m.notify()
	return nil
}

// ResetAll restores every section to its defaults. Nothing is persisted
// until SaveAll is called.
func (m *Manager) ResetAll() {
	for _, section := range m.GetSections() {
		section.Reset()
	}
}

// Subscribe registers a listener called after every successful SaveAll.
func (m *Manager) Subscribe(listener ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) notify() {
	m.mu.RLock()
	listeners := append([]ChangeListener(nil), m.listeners...)
	m.mu.RUnlock()

	for _, listener := range listeners {
		listener()
	}
}
