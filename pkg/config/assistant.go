package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDAssistant is the identifier for the assistant section.
	SectionIDAssistant = "assistant"

	// BackendPage drives a logged-in assistant browser tab.
	BackendPage = "page"
	// BackendAPI calls the assistant's HTTP API directly.
	BackendAPI = "api"

	defaultAssistantBackend = BackendPage
	defaultAssistantModel   = "gpt-4o-mini"
	defaultAssistantURLGlob = "https://chatgpt.com/*"
	defaultInboxURLGlob     = "https://business.facebook.com/latest/inbox/*"
)

// AssistantSection selects how answers are produced: by steering a browser
// tab on the assistant site, or by calling its API with a key.
type AssistantSection struct {
	Backend          string
	APIKey           string
	Model            string
	AssistantURLGlob string
	InboxURLGlob     string
	ProfilePath      string
	mu               sync.RWMutex
}

// NewAssistantSection creates the section with its defaults.
func NewAssistantSection() *AssistantSection {
	return &AssistantSection{
		Backend:          defaultAssistantBackend,
		Model:            defaultAssistantModel,
		AssistantURLGlob: defaultAssistantURLGlob,
		InboxURLGlob:     defaultInboxURLGlob,
	}
}

// ID returns the section identifier.
func (s *AssistantSection) ID() string {
	return SectionIDAssistant
}

// Title returns the section title.
func (s *AssistantSection) Title() string {
	return "Assistant"
}

// Description returns the section description.
func (s *AssistantSection) Description() string {
	return "Answer backend selection, page URL patterns and the selector profile path."
}

// Data returns the current configuration data.
func (s *AssistantSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"backend":            s.Backend,
		"api_key":            s.APIKey,
		"model":              s.Model,
		"assistant_url_glob": s.AssistantURLGlob,
		"inbox_url_glob":     s.InboxURLGlob,
		"profile_path":       s.ProfilePath,
	}
}

// SetData updates the configuration from the provided data.
func (s *AssistantSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if backend, ok := data["backend"].(string); ok && backend != "" {
		s.Backend = backend
	}
	if key, ok := data["api_key"].(string); ok {
		s.APIKey = key
	}
	if model, ok := data["model"].(string); ok && model != "" {
		s.Model = model
	}
	if pattern, ok := data["assistant_url_glob"].(string); ok && pattern != "" {
		s.AssistantURLGlob = pattern
	}
	if pattern, ok := data["inbox_url_glob"].(string); ok && pattern != "" {
		s.InboxURLGlob = pattern
	}
	if path, ok := data["profile_path"].(string); ok {
		s.ProfilePath = path
	}
	return nil
}

// Validate validates the current configuration.
func (s *AssistantSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Backend {
	case BackendPage:
	case BackendAPI:
		if s.APIKey == "" {
			return fmt.Errorf("api backend requires api_key")
		}
	default:
		return fmt.Errorf("unknown backend %q, expected %q or %q", s.Backend, BackendPage, BackendAPI)
	}
	if s.AssistantURLGlob == "" {
		return fmt.Errorf("assistant_url_glob must not be empty")
	}
	if s.InboxURLGlob == "" {
		return fmt.Errorf("inbox_url_glob must not be empty")
	}
	return nil
}

// Reset restores the defaults.
func (s *AssistantSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Backend = defaultAssistantBackend
	s.APIKey = ""
	s.Model = defaultAssistantModel
	s.AssistantURLGlob = defaultAssistantURLGlob
	s.InboxURLGlob = defaultInboxURLGlob
	s.ProfilePath = ""
}

// GetBackend returns the selected backend.
func (s *AssistantSection) GetBackend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Backend
}

// GetAPIKey returns the configured API key.
func (s *AssistantSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// GetModel returns the model used by the API backend.
func (s *AssistantSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// GetAssistantURLGlob returns the pattern used to recognize assistant tabs.
func (s *AssistantSection) GetAssistantURLGlob() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AssistantURLGlob
}

// GetInboxURLGlob returns the pattern used to recognize inbox tabs.
func (s *AssistantSection) GetInboxURLGlob() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.InboxURLGlob
}

// GetProfilePath returns an optional selector profile override file.
func (s *AssistantSection) GetProfilePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ProfilePath
}
