package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDAutomation is the identifier for the automation section.
	SectionIDAutomation = "automation"

	defaultAutomationEnabled = false
	defaultPartialAutomation = false
	defaultPollInterval      = 5 * time.Second
	defaultQuestionDelay     = 15 * time.Second
)

// AutomationSection controls whether the bridge scans the inbox at all and
// whether replies are sent automatically or only staged for manual review.
// Automation ships disabled; the operator opts in.
type AutomationSection struct {
	Enabled       bool
	Partial       bool
	PollInterval  time.Duration
	QuestionDelay time.Duration
	mu            sync.RWMutex
}

// NewAutomationSection creates the section with its defaults.
func NewAutomationSection() *AutomationSection {
	return &AutomationSection{
		Enabled:       defaultAutomationEnabled,
		Partial:       defaultPartialAutomation,
		PollInterval:  defaultPollInterval,
		QuestionDelay: defaultQuestionDelay,
	}
}

// ID returns the section identifier.
func (s *AutomationSection) ID() string {
	return SectionIDAutomation
}

// Title returns the section title.
func (s *AutomationSection) Title() string {
	return "Automation"
}

// Description returns the section description.
func (s *AutomationSection) Description() string {
	return "Controls inbox scanning. partial_automation drafts replies without sending them; the scan pauses after each draft until manually resumed."
}

// Data returns the current configuration data.
func (s *AutomationSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"enabled":                s.Enabled,
		"partial_automation":     s.Partial,
		"poll_interval_seconds":  s.PollInterval.Seconds(),
		"question_delay_seconds": s.QuestionDelay.Seconds(),
	}
}

// SetData updates the configuration from the provided data.
func (s *AutomationSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled, ok := data["enabled"].(bool); ok {
		s.Enabled = enabled
	}
	if partial, ok := data["partial_automation"].(bool); ok {
		s.Partial = partial
	}
	if secs, ok := asSeconds(data["poll_interval_seconds"]); ok {
		s.PollInterval = secs
	}
	if secs, ok := asSeconds(data["question_delay_seconds"]); ok {
		s.QuestionDelay = secs
	}
	return nil
}

// Validate validates the current configuration.
func (s *AutomationSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.PollInterval <= 0 {
		return fmt.Errorf("poll_interval_seconds must be positive, got %s", s.PollInterval)
	}
	if s.QuestionDelay < 0 {
		return fmt.Errorf("question_delay_seconds must not be negative, got %s", s.QuestionDelay)
	}
	return nil
}

// Reset restores the defaults.
func (s *AutomationSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = defaultAutomationEnabled
	s.Partial = defaultPartialAutomation
	s.PollInterval = defaultPollInterval
	s.QuestionDelay = defaultQuestionDelay
}

// AutomationEnabled reports whether scanning is enabled.
func (s *AutomationSection) AutomationEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Enabled
}

// SetAutomationEnabled toggles scanning.
func (s *AutomationSection) SetAutomationEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = enabled
}

// PartialAutomation reports whether replies are staged rather than sent.
func (s *AutomationSection) PartialAutomation() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Partial
}

// SetPartialAutomation toggles partial mode.
func (s *AutomationSection) SetPartialAutomation(partial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Partial = partial
}

// GetPollInterval returns the discovery polling interval.
func (s *AutomationSection) GetPollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PollInterval
}

// GetQuestionDelay returns the delay between successive assistant requests.
func (s *AutomationSection) GetQuestionDelay() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.QuestionDelay
}

// asSeconds converts a stored numeric value (JSON numbers decode as
// float64) into a duration.
func asSeconds(v interface{}) (time.Duration, bool) {
	switch value := v.(type) {
	case float64:
		return time.Duration(value * float64(time.Second)), true
	case int:
		return time.Duration(value) * time.Second, true
	}
	return 0, false
}
