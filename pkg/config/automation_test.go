package config

import (
	"testing"
	"time"
)

func TestAutomationSection_Defaults(t *testing.T) {
	section := NewAutomationSection()

	if section.ID() != SectionIDAutomation {
		t.Errorf("Expected ID %q, got %q", SectionIDAutomation, section.ID())
	}
	if section.AutomationEnabled() {
		t.Error("Automation should default to disabled")
	}
	if section.PartialAutomation() {
		t.Error("Partial automation should default to disabled")
	}
	if section.GetPollInterval() != 5*time.Second {
		t.Errorf("Expected 5s poll interval, got %s", section.GetPollInterval())
	}
	if section.GetQuestionDelay() != 15*time.Second {
		t.Errorf("Expected 15s question delay, got %s", section.GetQuestionDelay())
	}
}

func TestAutomationSection_DataRoundTrip(t *testing.T) {
	section := NewAutomationSection()
	section.SetAutomationEnabled(true)
	section.SetPartialAutomation(true)

	data := section.Data()

	restored := NewAutomationSection()
	if err := restored.SetData(data); err != nil {
		t.Fatalf("SetData failed: %v", err)
	}

	if !restored.AutomationEnabled() {
		t.Error("Enabled flag lost in round trip")
	}
	if !restored.PartialAutomation() {
		t.Error("Partial flag lost in round trip")
	}
	if restored.GetPollInterval() != section.GetPollInterval() {
		t.Error("Poll interval lost in round trip")
	}
}

func TestAutomationSection_SetData(t *testing.T) {
	t.Run("accepts JSON-decoded numbers", func(t *testing.T) {
		section := NewAutomationSection()
		err := section.SetData(map[string]interface{}{
			"poll_interval_seconds":  float64(10),
			"question_delay_seconds": float64(30),
		})
		if err != nil {
			t.Fatalf("SetData failed: %v", err)
		}

		if section.GetPollInterval() != 10*time.Second {
			t.Errorf("Expected 10s, got %s", section.GetPollInterval())
		}
		if section.GetQuestionDelay() != 30*time.Second {
			t.Errorf("Expected 30s, got %s", section.GetQuestionDelay())
		}
	})

	t.Run("ignores unknown or malformed keys", func(t *testing.T) {
		section := NewAutomationSection()
		err := section.SetData(map[string]interface{}{
			"enabled": "yes",
			"bogus":   42,
		})
		if err != nil {
			t.Fatalf("SetData failed: %v", err)
		}
		if section.AutomationEnabled() {
			t.Error("String value should not toggle enabled")
		}
	})

	t.Run("nil data is a no-op", func(t *testing.T) {
		section := NewAutomationSection()
		if err := section.SetData(nil); err != nil {
			t.Fatalf("SetData(nil) failed: %v", err)
		}
	})
}

func TestAutomationSection_Validate(t *testing.T) {
	section := NewAutomationSection()
	if err := section.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}

	section.PollInterval = 0
	if err := section.Validate(); err == nil {
		t.Error("Zero poll interval should fail validation")
	}

	section.PollInterval = time.Second
	section.QuestionDelay = -time.Second
	if err := section.Validate(); err == nil {
		t.Error("Negative question delay should fail validation")
	}
}

func TestAutomationSection_Reset(t *testing.T) {
	section := NewAutomationSection()
	section.SetAutomationEnabled(true)
	section.SetPartialAutomation(true)
	section.PollInterval = time.Minute

	section.Reset()

	if section.AutomationEnabled() || section.PartialAutomation() {
		t.Error("Reset should restore disabled defaults")
	}
	if section.GetPollInterval() != 5*time.Second {
		t.Errorf("Reset should restore 5s poll interval, got %s", section.GetPollInterval())
	}
}
