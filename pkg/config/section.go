package config

// Section is a named group of related settings. Sections serialize
// themselves to and from generic maps so the store stays schema-agnostic.
type Section interface {
	// ID returns the stable section identifier used as the storage key.
	ID() string

	// Title returns a human-readable section name.
	Title() string

	// Description explains what the section configures.
	Description() string

	// Data returns the current configuration data.
	Data() map[string]interface{}

	// SetData updates the configuration from stored data. Unknown keys
	// are ignored; missing keys leave current values untouched.
	SetData(data map[string]interface{}) error

	// Validate checks the current configuration for consistency.
	Validate() error

	// Reset restores the section's defaults.
	Reset()
}
