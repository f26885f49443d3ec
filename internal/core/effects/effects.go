// Package effects defines effect types as data structures representing I/O operations.
// This is the foundation of the Functional Core / Imperative Shell pattern.
// Effects are pure data - they describe what should happen, not how.
package effects

// Effect is the base interface for all effects.
// Effects represent I/O operations as data that can be interpreted by the shell.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// Sidecar operations.
const (
	SidecarSetField    = "set_field"
	SidecarRemoveField = "remove_field"
)

// SidecarEffect represents a rewrite of a JSON sidecar document.
// The document is loaded, one field is set or removed, and the whole
// document is written back.
type SidecarEffect struct {
	Operation string   // SidecarSetField or SidecarRemoveField
	Path      string   // Absolute path to the sidecar
	Field     string   // e.g., "IntendedFor"
	Values    []string // For set_field operations
}

func (e SidecarEffect) EffectType() string { return "sidecar" }

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
