// Package usermod provides the host side of the plugin contract: the module
// interface, an explicit registry, and persistence of module configuration.
package usermod

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateID is returned when two modules register the same id.
var ErrDuplicateID = errors.New("usermod: duplicate module id")

// Module is implemented by every plugin the host drives.
type Module interface {
	// ID returns a registry-unique identifier.
	ID() uint16

	// Name returns the key of the module's object in the config tree.
	Name() string

	// Initialize is called once at startup after configuration is loaded.
	Initialize()

	// Poll is called once per host tick. It must not block.
	Poll(now time.Time)

	// ExportConfig writes the module's object into root.
	ExportConfig(root map[string]json.RawMessage) error

	// LoadConfig reads the module's object from root and returns false if
	// it was not present.
	LoadConfig(root map[string]json.RawMessage) bool
}

// Registry holds modules in registration order.
// Not safe for concurrent use; the host drives it from its run loop.
type Registry struct {
	modules []Module
	byID    map[uint16]Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint16]Module)}
}

// Register adds m. Registering an id twice is an error.
func (r *Registry) Register(m Module) error {
	if _, ok := r.byID[m.ID()]; ok {
		return fmt.Errorf("%w: %d (%s)", ErrDuplicateID, m.ID(), m.Name())
	}
	r.byID[m.ID()] = m
	r.modules = append(r.modules, m)
	return nil
}

// Get returns the module registered under id.
func (r *Registry) Get(id uint16) (Module, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Modules returns the registered modules in registration order.
func (r *Registry) Modules() []Module {
	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Initialize initializes every module.
func (r *Registry) Initialize() {
	for _, m := range r.modules {
		m.Initialize()
	}
}

// Poll runs one tick for every module.
func (r *Registry) Poll(now time.Time) {
	for _, m := range r.modules {
		m.Poll(now)
	}
}

// ExportConfig collects every module's object into a fresh tree.
func (r *Registry) ExportConfig() (map[string]json.RawMessage, error) {
	root := make(map[string]json.RawMessage, len(r.modules))
	for _, m := range r.modules {
		if err := m.ExportConfig(root); err != nil {
			return nil, fmt.Errorf("export %s: %w", m.Name(), err)
		}
	}
	return root, nil
}

// LoadConfig hands root to every module and returns the names of modules
// that found no object of their own.
func (r *Registry) LoadConfig(root map[string]json.RawMessage) []string {
	var missing []string
	for _, m := range r.modules {
		if !m.LoadConfig(root) {
			missing = append(missing, m.Name())
		}
	}
	return missing
}
