package config

import (
	"slices"

	"github.com/vk/pnacldriver/internal/configstore"
)

// Model is the merged content of one or more configuration files.
type Model struct {
	// Vars replace store variables.
	Vars map[string][]string
	// Append extends store variables after Vars are applied.
	Append map[string][]string
	// Required names variables that must be set before they are read.
	Required []string
	// Sources lists the files the model was read from, in load order.
	Sources []string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Vars:   make(map[string][]string),
		Append: make(map[string][]string),
	}
}

// Merge layers other over m. A variable set by other drops whatever m
// appended to it; appends accumulate in order.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	for name, v := range other.Vars {
		m.Vars[name] = slices.Clone(v)
		delete(m.Append, name)
	}
	for name, v := range other.Append {
		m.Append[name] = append(m.Append[name], v...)
	}
	for _, name := range other.Required {
		if !slices.Contains(m.Required, name) {
			m.Required = append(m.Required, name)
		}
	}
	m.Sources = append(m.Sources, other.Sources...)
}

// Empty reports whether applying the model would change nothing.
func (m *Model) Empty() bool {
	return len(m.Vars) == 0 && len(m.Append) == 0 && len(m.Required) == 0
}

// Apply writes the model into store.
func (m *Model) Apply(store *configstore.Store) {
	store.SetAll(m.Vars)
	for name, v := range m.Append {
		store.Append(name, v...)
	}
	store.Require(m.Required...)
}
