package configstore

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Store is a mapping of variable names to token sequences plus a stack of
// saved snapshots.
type Store struct {
	vars     map[string][]string
	required map[string]struct{}
	stack    []map[string][]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		vars:     make(map[string][]string),
		required: make(map[string]struct{}),
	}
}

// NewWithDefaults creates a store pre-populated with the given variables.
func NewWithDefaults(defaults map[string][]string) *Store {
	s := New()
	s.SetAll(defaults)
	return s
}

// Get returns a copy of the variable's tokens. An unset name reads as an
// empty sequence.
func (s *Store) Get(name string) []string {
	return slices.Clone(s.vars[name])
}

// Lookup returns the variable's tokens and whether the name has been set
// at all, even to an empty sequence.
func (s *Store) Lookup(name string) ([]string, bool) {
	v, ok := s.vars[name]
	return slices.Clone(v), ok
}

// Has reports whether the name has been set.
func (s *Store) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// MustGet is Get for callers that need the name to be defined.
func (s *Store) MustGet(name string) ([]string, error) {
	v, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
	}
	return v, nil
}

// Require marks names as required. Fetch and CheckRequired fail for a
// required name that has no value.
func (s *Store) Require(names ...string) {
	for _, n := range names {
		s.required[n] = struct{}{}
	}
}

// Fetch is Get that enforces Require.
func (s *Store) Fetch(name string) ([]string, error) {
	v, ok := s.Lookup(name)
	if _, req := s.required[name]; req && !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, name)
	}
	return v, nil
}

// CheckRequired returns ErrMissingConfig naming every required variable
// that is still unset.
func (s *Store) CheckRequired() error {
	var missing []string
	for n := range s.required {
		if !s.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}

// GetJoined returns the tokens joined with single spaces. It is a derived
// view; the sequence is the canonical form.
func (s *Store) GetJoined(name string) string {
	return strings.Join(s.vars[name], " ")
}

// GetBool applies the canonical truthiness rule: an empty sequence, or one
// equal to ["0"] or [""], is false.
func (s *Store) GetBool(name string) bool {
	return Truthy(s.vars[name])
}

// Truthy is the truthiness rule used by GetBool.
func Truthy(v []string) bool {
	switch {
	case len(v) == 0:
		return false
	case len(v) == 1 && (v[0] == "0" || v[0] == ""):
		return false
	}
	return true
}

// Set replaces the variable's tokens.
func (s *Store) Set(name string, values ...string) {
	s.vars[name] = append([]string{}, values...)
}

// SetAll sets every variable in m.
func (s *Store) SetAll(m map[string][]string) {
	for name, v := range m {
		s.Set(name, v...)
	}
}

// Append extends the variable's tokens, preserving order.
func (s *Store) Append(name string, values ...string) {
	s.vars[name] = append(s.vars[name], values...)
}

// Unset removes the variable.
func (s *Store) Unset(name string) {
	delete(s.vars, name)
}

// Push saves a full copy of the current variables.
func (s *Store) Push() {
	s.stack = append(s.stack, s.Snapshot())
}

// Pop restores the variables saved by the matching Push.
func (s *Store) Pop() error {
	if len(s.stack) == 0 {
		return ErrEmptyStack
	}
	top := len(s.stack) - 1
	s.vars = s.stack[top]
	s.stack = s.stack[:top]
	return nil
}

// Depth returns the number of outstanding Push scopes.
func (s *Store) Depth() int {
	return len(s.stack)
}

// Scoped runs fn between Push and Pop. The scope is released on every exit
// path, including a panic inside fn.
func (s *Store) Scoped(fn func() error) (err error) {
	s.Push()
	defer func() {
		if perr := s.Pop(); perr != nil && err == nil {
			err = perr
		}
	}()
	return fn()
}

// Snapshot returns a deep copy of the current variables.
func (s *Store) Snapshot() map[string][]string {
	out := make(map[string][]string, len(s.vars))
	for name, v := range s.vars {
		out[name] = slices.Clone(v)
	}
	return out
}

// Names returns the defined variable names in sorted order.
func (s *Store) Names() []string {
	return slices.Sorted(maps.Keys(s.vars))
}
