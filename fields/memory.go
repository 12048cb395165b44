package fields

import (
	"slices"
	"sync"
)

// Memory is an in-process Accessor. It backs headless runs (no browser) and
// is the accessor used throughout the test suite.
//
// Dispatch calls are counted per field so tests can assert that restores
// synthesize the input/change notifications the live page would see.
type Memory struct {
	mu       sync.Mutex
	values   map[ID]string
	choices  map[ID][]string
	dispatch map[ID]int

	// Missing marks fields that behave as absent from the page: every
	// access returns ErrUnknownField. Used to exercise the best-effort
	// restore path.
	missing map[ID]bool
}

// NewMemory creates an empty in-memory field set.
func NewMemory() *Memory {
	return &Memory{
		values:   make(map[ID]string),
		choices:  make(map[ID][]string),
		dispatch: make(map[ID]int),
		missing:  make(map[ID]bool),
	}
}

func (m *Memory) check(id ID) error {
	if !Valid(id) || m.missing[id] {
		return &ErrUnknownField{ID: id}
	}
	return nil
}

// Get returns the current value of a field.
func (m *Memory) Get(id ID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return "", err
	}
	return m.values[id], nil
}

// Set writes a field value.
func (m *Memory) Set(id ID, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return err
	}
	m.values[id] = value
	return nil
}

// Dispatch records a synthetic input/change notification.
func (m *Memory) Dispatch(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return err
	}
	m.dispatch[id]++
	return nil
}

// Choices returns the option set of a choice field.
func (m *Memory) Choices(id ID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return nil, err
	}
	return slices.Clone(m.choices[id]), nil
}

// SetChoices replaces the option set of a choice field. A current value no
// longer present among the options is cleared.
func (m *Memory) SetChoices(id ID, choices []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(id); err != nil {
		return err
	}
	m.choices[id] = slices.Clone(choices)
	if v := m.values[id]; v != "" && !slices.Contains(choices, v) {
		m.values[id] = ""
	}
	return nil
}

// Dispatched returns how many times Dispatch fired for a field.
func (m *Memory) Dispatched(id ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatch[id]
}

// SetMissing marks a field as absent from the page (or restores it).
func (m *Memory) SetMissing(id ID, missing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[id] = missing
}
