// Package fields defines the live form field collaborator: a small accessor
// surface over the fixed set of signup form inputs. The watchdog (formguard)
// and the orchestrator (regflow) both read and write through this interface;
// neither touches the DOM or any other backing directly.
//
// Two implementations ship with formpilot: Memory (headless operation and
// tests) and browser.FormPage (a real Chrome tab driven via Rod).
package fields

import "fmt"

// ID identifies one logical form field.
type ID string

// The fixed signup field set. Order is the canonical enumeration order.
const (
	FirstName  ID = "first-name"
	LastName   ID = "last-name"
	Email      ID = "desired-email"
	Password   ID = "password"
	BirthYear  ID = "birth-year"
	BirthMonth ID = "birth-month"
	BirthDay   ID = "birth-day"
	Country    ID = "country"
)

// All returns the tracked field set in canonical order. The returned slice
// is a fresh copy on every call.
func All() []ID {
	return []ID{
		FirstName, LastName, Email, Password,
		BirthYear, BirthMonth, BirthDay, Country,
	}
}

// Valid reports whether id names one of the tracked fields.
func Valid(id ID) bool {
	for _, f := range All() {
		if f == id {
			return true
		}
	}
	return false
}

// Accessor reads and writes live field values. Implementations must treat an
// unknown field as an error, not a panic; callers decide whether a missing
// field aborts the operation or is skipped.
type Accessor interface {
	// Get returns the current live value of a field.
	Get(id ID) (string, error)

	// Set writes a value into a field without dispatching events.
	Set(id ID, value string) error

	// Dispatch fires the field's input and change notifications so dependent
	// logic (derived option sets, validators) re-runs.
	Dispatch(id ID) error

	// Choices returns the selectable options of a choice field (birth day,
	// birth month, country). For free-text fields it returns nil, nil.
	Choices(id ID) ([]string, error)

	// SetChoices replaces the selectable options of a choice field. The
	// current value is cleared if it is no longer among the options.
	SetChoices(id ID, choices []string) error
}

// ErrUnknownField is returned by accessors for field identifiers outside the
// tracked set.
type ErrUnknownField struct {
	ID ID
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("fields: unknown field %q", string(e.ID))
}
