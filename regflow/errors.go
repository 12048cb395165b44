package regflow

import (
	"errors"
	"fmt"
	"strings"
)

// MissingFieldError lists required fields that were empty at validation.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "regflow: missing required fields: " + strings.Join(e.Fields, ", ")
}

// WeakPasswordError rejects a password classified weak by the strength rule.
type WeakPasswordError struct {
	Score int
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("regflow: password too weak (score %d)", e.Score)
}

// UnknownStrategyError reports an unrecognised profile name.
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("regflow: unknown strategy %q", e.Name)
}

// ErrEmailTooShort rejects an email local part under three characters.
var ErrEmailTooShort = errors.New("regflow: email local part must be at least 3 characters")

// StepFailure wraps whatever a failing pipeline step's collaborator threw.
// Terminal unless the active profile's retry wrapper covers that step.
type StepFailure struct {
	Step string
	Err  error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("regflow: step %q failed: %v", e.Step, e.Err)
}

func (e *StepFailure) Unwrap() error { return e.Err }
