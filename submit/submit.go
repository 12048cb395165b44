// Package submit defines the signup submission collaborator. The orchestrator
// hands it a prepared payload and receives either a Receipt or one of a fixed
// set of failure conditions.
//
// Three implementations: Mock (weighted random outcomes, injected RNG),
// Script (a fixed outcome sequence for deterministic tests), and HTTP (a
// best-effort real form post with scraped hidden-input tokens).
package submit

import (
	"context"
	"errors"
	"strings"
)

// Payload is the prepared registration request.
type Payload struct {
	Email      string `json:"email"` // full address, local part + domain
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	BirthYear  string `json:"birth_year"`
	BirthMonth string `json:"birth_month"`
	BirthDay   string `json:"birth_day"`
	Country    string `json:"country"`
}

// Receipt is a successful submission outcome.
type Receipt struct {
	Email             string `json:"email"`
	AccountID         string `json:"account_id"`
	Message           string `json:"message"`
	NeedsVerification bool   `json:"needs_verification"`
}

// Submitter accepts a prepared payload. Implementations return a Receipt or
// one of the fixed error conditions below.
type Submitter interface {
	Submit(ctx context.Context, p Payload) (*Receipt, error)
}

// AvailabilityChecker is an optional capability: probing whether an address
// is still free before the full submission. Submitters without it simply
// skip the probe.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, email string) error
}

// The fixed failure conditions a submission can produce.
var (
	ErrEmailTaken  = errors.New("email taken")
	ErrRateLimited = errors.New("rate limited")
	ErrServer      = errors.New("server error")
	ErrNetwork     = errors.New("network error")
)

// transientMarkers is the message-substring table identifying errors worth
// retrying. Matching is by substring so wrapped and remote-originated
// messages classify the same way.
var transientMarkers = []string{
	"rate limited",
	"server error",
	"network error",
	"timeout",
	"connection",
}

// IsTransient reports whether an error is retryable under a profile's retry
// wrapper. Validation and unknown conditions are terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
