// Package idgen provides pluggable ID generation for formpilot.
//
// Constructors that mint identifiers (registration records, account IDs,
// aggressive-run attempts) accept a Generator, making the ID strategy a
// startup-time decision rather than a compile-time one.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Used for type-scoped identifiers ("acc_", "reg_", "att_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequential returns a Generator producing prefix0, prefix1, ... for
// deterministic output in tests. Not safe for concurrent use.
func Sequential(prefix string) Generator {
	n := 0
	return func() string {
		s := prefix + strconv.Itoa(n)
		n++
		return s
	}
}

// Default is the formpilot default: UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
