package regflow

import (
	"fmt"
	"strings"
)

// Rand is the slice of randomness the orchestrator draws from.
// *math/rand/v2.Rand satisfies it; tests inject a scripted sequence.
type Rand interface {
	IntN(n int) int
}

var firstNames = []string{
	"Alex", "Jordan", "Taylor", "Morgan", "Casey", "Riley",
	"Quinn", "Avery", "Cameron", "Reese", "Skyler", "Drew",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
	"Miller", "Davis", "Martinez", "Lopez", "Wilson", "Anderson",
}

var countries = []string{"US", "GB", "CA", "AU", "DE", "FR", "NL", "SE"}

const passwordSymbols = "!#$%&*+-?@"

// IdentityGen produces random registration data: name pairs, email local
// parts, passwords and birth dates. All draws go through the injected Rand
// so a scripted source makes the output fully deterministic.
type IdentityGen struct {
	rng Rand
}

// NewIdentityGen creates a generator over the given randomness source.
func NewIdentityGen(rng Rand) *IdentityGen {
	return &IdentityGen{rng: rng}
}

// NamePair draws a first/last name combination.
func (g *IdentityGen) NamePair() (first, last string) {
	return firstNames[g.rng.IntN(len(firstNames))],
		lastNames[g.rng.IntN(len(lastNames))]
}

// EmailSuffix draws a four-digit numeric suffix for email variants.
func (g *IdentityGen) EmailSuffix() string {
	return fmt.Sprintf("%04d", g.rng.IntN(10000))
}

// EmailLocal composes a lowercase local part from a name pair plus suffix.
func (g *IdentityGen) EmailLocal(first, last string) string {
	return strings.ToLower(first) + strings.ToLower(last) + g.EmailSuffix()
}

// Password draws a password satisfying every strength criterion: length 12,
// lower, upper, digit and symbol classes all present.
func (g *IdentityGen) Password() string {
	const lower = "abcdefghijkmnpqrstuvwxyz"
	const upper = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"

	b := make([]byte, 0, 12)
	b = append(b, upper[g.rng.IntN(len(upper))])
	for i := 0; i < 7; i++ {
		b = append(b, lower[g.rng.IntN(len(lower))])
	}
	for i := 0; i < 3; i++ {
		b = append(b, digits[g.rng.IntN(len(digits))])
	}
	b = append(b, passwordSymbols[g.rng.IntN(len(passwordSymbols))])
	return string(b)
}

// BirthDate draws a plausible adult birth date (years 1970–1999), zero-padded
// month and day, day capped at 28 so every month accepts it.
func (g *IdentityGen) BirthDate() (year, month, day string) {
	return fmt.Sprintf("%d", 1970+g.rng.IntN(30)),
		fmt.Sprintf("%02d", 1+g.rng.IntN(12)),
		fmt.Sprintf("%02d", 1+g.rng.IntN(28))
}

// Country draws a country code.
func (g *IdentityGen) Country() string {
	return countries[g.rng.IntN(len(countries))]
}

// Complete fills any missing birth date or country in place, per the smart
// profile's data optimization step.
func (g *IdentityGen) Complete(d *FormData) {
	if d.BirthYear == "" || d.BirthMonth == "" || d.BirthDay == "" {
		d.BirthYear, d.BirthMonth, d.BirthDay = g.BirthDate()
	}
	if d.Country == "" {
		d.Country = g.Country()
	}
}

// Alternatives builds n fallback email local parts for the given data.
func (g *IdentityGen) Alternatives(d FormData, n int) []string {
	alts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		alts = append(alts, d.Email+g.EmailSuffix())
	}
	return alts
}

// FormData draws a complete random registration identity.
func (g *IdentityGen) FormData() FormData {
	first, last := g.NamePair()
	year, month, day := g.BirthDate()
	return FormData{
		FirstName:  first,
		LastName:   last,
		Email:      g.EmailLocal(first, last),
		Password:   g.Password(),
		BirthYear:  year,
		BirthMonth: month,
		BirthDay:   day,
		Country:    g.Country(),
	}
}
