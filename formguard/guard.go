// Package formguard implements the form-state protection watchdog. It
// continuously backs up the tracked signup fields and restores the last good
// snapshot when the live form loses most of its data, whatever the cause
// (page re-render, script interference, user error).
//
// The guard runs a small state machine over the field set as a whole:
//
//	Idle → Tracking → Degraded → Restoring → Tracking
//
// Two periodic ticks drive it: an assessment tick (default 2s) that measures
// how much of the form is empty and triggers a restore past the clear
// threshold, and an autosave tick (default 5s) that refreshes the snapshot
// from the live fields.
//
// formguard never raises to its caller. Per-field access failures are
// skipped, a partial restore is preferred over none, and internal failures
// reduce to a notification plus a no-op.
package formguard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/notify"
)

// State is the watchdog lifecycle state for the tracked field set.
type State int

const (
	StateIdle State = iota
	StateTracking
	StateDegraded
	StateRestoring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateDegraded:
		return "degraded"
	case StateRestoring:
		return "restoring"
	default:
		return "unknown"
	}
}

// Config controls guard behaviour. Intervals are tuning parameters, not
// correctness requirements.
type Config struct {
	// AssessInterval is how often the cleared-state assessment runs.
	// Default: 2s.
	AssessInterval time.Duration

	// AutosaveInterval is how often all live values are snapshotted.
	// Default: 5s.
	AutosaveInterval time.Duration

	// ClearThreshold is the clear ratio above which a restore triggers.
	// Default: 0.5. The trigger is strict: a ratio exactly at the
	// threshold does not restore.
	ClearThreshold float64

	Notifier notify.Notifier
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.AssessInterval <= 0 {
		c.AssessInterval = 2 * time.Second
	}
	if c.AutosaveInterval <= 0 {
		c.AutosaveInterval = 5 * time.Second
	}
	if c.ClearThreshold <= 0 {
		c.ClearThreshold = 0.5
	}
	if c.Notifier == nil {
		c.Notifier = notify.Nop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Guard is the form-state watchdog. Create one per tracked form via New.
type Guard struct {
	acc    fields.Accessor
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	snap     Snapshot
	state    State
	degraded bool
	lastA    Assessment
}

// New creates a Guard over the given field accessor. Call Run to start the
// periodic ticks, or drive AssessNow/SnapshotAll manually.
func New(acc fields.Accessor, cfg Config) *Guard {
	cfg.defaults()
	return &Guard{
		acc:    acc,
		cfg:    cfg,
		logger: cfg.Logger,
		snap:   make(Snapshot),
		state:  StateIdle,
	}
}

// Run drives the assessment and autosave tickers. Blocks until ctx is
// cancelled.
func (g *Guard) Run(ctx context.Context) {
	g.logger.Info("formguard: started",
		"assess_interval", g.cfg.AssessInterval,
		"autosave_interval", g.cfg.AutosaveInterval)

	assess := time.NewTicker(g.cfg.AssessInterval)
	defer assess.Stop()
	autosave := time.NewTicker(g.cfg.AutosaveInterval)
	defer autosave.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("formguard: stopped")
			return
		case <-assess.C:
			g.AssessNow(ctx)
		case <-autosave.C:
			g.SnapshotAll()
		}
	}
}

// CaptureField records a single field value into the snapshot, as observed
// from an input/change/blur event. The value is stored as given: an explicit
// edit to empty is the user's intent, not data loss.
func (g *Guard) CaptureField(id fields.ID, value string) {
	if !fields.Valid(id) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap[id] = value
	if g.state == StateIdle && g.snap.Valid() {
		g.state = StateTracking
	}
}

// SnapshotAll scans every live field into the snapshot. This is the
// steady-state autosave: it runs in any state and causes no transition.
// Empty live values do not overwrite previously captured ones, so a wiped
// form cannot destroy its own backup between two assessment ticks.
func (g *Guard) SnapshotAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range fields.All() {
		v, err := g.acc.Get(id)
		if err != nil {
			continue
		}
		if strings.TrimSpace(v) == "" {
			continue
		}
		g.snap[id] = v
	}
	if g.state == StateIdle && g.snap.Valid() {
		g.state = StateTracking
	}
}

// AssessNow runs one assessment tick: computes the cleared-state assessment
// and, past the clear threshold with a valid snapshot in hand, restores.
func (g *Guard) AssessNow(ctx context.Context) Assessment {
	a := assess(g.acc)

	g.mu.Lock()
	g.lastA = a
	trigger := a.ClearRatio > g.cfg.ClearThreshold && g.snap.Valid()
	g.degraded = trigger
	if trigger {
		g.state = StateDegraded
	}
	g.mu.Unlock()

	if !trigger {
		return a
	}

	g.logger.Warn("formguard: degraded state detected",
		"empty", a.EmptyCount, "total", a.TotalCount, "ratio", a.ClearRatio)
	g.cfg.Notifier.Notify(ctx, notify.Warning, "form data loss detected",
		fmt.Sprintf("%d of %d fields cleared, restoring backup", a.EmptyCount, a.TotalCount))

	n := g.RestoreAll(ctx)
	g.cfg.Notifier.Notify(ctx, notify.Success, "form restored",
		fmt.Sprintf("%d fields restored from backup", n))
	return a
}

// RestoreAll replays the snapshot into the live fields and returns how many
// fields were actually written. Values empty after trim are skipped, as are
// fields the accessor no longer knows. After each write the field's
// input/change notifications are dispatched so dependent logic re-runs.
//
// Restoring the birth month regenerates the dependent day option set for the
// restored month/year before the saved day is reapplied; a saved day beyond
// that month's day count is left unset, never clamped.
func (g *Guard) RestoreAll(ctx context.Context) int {
	g.mu.Lock()
	snap := g.snap.Clone()
	g.state = StateRestoring
	g.mu.Unlock()

	restored := 0
	for _, id := range fields.All() {
		v := snap[id]
		if strings.TrimSpace(v) == "" {
			continue
		}
		if id == fields.BirthDay {
			if !g.restoreBirthDay(snap, v) {
				continue
			}
			restored++
			continue
		}
		if err := g.acc.Set(id, v); err != nil {
			g.logger.Debug("formguard: restore skipped field", "field", string(id), "error", err)
			continue
		}
		if err := g.acc.Dispatch(id); err != nil {
			g.logger.Debug("formguard: dispatch failed", "field", string(id), "error", err)
		}
		restored++

		if id == fields.BirthMonth {
			g.regenerateDayChoices(snap)
		}
	}

	// degraded is left alone: it reports the last assessment's finding and
	// only the next clean assessment (or Clear) resets it.
	g.mu.Lock()
	if g.snap.Valid() {
		g.state = StateTracking
	} else {
		g.state = StateIdle
	}
	g.mu.Unlock()

	g.logger.Info("formguard: restore complete", "restored", restored)
	return restored
}

// regenerateDayChoices rebuilds the birth-day option set for the snapshot's
// month and year. Unparsable month or year leaves the options untouched.
func (g *Guard) regenerateDayChoices(snap Snapshot) {
	month, year, ok := birthMonthYear(snap)
	if !ok {
		return
	}
	days := daysInMonth(year, month)
	choices := make([]string, days)
	for i := range choices {
		choices[i] = fmt.Sprintf("%02d", i+1)
	}
	if err := g.acc.SetChoices(fields.BirthDay, choices); err != nil {
		g.logger.Debug("formguard: regenerate day options failed", "error", err)
	}
}

// restoreBirthDay reapplies the saved day after the month's option set has
// been regenerated. Returns false when the day is deliberately left unset.
func (g *Guard) restoreBirthDay(snap Snapshot, saved string) bool {
	day, err := strconv.Atoi(strings.TrimSpace(saved))
	if err != nil {
		return false
	}
	if month, year, ok := birthMonthYear(snap); ok {
		if day > daysInMonth(year, month) {
			g.logger.Info("formguard: saved day exceeds month length, left unset",
				"day", day, "month", month, "year", year)
			return false
		}
	}
	if err := g.acc.Set(fields.BirthDay, saved); err != nil {
		return false
	}
	if err := g.acc.Dispatch(fields.BirthDay); err != nil {
		g.logger.Debug("formguard: dispatch failed", "field", string(fields.BirthDay), "error", err)
	}
	return true
}

// birthMonthYear extracts month and year from a snapshot. A missing or
// unparsable year falls back to a non-leap year, keeping February at 28.
func birthMonthYear(snap Snapshot) (month, year int, ok bool) {
	m, err := strconv.Atoi(strings.TrimSpace(snap[fields.BirthMonth]))
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(strings.TrimSpace(snap[fields.BirthYear]))
	if err != nil || y <= 0 {
		y = 1900
	}
	return m, y, true
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsDegraded reports whether the most recent assessment found the form past
// the clear threshold while a valid snapshot existed.
func (g *Guard) IsDegraded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.degraded
}

// CurrentState returns the watchdog state.
func (g *Guard) CurrentState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// LastAssessment returns the most recently computed assessment.
func (g *Guard) LastAssessment() Assessment {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastA
}

// GetSnapshot returns an independent copy of the current snapshot.
func (g *Guard) GetSnapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snap.Clone()
}

// SetSnapshot replaces the snapshot wholesale, as on import. Unknown field
// keys are dropped.
func (g *Guard) SetSnapshot(data Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = make(Snapshot, len(data))
	for id, v := range data {
		if fields.Valid(id) {
			g.snap[id] = v
		}
	}
	if g.snap.Valid() {
		g.state = StateTracking
	} else {
		g.state = StateIdle
	}
}

// Clear wipes the snapshot and returns the guard to Idle.
func (g *Guard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snap = make(Snapshot)
	g.state = StateIdle
	g.degraded = false
}
