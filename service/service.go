// Package service wires the formpilot subsystems together: the form
// watchdog, the registration orchestrator, the persistence layer, and the
// notification sinks. The HTTP API and the MCP tools are both thin fronts
// over this package.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/formguard"
	"github.com/voralis/formpilot/notify"
	"github.com/voralis/formpilot/regflow"
	"github.com/voralis/formpilot/store"
)

// Service is the formpilot application core.
type Service struct {
	guard    *formguard.Guard
	orch     *regflow.Orchestrator
	store    *store.Store
	acc      fields.Accessor
	notifier notify.Notifier
	logger   *slog.Logger

	defaultProfile string
}

// Config assembles a Service from its collaborators.
type Config struct {
	Guard    *formguard.Guard
	Orch     *regflow.Orchestrator
	Store    *store.Store
	Accessor fields.Accessor

	// DefaultProfile is used when a request names no strategy.
	// Default: "standard".
	DefaultProfile string

	Notifier notify.Notifier
	Logger   *slog.Logger
}

// New assembles the service. Guard, Orch, Store and Accessor are required.
func New(cfg Config) (*Service, error) {
	if cfg.Guard == nil || cfg.Orch == nil || cfg.Store == nil || cfg.Accessor == nil {
		return nil, fmt.Errorf("service: guard, orchestrator, store and accessor are all required")
	}
	if cfg.DefaultProfile == "" {
		cfg.DefaultProfile = regflow.ProfileStandard
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		guard:          cfg.Guard,
		orch:           cfg.Orch,
		store:          cfg.Store,
		acc:            cfg.Accessor,
		notifier:       cfg.Notifier,
		logger:         cfg.Logger,
		defaultProfile: cfg.DefaultProfile,
	}, nil
}

// Run drives the watchdog loop until the context is cancelled. It loads any
// persisted strategy statistics first and saves them on the way out.
func (s *Service) Run(ctx context.Context) error {
	counters, err := s.store.LoadStats(ctx)
	if err != nil {
		return fmt.Errorf("service: load stats: %w", err)
	}
	s.orch.Stats().Restore(counters)

	s.guard.Run(ctx)

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveStats(saveCtx, s.orch.Stats().Snapshot()); err != nil {
		s.logger.Error("service: save stats on shutdown", "error", err)
	}
	return nil
}

// Register runs the named strategy over the current form contents. An empty
// profile name uses the configured default; empty data fields are filled
// with generated values before validation. The outcome, success or failure,
// is appended to the history.
func (s *Service) Register(ctx context.Context, profileName string) (*regflow.Result, error) {
	if profileName == "" {
		profileName = s.defaultProfile
	}

	data := regflow.DataFromFields(s.acc)
	if regflow.Validate(data) != nil {
		// Fill gaps rather than rejecting: the form may be half-typed.
		gen := s.orch.GenerateData()
		fillMissing(&data, gen)
	}

	res, err := s.orch.Execute(ctx, profileName, data)
	if err != nil {
		return nil, err
	}

	if _, serr := s.store.AppendResult(ctx, res); serr != nil {
		s.logger.Error("service: record result", "error", serr)
	}
	if serr := s.store.SaveStats(ctx, s.orch.Stats().Snapshot()); serr != nil {
		s.logger.Error("service: save stats", "error", serr)
	}
	return res, nil
}

func fillMissing(d *regflow.FormData, gen regflow.FormData) {
	if d.FirstName == "" {
		d.FirstName = gen.FirstName
	}
	if d.LastName == "" {
		d.LastName = gen.LastName
	}
	if d.Email == "" {
		d.Email = gen.Email
	}
	if d.Password == "" {
		d.Password = gen.Password
	}
	if d.BirthYear == "" {
		d.BirthYear = gen.BirthYear
	}
	if d.BirthMonth == "" {
		d.BirthMonth = gen.BirthMonth
	}
	if d.BirthDay == "" {
		d.BirthDay = gen.BirthDay
	}
	if d.Country == "" {
		d.Country = gen.Country
	}
}

// Restore pushes the guard's saved snapshot back into the live form and
// returns the number of fields written.
func (s *Service) Restore(ctx context.Context) int {
	return s.guard.RestoreAll(ctx)
}

// Status is a point-in-time view of the watchdog and the strategy table.
type Status struct {
	State        string                      `json:"state"`
	Degraded     bool                        `json:"degraded"`
	Assessment   formguard.Assessment        `json:"assessment"`
	HistoryCount int                         `json:"history_count"`
	Stats        map[string]regflow.Counters `json:"stats"`
}

// Status reports the current watchdog state and strategy statistics.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	n, err := s.store.HistoryCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: history count: %w", err)
	}
	return &Status{
		State:        s.guard.CurrentState().String(),
		Degraded:     s.guard.IsDegraded(),
		Assessment:   s.guard.LastAssessment(),
		HistoryCount: n,
		Stats:        s.orch.Stats().Snapshot(),
	}, nil
}

// History returns the most recent registration records.
func (s *Service) History(ctx context.Context, limit int) ([]store.Record, error) {
	return s.store.History(ctx, limit)
}

// Export captures the guard's current snapshot as a versioned backup
// document and persists it.
func (s *Service) Export(ctx context.Context) (*store.Backup, error) {
	snap := s.guard.GetSnapshot()
	if err := s.store.SaveBackup(ctx, snap); err != nil {
		return nil, err
	}
	return s.store.LoadBackup(ctx)
}

// Import replaces the guard's snapshot with the backup's form data and
// pushes it into the live form. Returns the number of restored fields.
func (s *Service) Import(ctx context.Context, b *store.Backup) (int, error) {
	snap := b.Snapshot()
	if !snap.Valid() {
		return 0, fmt.Errorf("service: backup holds no restorable data")
	}
	s.guard.SetSnapshot(snap)
	n := s.guard.RestoreAll(ctx)
	s.notifier.Notify(ctx, notify.Info, "snapshot imported",
		fmt.Sprintf("%d fields restored", n))
	return n, nil
}

// Recommend picks a strategy for the given situational context.
func (s *Service) Recommend(rc regflow.RecommendContext) string {
	return s.orch.Recommend(rc)
}

// GenerateData draws a complete random registration identity.
func (s *Service) GenerateData() regflow.FormData {
	return s.orch.GenerateData()
}
