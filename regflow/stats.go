package regflow

import "sync"

// Counters holds per-profile execution statistics.
type Counters struct {
	Attempts  int `json:"attempts"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// SuccessRate is the empirical success ratio over recorded attempts.
// Zero attempts yields zero.
func (c Counters) SuccessRate() float64 {
	if c.Attempts == 0 {
		return 0
	}
	return float64(c.Successes) / float64(c.Attempts)
}

// Stats accumulates per-profile counters for the session. Mutated only by
// the orchestrator around each execution; reset only by explicit operator
// action.
type Stats struct {
	mu sync.Mutex
	by map[string]*Counters
}

// NewStats creates an empty stats table.
func NewStats() *Stats {
	return &Stats{by: make(map[string]*Counters)}
}

func (s *Stats) counters(profile string) *Counters {
	c, ok := s.by[profile]
	if !ok {
		c = &Counters{}
		s.by[profile] = c
	}
	return c
}

// Attempt records the start of one execution under a profile.
func (s *Stats) Attempt(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(profile).Attempts++
}

// Success records a completed pipeline run.
func (s *Stats) Success(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(profile).Successes++
}

// Failure records a terminal pipeline failure, after any internal retries.
func (s *Stats) Failure(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(profile).Failures++
}

// Get returns the counters recorded for a profile.
func (s *Stats) Get(profile string) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.by[profile]; ok {
		return *c
	}
	return Counters{}
}

// Snapshot returns a copy of all recorded counters.
func (s *Stats) Snapshot() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.by))
	for name, c := range s.by {
		out[name] = *c
	}
	return out
}

// Restore replaces the table wholesale, as when loading a persisted
// snapshot at startup.
func (s *Stats) Restore(counters map[string]Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.by = make(map[string]*Counters, len(counters))
	for name, c := range counters {
		cc := c
		s.by[name] = &cc
	}
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.by = make(map[string]*Counters)
}
