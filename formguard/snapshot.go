package formguard

import (
	"strings"

	"github.com/voralis/formpilot/fields"
)

// Snapshot maps tracked field identifiers to their last known values.
type Snapshot map[fields.ID]string

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Valid reports whether the snapshot holds at least one value that is
// non-empty after trimming whitespace. Only valid snapshots are worth
// restoring.
func (s Snapshot) Valid() bool {
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Assessment is the derived cleared-state view of the live fields. It is
// computed on every assessment tick and never stored.
type Assessment struct {
	EmptyCount int     `json:"empty_count"`
	TotalCount int     `json:"total_count"`
	ClearRatio float64 `json:"clear_ratio"`
}

// assess scans the live fields and counts empties. Fields that cannot be
// read count as empty: a vanished field is a cleared field from the
// watchdog's point of view.
func assess(acc fields.Accessor) Assessment {
	ids := fields.All()
	a := Assessment{TotalCount: len(ids)}
	for _, id := range ids {
		v, err := acc.Get(id)
		if err != nil || strings.TrimSpace(v) == "" {
			a.EmptyCount++
		}
	}
	a.ClearRatio = float64(a.EmptyCount) / float64(a.TotalCount)
	return a
}
