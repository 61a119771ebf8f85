// Package orchestrator drives the one-shot and daemon run loops: list
// OOB interfaces, derive the switch set, collect FDBs, correlate, act
// on eligible decisions by creating cables, and record a run summary.
package orchestrator

import (
	"fmt"
	"time"
)

// RunSummary tallies every decision bucket for a single run, mirroring
// the original implementation's RunSummary dataclass (total_ipmi,
// created, exists, skipped, ambiguous, not_found, pending, errors,
// mismatch).
type RunSummary struct {
	RunID     string
	RunAt     time.Time
	TotalMACs int

	Created   int
	Exists    int
	Skipped   int
	Ambiguous int
	NotFound  int
	Pending   int
	Errors    int
	Mismatch  int
}

// String renders the space-separated one-line summary the CLI prints
// after a one-shot run.
func (s RunSummary) String() string {
	return fmt.Sprintf(
		"total=%d created=%d exists=%d skipped=%d ambiguous=%d not_found=%d pending=%d errors=%d mismatch=%d",
		s.TotalMACs, s.Created, s.Exists, s.Skipped, s.Ambiguous, s.NotFound, s.Pending, s.Errors, s.Mismatch,
	)
}
