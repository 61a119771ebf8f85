package statestore

import "time"

// MACStatus is a closed tagged variant for the last decision recorded
// against a MAC. It is shared with internal/correlate, which is the
// only other package allowed to construct Decisions carrying one of
// these values.
type MACStatus string

const (
	StatusCreated       MACStatus = "CREATED"
	StatusExists        MACStatus = "EXISTS"
	StatusSkipNonAccess MACStatus = "SKIP_NON_ACCESS"
	StatusAmbiguous     MACStatus = "AMBIGUOUS"
	StatusNotFound      MACStatus = "NOT_FOUND"
	StatusPending       MACStatus = "PENDING"
	StatusError         MACStatus = "ERROR"
	StatusMismatch      MACStatus = "MISMATCH"
)

// MACState is the persisted row for a single canonical MAC.
type MACState struct {
	MAC            string
	Switch         string
	Port           string
	VLAN           *int
	SeenAt         time.Time
	StabilityCount int
	LastStatus     MACStatus
	LastActionAt   time.Time
	CableCreated   bool
	CableID        string
}

// RunSummary is one row of run_history: counters for a single
// orchestrator pass.
type RunSummary struct {
	RunID        string
	RunAt        time.Time
	TotalMACs    int
	CntCreated   int
	CntExists    int
	CntSkipped   int
	CntAmbiguous int
	CntNotFound  int
	CntErrors    int
}
