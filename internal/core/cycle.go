package core

import (
	"time"

	"github.com/google/uuid"
)

// CycleID uniquely identifies one agent cycle.
type CycleID string

// NewCycleID generates a cycle identifier.
func NewCycleID() CycleID {
	return CycleID(uuid.NewString())
}

// CycleOutcome classifies how a cycle ended.
type CycleOutcome string

const (
	CycleCompleted       CycleOutcome = "completed"
	CyclePartiallyFailed CycleOutcome = "partially_failed"
	CycleFailed          CycleOutcome = "failed"
)

// EditorPhase is one of the three ordered editor invocations inside a cycle.
type EditorPhase int

const (
	PhaseProduction EditorPhase = iota + 1
	PhaseRoleSpecific
	PhaseFinalCheck
)

// String returns the phase label used in logs.
func (p EditorPhase) String() string {
	switch p {
	case PhaseProduction:
		return "production"
	case PhaseRoleSpecific:
		return "role-specific"
	case PhaseFinalCheck:
		return "final-check"
	default:
		return "unknown"
	}
}

// Trailer returns the phase-specific instruction appended to the objective
// message for this editor invocation.
func (p EditorPhase) Trailer() string {
	switch p {
	case PhaseProduction:
		return "\nFocus on the Production Objective"
	case PhaseRoleSpecific:
		return "\nFocus on the Role-specific Objective"
	case PhaseFinalCheck:
		return "\n--> Any additional changes required? Then update todolist.md to reflect the changes."
	default:
		return ""
	}
}

// PhaseResult records one editor invocation.
type PhaseResult struct {
	Phase    EditorPhase
	Modified []string
	ExitCode int
	Err      error
	Duration time.Duration
}

// CycleRecord is the transient record for one agent cycle. It is owned
// exclusively by the executing cycle and consumed by logging.
type CycleRecord struct {
	ID            CycleID
	Agent         RoleName
	StartedAt     time.Time
	Phases        []PhaseResult
	CommitSummary string
	Duration      time.Duration
	Outcome       CycleOutcome
	Err           error
}

// NewCycleRecord starts a record for an agent cycle.
func NewCycleRecord(agent RoleName) *CycleRecord {
	return &CycleRecord{
		ID:        NewCycleID(),
		Agent:     agent,
		StartedAt: time.Now(),
	}
}

// ModifiedSet returns the union of per-phase modified files.
func (r *CycleRecord) ModifiedSet() []string {
	seen := make(map[string]struct{})
	var union []string
	for _, p := range r.Phases {
		for _, f := range p.Modified {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				union = append(union, f)
			}
		}
	}
	return union
}

// Objective is the per-cycle instruction artifact produced for one agent.
type Objective struct {
	Agent     RoleName
	Cycle     CycleID
	Body      string
	Summary   string
	CreatedAt time.Time
}

// ContextMap is the per-cycle list of files the agent may edit plus
// read-only references. It is created once per cycle and never mutated.
type ContextMap struct {
	Agent    RoleName
	Editable []string
	ReadOnly []string
}
