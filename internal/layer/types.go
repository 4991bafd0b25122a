// Package layer defines the uniform contract every validation layer
// implements: a pure function from a ValidationContext to a LayerResult.
package layer

import (
	"context"

	"github.com/your-org/sow/internal/schema"
)

// Name is one of the four ordered layers. Order is a design invariant:
// a later layer may presume the invariants of earlier ones.
type Name string

const (
	NameSchema       Name = "schema"
	NameSemantic     Name = "semantic"
	NameReferential  Name = "referential"
	NameStateMachine Name = "state-machine"
)

// Error is a single failing check. Errors fail a layer; warnings, the
// identically-shaped Warning, do not.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Warning has the same shape as Error but never changes a result's
// validity.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Details any    `json:"details,omitempty"`
}

// TaskStatuses maps a task id to its status as of a prior run, carried
// in a PreviousState snapshot.
type TaskStatuses map[string]string

// PreviousState is the state-machine layer's snapshot of status as of
// its last run against a given artifact. Callers persisting validation
// across time re-supply it on the next run via ValidationContext so
// transition validity can be judged without ambient process state.
type PreviousState struct {
	PhaseStatus   string       `json:"phase_status,omitempty"`
	TaskStatuses  TaskStatuses `json:"task_statuses,omitempty"`
}

// Metadata carries a layer's auxiliary result data. ExitCode and
// FileType are set by every layer; PreviousState is set only by the
// state-machine layer.
type Metadata struct {
	ExitCode      int            `json:"exit_code"`
	DurationMS    int64          `json:"duration_ms"`
	FileType      schema.FileType `json:"file_type"`
	WarningCount  int            `json:"warning_count"`
	PreviousState *PreviousState `json:"previous_state,omitempty"`
}

// Result is a single layer's outcome. Its fields are unexported so that
// SuccessResult and FailureResult are the only construction sites,
// mirroring the teacher's TransitionConfig accessor pattern.
type Result struct {
	layer    Name
	valid    bool
	errors   []Error
	warnings []Warning
	metadata Metadata
}

func (r Result) Layer() Name          { return r.layer }
func (r Result) Valid() bool          { return r.valid }
func (r Result) Errors() []Error      { return r.errors }
func (r Result) Warnings() []Warning  { return r.warnings }
func (r Result) Metadata() Metadata   { return r.metadata }

// SuccessResult builds a passing Result. metadata.ExitCode is normally
// 0; the runner's file-read and parse failures are built through
// FailureResult (structural.FileReadError/ParseError), never through
// this constructor, so no zero-value special casing is needed here.
func SuccessResult(l Name, warnings []Warning, metadata Metadata) Result {
	metadata.WarningCount = len(warnings)
	return Result{
		layer:    l,
		valid:    true,
		warnings: warnings,
		metadata: metadata,
	}
}

// FailureResult builds a failing Result. errors must be non-empty;
// a failing layer with no errors is a programming mistake in the
// caller, not a state this package will silently accept.
func FailureResult(l Name, errors []Error, warnings []Warning, metadata Metadata) Result {
	if len(errors) == 0 {
		panic("layer: FailureResult called with no errors")
	}
	metadata.WarningCount = len(warnings)
	return Result{
		layer:    l,
		valid:    false,
		errors:   errors,
		warnings: warnings,
		metadata: metadata,
	}
}

// Context is the input every layer function receives. PreviousResults
// is the ordered list of prior Results within the current pipeline
// run plus any caller-supplied history; it is how layer N observes
// layer (<N) and carries PreviousState forward from a prior run.
type Context struct {
	ProjectPath      string
	FileType         schema.FileType
	FilePath         string
	Data             any
	PreviousResults  []Result
}

// PriorPhaseStatus scans PreviousResults for the most recent state-machine
// PreviousState.PhaseStatus, or "" if none is present.
func (c Context) PriorPhaseStatus() string {
	for i := len(c.PreviousResults) - 1; i >= 0; i-- {
		if ps := c.PreviousResults[i].Metadata().PreviousState; ps != nil && ps.PhaseStatus != "" {
			return ps.PhaseStatus
		}
	}
	return ""
}

// PriorTaskStatuses scans PreviousResults for the most recent
// state-machine PreviousState.TaskStatuses, or nil if none is present.
func (c Context) PriorTaskStatuses() TaskStatuses {
	for i := len(c.PreviousResults) - 1; i >= 0; i-- {
		if ps := c.PreviousResults[i].Metadata().PreviousState; ps != nil && ps.TaskStatuses != nil {
			return ps.TaskStatuses
		}
	}
	return nil
}

// Func is the signature every layer implements.
type Func func(ctx context.Context, vc *Context) Result
