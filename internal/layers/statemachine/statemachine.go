// Package statemachine enforces allowed status transitions over time,
// reading prior-run snapshots carried in pipeline metadata and flagging
// inconsistent state combinations.
package statemachine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/schema"
)

// phaseTransitions is the closed transition table for a state
// document's current_position.status, including the literal
// "Ready to start" value this layer treats as authoritative per its
// own table even though the semantic layer's enum excludes it.
var phaseTransitions = map[string][]string{
	string(schema.PhasePlanning):     {string(schema.PhaseExecuting)},
	string(schema.PhaseExecuting):    {string(schema.PhaseVerifying)},
	string(schema.PhaseVerifying):    {string(schema.PhaseComplete), string(schema.PhaseExecuting)},
	string(schema.PhaseComplete):     {},
	string(schema.PhaseBlocked):      {string(schema.PhasePlanning), string(schema.PhaseExecuting)},
	string(schema.PhaseReadyToStart): {string(schema.PhasePlanning), string(schema.PhaseExecuting)},
}

// taskTransitions is the closed transition table for a task's status.
var taskTransitions = map[schema.TaskStatus][]schema.TaskStatus{
	schema.TaskPending:    {schema.TaskInProgress, schema.TaskBlocked},
	schema.TaskInProgress: {schema.TaskCompleted, schema.TaskBlocked},
	schema.TaskBlocked:    {schema.TaskPending, schema.TaskInProgress},
	schema.TaskCompleted:  {},
}

func isTerminalPhase(status string) bool {
	next, ok := phaseTransitions[status]
	return ok && len(next) == 0
}

func isTerminalTask(status schema.TaskStatus) bool {
	next, ok := taskTransitions[status]
	return ok && len(next) == 0
}

// Validate dispatches on vc.FileType. Plan documents have no state
// machine checks per the data model; they pass through unconditionally.
func Validate(_ context.Context, vc *layer.Context) layer.Result {
	switch vc.FileType {
	case schema.FileTypeState:
		return validateState(vc)
	case schema.FileTypeTaskRegistry:
		return validateTaskRegistry(vc)
	case schema.FileTypePlan:
		meta := layer.Metadata{FileType: vc.FileType, ExitCode: int(exitcode.Success)}
		return layer.SuccessResult(layer.NameStateMachine, nil, meta)
	default:
		return layer.FailureResult(layer.NameStateMachine, []layer.Error{{
			Code:    "STATE_MACHINE_INTERNAL_ERROR",
			Message: fmt.Sprintf("unsupported file type %q", vc.FileType),
		}}, nil, layer.Metadata{ExitCode: int(exitcode.ValidationStateMachine), FileType: vc.FileType})
	}
}

func decodeInto(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func validateState(vc *layer.Context) layer.Result {
	var doc schema.StateDocument
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &doc); err != nil {
		meta.ExitCode = int(exitcode.ValidationStateMachine)
		return layer.FailureResult(layer.NameStateMachine, []layer.Error{{
			Code: "STATE_MACHINE_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	status := doc.CurrentPosition.Status
	_, known := phaseTransitions[status]

	var errs []layer.Error
	var warns []layer.Warning

	if !known {
		errs = append(errs, layer.Error{
			Code: "STATE_MACHINE_UNKNOWN_STATUS", Path: "/current_position/status",
			Message: fmt.Sprintf("status %q is not a recognised phase status", status),
		})
	} else if isTerminalPhase(status) {
		warns = append(warns, layer.Warning{
			Code: "STATE_MACHINE_TERMINAL_STATE", Path: "/current_position/status",
			Message: fmt.Sprintf("status %q is terminal", status),
		})
	}

	from := doc.PreviousStatus
	if from == "" {
		from = vc.PriorPhaseStatus()
	}
	if known && from != "" && from != status {
		if fromAllowed, fromKnown := phaseTransitions[from]; fromKnown {
			legal := false
			for _, s := range fromAllowed {
				if s == status {
					legal = true
					break
				}
			}
			if !legal {
				errs = append(errs, layer.Error{
					Code: "STATE_MACHINE_INVALID_PHASE_TRANSITION", Path: "/current_position/status",
					Message: fmt.Sprintf("cannot transition from %q to %q", from, status),
					Details: map[string]any{"allowedTransitions": fromAllowed},
				})
			}
		}
	}

	meta.PreviousState = &layer.PreviousState{PhaseStatus: status}
	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationStateMachine)
		return layer.FailureResult(layer.NameStateMachine, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameStateMachine, warns, meta)
}

func validateTaskRegistry(vc *layer.Context) layer.Result {
	var reg schema.TaskRegistry
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &reg); err != nil {
		meta.ExitCode = int(exitcode.ValidationStateMachine)
		return layer.FailureResult(layer.NameStateMachine, []layer.Error{{
			Code: "STATE_MACHINE_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	statusByID := make(map[string]schema.TaskStatus, len(reg.Tasks))
	for _, tk := range reg.Tasks {
		statusByID[tk.ID] = tk.Status
	}

	prior := vc.PriorTaskStatuses()

	var errs []layer.Error
	var warns []layer.Warning
	snapshot := make(layer.TaskStatuses, len(reg.Tasks))

	for i, tk := range reg.Tasks {
		base := fmt.Sprintf("/tasks/%d", i)
		snapshot[tk.ID] = string(tk.Status)

		if _, known := taskTransitions[tk.Status]; !known {
			errs = append(errs, layer.Error{
				Code: "STATE_MACHINE_UNKNOWN_STATUS", Path: base + "/status",
				Message: fmt.Sprintf("status %q is not a recognised task status", tk.Status),
			})
			continue
		}

		depsIncomplete := false
		for _, dep := range tk.Dependencies {
			if statusByID[dep] != schema.TaskCompleted {
				depsIncomplete = true
				break
			}
		}

		switch tk.Status {
		case schema.TaskCompleted:
			if depsIncomplete {
				errs = append(errs, layer.Error{
					Code: "STATE_MACHINE_COMPLETED_WITH_PENDING_DEPS", Path: base + "/status",
					Message: fmt.Sprintf("task %s is completed but has non-completed dependencies", tk.ID),
				})
			}
		case schema.TaskInProgress:
			if depsIncomplete {
				warns = append(warns, layer.Warning{
					Code: "STATE_MACHINE_SHOULD_BE_BLOCKED", Path: base + "/status",
					Message: fmt.Sprintf("task %s is in_progress with non-completed dependencies", tk.ID),
				})
			}
		case schema.TaskBlocked:
			if tk.BlockedBy == "" {
				warns = append(warns, layer.Warning{
					Code: "STATE_MACHINE_BLOCKED_NO_REASON", Path: base + "/blocked_by",
					Message: fmt.Sprintf("task %s is blocked without blocked_by", tk.ID),
				})
			}
		}

		if prior != nil {
			if prevStatus, ok := prior[tk.ID]; ok && prevStatus != string(tk.Status) {
				if isTerminalTask(schema.TaskStatus(prevStatus)) {
					warns = append(warns, layer.Warning{
						Code: "STATE_MACHINE_TERMINAL_STATE_MODIFIED", Path: base + "/status",
						Message: fmt.Sprintf("task %s changed out of terminal status %q", tk.ID, prevStatus),
					})
				}
				if errDetail := validateTaskTransition(schema.TaskStatus(prevStatus), tk.Status); errDetail != nil {
					errDetail.Path = base + "/status"
					errs = append(errs, *errDetail)
				}
			}
		}
	}

	meta.PreviousState = &layer.PreviousState{TaskStatuses: snapshot}
	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationStateMachine)
		return layer.FailureResult(layer.NameStateMachine, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameStateMachine, warns, meta)
}

func validateTaskTransition(from, to schema.TaskStatus) *layer.Error {
	if from == to {
		return nil
	}
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &layer.Error{
		Code:    "STATE_MACHINE_INVALID_TASK_TRANSITION",
		Message: fmt.Sprintf("task cannot transition from %q to %q", from, to),
		Details: map[string]any{"allowedTransitions": taskTransitions[from]},
	}
}

// IsTerminalPhase reports whether status has no outgoing transitions.
func IsTerminalPhase(status string) bool { return isTerminalPhase(status) }

// IsTerminalTask reports whether status has no outgoing transitions.
func IsTerminalTask(status schema.TaskStatus) bool { return isTerminalTask(status) }

// NextPhaseStates returns the allowed next statuses for status.
func NextPhaseStates(status string) []string { return phaseTransitions[status] }

// NextTaskStates returns the allowed next statuses for status.
func NextTaskStates(status schema.TaskStatus) []schema.TaskStatus { return taskTransitions[status] }
