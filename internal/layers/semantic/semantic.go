// Package semantic implements the per-field value-correctness layer:
// ranges, formats, required companion fields, and chronology.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/schema"
)

var planDepPattern = regexp.MustCompile(`^\d{2}-\d{2}$`)

var stateStatuses = map[string]bool{
	string(schema.PhasePlanning):  true,
	string(schema.PhaseExecuting): true,
	string(schema.PhaseVerifying): true,
	string(schema.PhaseComplete):  true,
	string(schema.PhaseBlocked):   true,
}

var taskStatuses = map[string]bool{
	string(schema.TaskPending):     true,
	string(schema.TaskInProgress):  true,
	string(schema.TaskBlocked):     true,
	string(schema.TaskCompleted):   true,
}

var priorities = map[string]bool{
	string(schema.PriorityCritical): true,
	string(schema.PriorityHigh):     true,
	string(schema.PriorityMedium):   true,
	string(schema.PriorityLow):      true,
}

// Validate dispatches on vc.FileType to the per-document rule set.
func Validate(_ context.Context, vc *layer.Context) layer.Result {
	switch vc.FileType {
	case schema.FileTypeState:
		return validateState(vc)
	case schema.FileTypePlan:
		return validatePlan(vc)
	case schema.FileTypeTaskRegistry:
		return validateTaskRegistry(vc)
	default:
		return layer.FailureResult(layer.NameSemantic, []layer.Error{{
			Code:    "SEMANTIC_INTERNAL_ERROR",
			Message: fmt.Sprintf("unsupported file type %q", vc.FileType),
		}}, nil, layer.Metadata{ExitCode: int(exitcode.ValidationSemantic), FileType: vc.FileType})
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
		meta.ExitCode = int(exitcode.ValidationSemantic)
		return layer.FailureResult(layer.NameSemantic, []layer.Error{{
			Code:    "SEMANTIC_INTERNAL_ERROR",
			Message: err.Error(),
		}}, nil, meta)
	}

	var errs []layer.Error
	var warns []layer.Warning

	if doc.CurrentPosition.Phase < 0 {
		errs = append(errs, layer.Error{
			Code: "SEMANTIC_INVALID_RANGE", Path: "/current_position/phase",
			Message: "phase must be a non-negative integer",
		})
	}
	if !stateStatuses[doc.CurrentPosition.Status] {
		errs = append(errs, layer.Error{
			Code: "SEMANTIC_INVALID_ENUM", Path: "/current_position/status",
			Message: fmt.Sprintf("status %q is not a recognised state status", doc.CurrentPosition.Status),
		})
	}

	var prevDate time.Time
	for i, d := range doc.Decisions {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			errs = append(errs, layer.Error{
				Code: "SEMANTIC_INVALID_DATE_FORMAT",
				Path: fmt.Sprintf("/decisions/%d/date", i),
				Message: fmt.Sprintf("decision date %q does not match YYYY-MM-DD", d.Date),
			})
			continue
		}
		if i > 0 && t.Before(prevDate) {
			warns = append(warns, layer.Warning{
				Code: "SEMANTIC_DATE_OUT_OF_ORDER", Path: fmt.Sprintf("/decisions/%d/date", i),
				Message: "decision dates are not chronologically non-decreasing",
			})
		}
		prevDate = t
	}

	var prevTS time.Time
	for i, e := range doc.SessionLog {
		t, err := time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			errs = append(errs, layer.Error{
				Code: "SEMANTIC_INVALID_DATE_FORMAT",
				Path: fmt.Sprintf("/session_log/%d/timestamp", i),
				Message: fmt.Sprintf("session log timestamp %q does not parse as ISO 8601", e.Timestamp),
			})
			continue
		}
		if i > 0 && t.Before(prevTS) {
			warns = append(warns, layer.Warning{
				Code: "SEMANTIC_TIMESTAMP_OUT_OF_ORDER", Path: fmt.Sprintf("/session_log/%d/timestamp", i),
				Message: "session log timestamps are not chronologically non-decreasing",
			})
		}
		prevTS = t
	}

	if doc.CurrentPosition.Status == string(schema.PhaseComplete) && len(doc.SessionLog) == 0 {
		warns = append(warns, layer.Warning{
			Code:    "SEMANTIC_COMPLETE_WITHOUT_LOG",
			Message: "status is complete but session_log is empty or absent",
		})
	}

	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationSemantic)
		return layer.FailureResult(layer.NameSemantic, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameSemantic, warns, meta)
}

func validatePlan(vc *layer.Context) layer.Result {
	var p schema.Plan
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &p); err != nil {
		meta.ExitCode = int(exitcode.ValidationSemantic)
		return layer.FailureResult(layer.NameSemantic, []layer.Error{{
			Code: "SEMANTIC_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	var errs []layer.Error
	var warns []layer.Warning

	if p.Wave < 1 {
		errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_RANGE", Path: "/wave", Message: "wave must be a positive integer"})
	}
	if p.Plan < 1 {
		errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_RANGE", Path: "/plan", Message: "plan must be a positive integer"})
	}
	if p.Priority != "" && !priorities[string(p.Priority)] {
		errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_ENUM", Path: "/priority", Message: fmt.Sprintf("priority %q is not recognised", p.Priority)})
	}
	for i, d := range p.DependsOn {
		if !planDepPattern.MatchString(d) {
			errs = append(errs, layer.Error{
				Code: "SEMANTIC_INVALID_PATTERN", Path: fmt.Sprintf("/depends_on/%d", i),
				Message: fmt.Sprintf("depends_on entry %q does not match NN-NN", d),
			})
		}
	}
	if p.Autonomous != nil && !*p.Autonomous {
		warns = append(warns, layer.Warning{Code: "SEMANTIC_NON_AUTONOMOUS_PLAN", Message: "plan is not autonomous; checkpoints are expected"})
	}

	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationSemantic)
		return layer.FailureResult(layer.NameSemantic, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameSemantic, warns, meta)
}

func validateTaskRegistry(vc *layer.Context) layer.Result {
	var reg schema.TaskRegistry
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &reg); err != nil {
		meta.ExitCode = int(exitcode.ValidationSemantic)
		return layer.FailureResult(layer.NameSemantic, []layer.Error{{
			Code: "SEMANTIC_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	var errs []layer.Error
	var warns []layer.Warning
	var phases []int

	for i, tk := range reg.Tasks {
		base := fmt.Sprintf("/tasks/%d", i)

		if tk.Leverage != nil && (*tk.Leverage < 0 || *tk.Leverage > 10) {
			errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_RANGE", Path: base + "/leverage", Message: "leverage must be in [0,10]"})
		}
		if tk.Phase < 1 {
			errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_RANGE", Path: base + "/phase", Message: "phase must be a positive integer"})
		} else {
			phases = append(phases, tk.Phase)
		}
		if !taskStatuses[string(tk.Status)] {
			errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_ENUM", Path: base + "/status", Message: fmt.Sprintf("status %q is not recognised", tk.Status)})
		}
		if tk.Status == schema.TaskCompleted && tk.Completed == "" {
			errs = append(errs, layer.Error{Code: "SEMANTIC_MISSING_COMPLETED", Path: base + "/completed", Message: "completed is required when status is completed"})
		}
		if tk.Status == schema.TaskBlocked && tk.BlockedBy == "" {
			errs = append(errs, layer.Error{Code: "SEMANTIC_MISSING_BLOCKED_BY", Path: base + "/blocked_by", Message: "blocked_by is required when status is blocked"})
		}

		created, createdErr := time.Parse(time.RFC3339, tk.Created)
		if createdErr != nil {
			errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_DATE_FORMAT", Path: base + "/created", Message: fmt.Sprintf("created %q is not ISO 8601", tk.Created)})
		}
		if tk.Completed != "" {
			completed, err := time.Parse(time.RFC3339, tk.Completed)
			if err != nil {
				errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_DATE_FORMAT", Path: base + "/completed", Message: fmt.Sprintf("completed %q is not ISO 8601", tk.Completed)})
			} else if createdErr == nil && completed.Before(created) {
				errs = append(errs, layer.Error{Code: "SEMANTIC_INVALID_DATE_ORDER", Path: base + "/completed", Message: "completed must not be before created"})
			}
		}
	}

	if len(phases) > 1 {
		sort.Ints(phases)
		min, max := phases[0], phases[len(phases)-1]
		if max-min > 1 {
			for i := 1; i < len(phases); i++ {
				if phases[i]-phases[i-1] > 1 {
					warns = append(warns, layer.Warning{
						Code:    "SEMANTIC_PHASE_GAP",
						Message: fmt.Sprintf("phase numbers jump from %d to %d", phases[i-1], phases[i]),
						Details: map[string]int{"min": min, "max": max},
					})
					break
				}
			}
		}
	}

	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationSemantic)
		return layer.FailureResult(layer.NameSemantic, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameSemantic, warns, meta)
}

// taskTransitions is the closed transition table for Task.Status.
var taskTransitions = map[schema.TaskStatus][]schema.TaskStatus{
	schema.TaskPending:     {schema.TaskInProgress, schema.TaskBlocked},
	schema.TaskInProgress:  {schema.TaskCompleted, schema.TaskBlocked},
	schema.TaskBlocked:     {schema.TaskPending, schema.TaskInProgress},
	schema.TaskCompleted:   {},
}

// ValidateStatusTransition reports whether a task may move from `from`
// to `to`. A same-status transition is always valid (a no-op).
func ValidateStatusTransition(from, to schema.TaskStatus) *layer.Error {
	if from == to {
		return nil
	}
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &layer.Error{
		Code:    "SEMANTIC_INVALID_TASK_TRANSITION",
		Message: fmt.Sprintf("task cannot transition from %q to %q", from, to),
		Details: map[string]any{"allowedTransitions": taskTransitions[from]},
	}
}
