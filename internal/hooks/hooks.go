// Package hooks binds the validator to caller workflows: mutation
// guards, a task-transition guard, checkpoint create/verify, and a
// wrapper that performs pre-validate -> write -> post-validate
// atomically around a mutation function.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/your-org/sow/internal/audit"
	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/layers/semantic"
	"github.com/your-org/sow/internal/pipeline"
	"github.com/your-org/sow/internal/schema"
)

// HookValidationResult is the uniform shape every hook returns.
type HookValidationResult struct {
	Valid    bool             `json:"valid"`
	ExitCode exitcode.Code    `json:"exit_code"`
	Errors   []layer.Error    `json:"errors,omitempty"`
	Warnings []layer.Warning  `json:"warnings,omitempty"`
	Details  map[string]any   `json:"details,omitempty"`
}

// HookError is the one exception-like surface the validator exposes,
// raised only when Options.ThrowOnError is set and validation fails.
type HookError struct {
	ExitCode exitcode.Code
	Errors   []layer.Error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("validation failed with exit code %d (%d errors)", e.ExitCode, len(e.Errors))
}

// Options configures hook behavior.
type Options struct {
	StopOnFirstError bool
	ThrowOnError     bool
	Audit            *audit.Log
}

// DefaultOptions is the hooks package's default: collect every error
// rather than stopping at the first, per the spec's own recommendation
// for this layer (the low-level pipeline.DefaultOptions keeps true).
func DefaultOptions() Options {
	return Options{StopOnFirstError: false}
}

func (o Options) pipelineOptions() pipeline.Options {
	return pipeline.Options{StopOnFirstError: o.StopOnFirstError}
}

func toResult(r pipeline.Result) HookValidationResult {
	var errs []layer.Error
	var warns []layer.Warning
	for _, lr := range r.LayerResults {
		errs = append(errs, lr.Errors()...)
		warns = append(warns, lr.Warnings()...)
	}
	return HookValidationResult{Valid: r.Valid, ExitCode: r.ExitCode, Errors: errs, Warnings: warns}
}

func maybeThrow(opts Options, r HookValidationResult) error {
	if opts.ThrowOnError && !r.Valid {
		return &HookError{ExitCode: r.ExitCode, Errors: r.Errors}
	}
	return nil
}

func recordValidation(opts Options, filePath string, r HookValidationResult) {
	if opts.Audit == nil {
		return
	}
	_ = opts.Audit.Validation(filePath, r.Valid, int(r.ExitCode), len(r.Errors))
}

// BeforeMutation validates proposed data before it is written.
func BeforeMutation(ctx context.Context, projectPath, filePath string, newData any, opts Options) (HookValidationResult, error) {
	ft := pipeline.DetectFileType(filePath)
	if ft == schema.FileTypeUnknown {
		r := HookValidationResult{ExitCode: exitcode.InvalidArguments, Errors: []layer.Error{{
			Code: "HOOKS_UNKNOWN_FILE_TYPE", Message: fmt.Sprintf("could not determine file type for %q", filePath),
		}}}
		return r, maybeThrow(opts, r)
	}

	vc := layer.Context{ProjectPath: projectPath, FileType: ft, FilePath: filePath, Data: newData}
	pr := pipeline.NewRunner().RunValidation(ctx, vc, opts.pipelineOptions())
	r := toResult(pr)
	recordValidation(opts, filePath, r)
	return r, maybeThrow(opts, r)
}

// AfterMutation validates the file on disk after a write.
func AfterMutation(ctx context.Context, projectPath, filePath string, opts Options) (HookValidationResult, error) {
	fr := pipeline.NewRunner().RunValidationOnFile(ctx, projectPath, filePath, schema.FileTypeUnknown, opts.pipelineOptions())
	r := toResult(fr.Result)
	recordValidation(opts, filePath, r)
	return r, maybeThrow(opts, r)
}

// ValidateProjectHook runs whole-project validation with aggregate
// error collection and an optional throw.
func ValidateProjectHook(ctx context.Context, projectPath string, opts Options) (HookValidationResult, error) {
	pr := pipeline.NewRunner().RunProjectValidation(ctx, projectPath, opts.pipelineOptions())
	var errs []layer.Error
	var warns []layer.Warning
	for _, fr := range pr.Files {
		for _, lr := range fr.Result.LayerResults {
			errs = append(errs, lr.Errors()...)
			warns = append(warns, lr.Warnings()...)
		}
	}
	r := HookValidationResult{Valid: pr.Valid, ExitCode: pr.ExitCode, Errors: errs, Warnings: warns,
		Details: map[string]any{"files_validated": pr.FilesValidated}}
	return r, maybeThrow(opts, r)
}

// ValidateTaskStateChange performs a pure transition check via the
// semantic transition table, plus an audit state_changed entry.
func ValidateTaskStateChange(taskID string, from, to schema.TaskStatus, opts Options) (HookValidationResult, error) {
	r := HookValidationResult{Valid: true, ExitCode: exitcode.Success}
	if e := semantic.ValidateStatusTransition(from, to); e != nil {
		r.Valid = false
		r.ExitCode = exitcode.ValidationSemantic
		r.Errors = []layer.Error{*e}
	}
	if opts.Audit != nil {
		_ = opts.Audit.StateChange(taskID, string(from), string(to))
	}
	return r, maybeThrow(opts, r)
}

// Command is the shape with_validation wraps: a caller-supplied unit
// of work that returns an error.
type Command func(ctx context.Context) error

// WithValidation runs command, then post-validates the whole project.
func WithValidation(ctx context.Context, projectPath string, command Command, opts Options) (HookValidationResult, error) {
	if err := command(ctx); err != nil {
		return HookValidationResult{}, err
	}
	return ValidateProjectHook(ctx, projectPath, opts)
}

// MutationFunc produces the new document contents for with_mutation_validation.
type MutationFunc func(ctx context.Context) (any, error)

// WithMutationValidation pre-validates mutationFn's return value; on
// success writes it; then post-validates from disk. When ThrowOnError
// is set, an invalid pre-validation result aborts before writing and an
// invalid post-validation result (after the write) is returned as a
// HookError; otherwise the data is written regardless and both results
// are produced for the caller to inspect.
func WithMutationValidation(ctx context.Context, projectPath, filePath string, mutationFn MutationFunc, opts Options) (before, after HookValidationResult, err error) {
	data, err := mutationFn(ctx)
	if err != nil {
		return HookValidationResult{}, HookValidationResult{}, err
	}

	before, err = BeforeMutation(ctx, projectPath, filePath, data, opts)
	if err != nil {
		return before, HookValidationResult{}, err
	}
	if opts.ThrowOnError && !before.Valid {
		return before, HookValidationResult{}, &HookError{ExitCode: before.ExitCode, Errors: before.Errors}
	}

	raw, marshalErr := json.MarshalIndent(data, "", "  ")
	if marshalErr != nil {
		return before, HookValidationResult{}, fmt.Errorf("hooks: marshal mutation result: %w", marshalErr)
	}
	if writeErr := os.WriteFile(filePath, raw, 0o644); writeErr != nil {
		return before, HookValidationResult{}, fmt.Errorf("hooks: write %s: %w", filePath, writeErr)
	}

	after, err = AfterMutation(ctx, projectPath, filePath, opts)
	return before, after, err
}

// ValidateFileExists checks filePath exists, returning exit 11 if
// absent; otherwise delegates to AfterMutation.
func ValidateFileExists(ctx context.Context, projectPath, filePath string, opts Options) (HookValidationResult, error) {
	if _, err := os.Stat(filePath); err != nil {
		r := HookValidationResult{ExitCode: exitcode.ResourceNotFound, Errors: []layer.Error{{
			Code: "HOOKS_FILE_NOT_FOUND", Message: fmt.Sprintf("%s does not exist", filePath),
		}}}
		return r, maybeThrow(opts, r)
	}
	return AfterMutation(ctx, projectPath, filePath, opts)
}

// Checkpoint is the handle returned by CreateValidationCheckpoint.
type Checkpoint struct {
	Timestamp     time.Time
	InitialResult HookValidationResult

	projectPath string
	opts        Options
}

// CheckpointVerification is the outcome of Checkpoint.Verify.
type CheckpointVerification struct {
	Valid          bool
	Changed        bool
	CurrentResult  HookValidationResult
}

// CreateValidationCheckpoint captures the project's current validation
// state. Verify() later re-runs project validation and reports whether
// anything changed.
func CreateValidationCheckpoint(ctx context.Context, projectPath string, opts Options) (*Checkpoint, error) {
	r, err := ValidateProjectHook(ctx, projectPath, opts)
	if err != nil {
		return nil, err
	}
	if opts.Audit != nil {
		_ = opts.Audit.Checkpoint("checkpoint created", map[string]any{
			"valid": r.Valid, "exit_code": int(r.ExitCode),
		})
	}
	return &Checkpoint{Timestamp: time.Now().UTC(), InitialResult: r, projectPath: projectPath, opts: opts}, nil
}

// Verify re-runs project validation and reports whether validity,
// error count, warning count, or files-validated differ from the
// checkpoint's initial result.
func (c *Checkpoint) Verify(ctx context.Context) (CheckpointVerification, error) {
	current, err := ValidateProjectHook(ctx, c.projectPath, c.opts)
	if err != nil {
		return CheckpointVerification{}, err
	}

	changed := current.Valid != c.InitialResult.Valid ||
		len(current.Errors) != len(c.InitialResult.Errors) ||
		len(current.Warnings) != len(c.InitialResult.Warnings)
	if !changed {
		fv1, _ := c.InitialResult.Details["files_validated"].(int)
		fv2, _ := current.Details["files_validated"].(int)
		changed = fv1 != fv2
	}

	return CheckpointVerification{Valid: current.Valid, Changed: changed, CurrentResult: current}, nil
}

// PermittedNextPhaseStates renders, for a human operator, the phase
// statuses reachable from current via the advisory checkpoint machine.
func PermittedNextPhaseStates(current string) []string {
	return newCheckpointMachine(current).PermittedNext()
}
