// Package pipeline orchestrates the four validation layers in fixed
// order against single files, multiple files, or a whole project.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/layers/referential"
	"github.com/your-org/sow/internal/layers/semantic"
	"github.com/your-org/sow/internal/layers/statemachine"
	"github.com/your-org/sow/internal/layers/structural"
	"github.com/your-org/sow/internal/schema"
)

// orderedLayers is the layer execution order. This slice is never
// reordered; the `layers` option may only restrict it.
var orderedLayers = []layer.Name{
	layer.NameSchema,
	layer.NameSemantic,
	layer.NameReferential,
	layer.NameStateMachine,
}

func layerFunc(name layer.Name) layer.Func {
	switch name {
	case layer.NameSchema:
		return structural.Validate
	case layer.NameSemantic:
		return semantic.Validate
	case layer.NameReferential:
		return referential.Validate
	case layer.NameStateMachine:
		return statemachine.Validate
	default:
		return nil
	}
}

// Options controls a single run_validation invocation.
type Options struct {
	// Layers restricts the set of layers run, preserving order. A nil
	// or empty slice runs every layer.
	Layers []layer.Name
	// StopOnFirstError halts the pipeline at the first failing layer.
	StopOnFirstError bool
	// PreviousResults seeds layer N's view of prior runs, concatenated
	// ahead of the results this pipeline invocation produces.
	PreviousResults []layer.Result
}

// DefaultOptions is the low-level Runner's default: stop at the first
// failing layer. Hooks use a different default; see hooks.DefaultOptions.
func DefaultOptions() Options {
	return Options{StopOnFirstError: true}
}

func (o Options) activeLayers() []layer.Name {
	if len(o.Layers) == 0 {
		return orderedLayers
	}
	wanted := make(map[layer.Name]bool, len(o.Layers))
	for _, l := range o.Layers {
		wanted[l] = true
	}
	var out []layer.Name
	for _, l := range orderedLayers {
		if wanted[l] {
			out = append(out, l)
		}
	}
	return out
}

// Result is the aggregate outcome of run_validation.
type Result struct {
	Valid        bool
	ExitCode     exitcode.Code
	LayerResults []layer.Result
	ErrorCount   int
	WarningCount int
}

// Runner is the stateless entry point for pipeline execution. It holds
// no mutable state of its own; every method is safe for concurrent use.
type Runner struct{}

// NewRunner constructs a Runner.
func NewRunner() *Runner { return &Runner{} }

// RunValidation runs the configured layers in fixed order against vc.
func (r *Runner) RunValidation(ctx context.Context, vc layer.Context, opts Options) Result {
	// previous_results is concatenated caller-supplied + options-supplied,
	// with each layer's own result appended as the pipeline advances.
	vc.PreviousResults = append(append([]layer.Result{}, vc.PreviousResults...), opts.PreviousResults...)

	var results []layer.Result
	aggregateCode := exitcode.Success
	errCount, warnCount := 0, 0

	for _, name := range opts.activeLayers() {
		fn := layerFunc(name)
		if fn == nil {
			continue
		}
		res := fn(ctx, &vc)
		results = append(results, res)
		vc.PreviousResults = append(vc.PreviousResults, res)

		errCount += len(res.Errors())
		warnCount += len(res.Warnings())

		if !res.Valid() {
			if aggregateCode == exitcode.Success {
				aggregateCode = exitcode.Code(res.Metadata().ExitCode)
			}
			if opts.StopOnFirstError {
				break
			}
		}
	}

	return Result{
		Valid:        aggregateCode == exitcode.Success,
		ExitCode:     aggregateCode,
		LayerResults: results,
		ErrorCount:   errCount,
		WarningCount: warnCount,
	}
}

// FileResult wraps a Result with the file it was produced from.
type FileResult struct {
	FilePath string
	FileType schema.FileType
	Result   Result
}

// DetectFileType infers a FileType from a path, case-insensitively:
// a name ending in state.json or state.md is `state`; ending in
// tasks.json is `task-registry`; containing ".plan." or ending in
// .plan.md is `plan`; anything else is FileTypeUnknown.
func DetectFileType(path string) schema.FileType {
	lower := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(lower, "state.json"), strings.HasSuffix(lower, "state.md"):
		return schema.FileTypeState
	case strings.HasSuffix(lower, "tasks.json"):
		return schema.FileTypeTaskRegistry
	case strings.Contains(lower, ".plan."), strings.HasSuffix(lower, ".plan.md"):
		return schema.FileTypePlan
	default:
		return schema.FileTypeUnknown
	}
}

// RunValidationOnFile reads filePath, parses it as JSON, infers its
// file type when ft is FileTypeUnknown, and delegates to RunValidation.
func (r *Runner) RunValidationOnFile(ctx context.Context, projectPath, filePath string, ft schema.FileType, opts Options) FileResult {
	if ft == schema.FileTypeUnknown {
		ft = DetectFileType(filePath)
	}
	if ft == schema.FileTypeUnknown {
		return FileResult{
			FilePath: filePath,
			FileType: ft,
			Result: Result{
				ExitCode: exitcode.InvalidArguments,
				LayerResults: []layer.Result{layer.FailureResult(layer.NameSchema, []layer.Error{{
					Code:    "RUNNER_UNKNOWN_FILE_TYPE",
					Message: fmt.Sprintf("could not determine file type for %q", filePath),
				}}, nil, layer.Metadata{ExitCode: int(exitcode.InvalidArguments)})},
				ErrorCount: 1,
			},
		}
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return FileResult{
			FilePath: filePath,
			FileType: ft,
			Result: Result{
				ExitCode:     exitcode.ValidationSchema,
				LayerResults: []layer.Result{structural.FileReadError(filePath, err)},
				ErrorCount:   1,
			},
		}
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return FileResult{
			FilePath: filePath,
			FileType: ft,
			Result: Result{
				ExitCode:     exitcode.ValidationSchema,
				LayerResults: []layer.Result{structural.ParseError(filePath, err)},
				ErrorCount:   1,
			},
		}
	}

	vc := layer.Context{ProjectPath: projectPath, FileType: ft, FilePath: filePath, Data: data}
	res := r.RunValidation(ctx, vc, opts)
	return FileResult{FilePath: filePath, FileType: ft, Result: res}
}

// ProjectResult is the outcome of run_project_validation: one
// FileResult per artifact found, plus an aggregate summary.
type ProjectResult struct {
	Files          []FileResult
	Valid          bool
	ErrorCount     int
	WarningCount   int
	FilesValidated int
	ExitCode       exitcode.Code
}

// RunProjectValidation validates .planning/STATE.json (if present),
// .planning/TASKS.json (if present), and every plan file under
// .planning/plans/ in that order. Missing STATE/TASKS files are
// skipped silently; the aggregate exit code is the first failure
// encountered in this ordering.
func (r *Runner) RunProjectValidation(ctx context.Context, projectPath string, opts Options) ProjectResult {
	var pr ProjectResult
	pr.ExitCode = exitcode.Success

	record := func(fr FileResult) {
		pr.Files = append(pr.Files, fr)
		pr.FilesValidated++
		pr.ErrorCount += fr.Result.ErrorCount
		pr.WarningCount += fr.Result.WarningCount
		if !fr.Result.Valid && pr.ExitCode == exitcode.Success {
			pr.ExitCode = fr.Result.ExitCode
		}
	}

	statePath := filepath.Join(projectPath, ".planning", "STATE.json")
	if _, err := os.Stat(statePath); err == nil {
		record(r.RunValidationOnFile(ctx, projectPath, statePath, schema.FileTypeState, opts))
	}

	tasksPath := filepath.Join(projectPath, ".planning", "TASKS.json")
	if _, err := os.Stat(tasksPath); err == nil {
		record(r.RunValidationOnFile(ctx, projectPath, tasksPath, schema.FileTypeTaskRegistry, opts))
	}

	plansDir := filepath.Join(projectPath, ".planning", "plans")
	if entries, err := os.ReadDir(plansDir); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := strings.ToLower(e.Name())
			if strings.Contains(name, ".plan") && strings.HasSuffix(name, ".json") {
				record(r.RunValidationOnFile(ctx, projectPath, filepath.Join(plansDir, e.Name()), schema.FileTypePlan, opts))
			}
		}
	}

	pr.Valid = pr.ExitCode == exitcode.Success
	return pr
}

// RunValidationOnFiles validates multiple files concurrently via an
// errgroup, one goroutine per file with no concurrency limit, preserving
// input order in the returned slice without a mutex (each goroutine
// writes only its own index).
func (r *Runner) RunValidationOnFiles(ctx context.Context, files []string, projectPath string, opts Options) ([]FileResult, error) {
	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = r.RunValidationOnFile(gctx, projectPath, f, schema.FileTypeUnknown, opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
