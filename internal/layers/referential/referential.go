// Package referential implements intra- and inter-document reference
// validation: existence checks, self-reference and cycle detection, and
// cross-reads of sibling documents on disk.
package referential

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/your-org/sow/internal/exitcode"
	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/schema"
)

var taskIDPattern = regexp.MustCompile(`^T(\d{3})$`)

// Validate dispatches on vc.FileType to the per-document rule set.
func Validate(_ context.Context, vc *layer.Context) layer.Result {
	switch vc.FileType {
	case schema.FileTypeTaskRegistry:
		return validateTaskRegistry(vc)
	case schema.FileTypeState:
		return validateState(vc)
	case schema.FileTypePlan:
		return validatePlan(vc)
	default:
		return layer.FailureResult(layer.NameReferential, []layer.Error{{
			Code:    "REFERENTIAL_INTERNAL_ERROR",
			Message: fmt.Sprintf("unsupported file type %q", vc.FileType),
		}}, nil, layer.Metadata{ExitCode: int(exitcode.ValidationReferential), FileType: vc.FileType})
	}
}

func decodeInto(data any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func validateTaskRegistry(vc *layer.Context) layer.Result {
	var reg schema.TaskRegistry
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &reg); err != nil {
		meta.ExitCode = int(exitcode.ValidationReferential)
		return layer.FailureResult(layer.NameReferential, []layer.Error{{
			Code: "REFERENTIAL_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	var errs []layer.Error
	ids := make(map[string]bool, len(reg.Tasks))
	maxSuffix := 0
	for _, tk := range reg.Tasks {
		ids[tk.ID] = true
		if m := taskIDPattern.FindStringSubmatch(tk.ID); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxSuffix {
				maxSuffix = n
			}
		}
	}

	for i, tk := range reg.Tasks {
		base := fmt.Sprintf("/tasks/%d", i)
		for j, dep := range tk.Dependencies {
			if dep == tk.ID {
				errs = append(errs, layer.Error{
					Code: "REFERENTIAL_SELF_DEPENDENCY", Path: fmt.Sprintf("%s/dependencies/%d", base, j),
					Message: fmt.Sprintf("task %s depends on itself", tk.ID),
				})
				continue
			}
			if !ids[dep] {
				errs = append(errs, layer.Error{
					Code: "REFERENTIAL_UNKNOWN_DEPENDENCY", Path: fmt.Sprintf("%s/dependencies/%d", base, j),
					Message: fmt.Sprintf("task %s depends on unknown task %s", tk.ID, dep),
				})
			}
		}
	}

	if maxSuffix != reg.LastTaskID {
		errs = append(errs, layer.Error{
			Code: "REFERENTIAL_LAST_TASK_ID_MISMATCH", Path: "/last_task_id",
			Message: fmt.Sprintf("last_task_id is %d but the highest declared task id suffix is %d", reg.LastTaskID, maxSuffix),
			Details: map[string]int{"expected": maxSuffix, "actual": reg.LastTaskID},
		})
	}

	if cycles := detectCycles(reg.Tasks); len(cycles) > 0 {
		for _, c := range cycles {
			errs = append(errs, layer.Error{
				Code:    "REFERENTIAL_CIRCULAR_DEPENDENCY",
				Message: fmt.Sprintf("circular dependency: %s", strings.Join(c, " -> ")),
				Details: map[string][]string{"cycle": c},
			})
		}
	}

	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationReferential)
		return layer.FailureResult(layer.NameReferential, errs, nil, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameReferential, nil, meta)
}

// detectCycles runs DFS with an explicit recursion stack and path
// vector over the task dependency graph. On re-entering a node already
// on the stack, it slices the path from that node's first occurrence
// and reports the exact cycle, then continues so disjoint cycles are
// all surfaced in a single pass.
func detectCycles(tasks []schema.Task) [][]string {
	deps := make(map[string][]string, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, tk := range tasks {
		deps[tk.ID] = tk.Dependencies
		order = append(order, tk.ID)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	var cycles [][]string

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range deps[id] {
			if _, known := deps[dep]; !known {
				continue // unknown deps are reported separately
			}
			if onStack[dep] {
				for i, n := range path {
					if n == dep {
						cycle := append(append([]string{}, path[i:]...), dep)
						cycles = append(cycles, cycle)
						break
					}
				}
				continue
			}
			if !visited[dep] {
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
	}

	for _, id := range order {
		if !visited[id] {
			dfs(id)
		}
	}
	return cycles
}

func validateState(vc *layer.Context) layer.Result {
	var doc schema.StateDocument
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &doc); err != nil {
		meta.ExitCode = int(exitcode.ValidationReferential)
		return layer.FailureResult(layer.NameReferential, []layer.Error{{
			Code: "REFERENTIAL_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	var errs []layer.Error
	var warns []layer.Warning

	seen := make(map[string]bool, len(doc.OpenQuestions))
	for i, q := range doc.OpenQuestions {
		if seen[q.ID] {
			errs = append(errs, layer.Error{
				Code: "REFERENTIAL_DUPLICATE_OPEN_QUESTION", Path: fmt.Sprintf("/open_questions/%d/id", i),
				Message: fmt.Sprintf("open question id %q is duplicated", q.ID),
			})
			continue
		}
		seen[q.ID] = true
	}

	if vc.ProjectPath != "" {
		reg, err := loadSiblingRegistry(vc.ProjectPath)
		if err != nil {
			warns = append(warns, layer.Warning{
				Code:    "REFERENTIAL_REGISTRY_UNREADABLE",
				Message: err.Error(),
			})
		} else {
			known := make(map[string]bool, len(reg.Tasks))
			for _, tk := range reg.Tasks {
				known[tk.ID] = true
			}

			if id, ok := activeTaskID(doc.ActiveTask); ok && !known[id] {
				errs = append(errs, layer.Error{
					Code: "REFERENTIAL_UNKNOWN_ACTIVE_TASK", Path: "/active_task",
					Message: fmt.Sprintf("active_task %q does not exist in the task registry", id),
				})
			}
			for i, e := range doc.SessionLog {
				if e.TaskID == "" {
					continue
				}
				if !known[e.TaskID] {
					errs = append(errs, layer.Error{
						Code: "REFERENTIAL_UNKNOWN_SESSION_TASK", Path: fmt.Sprintf("/session_log/%d/task_id", i),
						Message: fmt.Sprintf("session_log entry references unknown task %q", e.TaskID),
					})
				}
			}
		}
	}

	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationReferential)
		return layer.FailureResult(layer.NameReferential, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameReferential, warns, meta)
}

// activeTaskID extracts a candidate task id from the loosely-typed
// active_task field. The literal strings "None" and a JSON null are
// no-ops per the data model; a bare string is checked against the task
// id pattern, and an object is checked for an "id" field.
func activeTaskID(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if t == "" || t == "None" {
			return "", false
		}
		if taskIDPattern.MatchString(t) {
			return t, true
		}
		return "", false
	case map[string]any:
		if id, ok := t["id"].(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

func loadSiblingRegistry(projectPath string) (*schema.TaskRegistry, error) {
	raw, err := os.ReadFile(filepath.Join(projectPath, ".planning", "TASKS.json"))
	if err != nil {
		return nil, err
	}
	var reg schema.TaskRegistry
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func validatePlan(vc *layer.Context) layer.Result {
	var p schema.Plan
	meta := layer.Metadata{FileType: vc.FileType}
	if err := decodeInto(vc.Data, &p); err != nil {
		meta.ExitCode = int(exitcode.ValidationReferential)
		return layer.FailureResult(layer.NameReferential, []layer.Error{{
			Code: "REFERENTIAL_INTERNAL_ERROR", Message: err.Error(),
		}}, nil, meta)
	}

	var errs []layer.Error
	var warns []layer.Warning

	if p.Agent != "" && !schema.KnownAgents[p.Agent] {
		errs = append(errs, layer.Error{
			Code: "REFERENTIAL_UNKNOWN_AGENT", Path: "/agent",
			Message: fmt.Sprintf("agent %q is not a recognised agent", p.Agent),
		})
	}

	if len(p.DependsOn) > 0 && vc.ProjectPath != "" {
		plansDir := filepath.Join(vc.ProjectPath, ".planning", "plans")
		entries, err := os.ReadDir(plansDir)
		if err != nil {
			warns = append(warns, layer.Warning{Code: "REFERENTIAL_PLANS_DIR_UNREADABLE", Message: err.Error()})
		} else {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				if !e.IsDir() {
					names = append(names, e.Name())
				}
			}
			for i, dep := range p.DependsOn {
				found := false
				for _, name := range names {
					if MatchPlanFile(dep, name) {
						found = true
						break
					}
				}
				if !found {
					errs = append(errs, layer.Error{
						Code: "REFERENTIAL_MISSING_PLAN", Path: fmt.Sprintf("/depends_on/%d", i),
						Message: fmt.Sprintf("no plan file found for dependency %q", dep),
					})
				}
			}
		}
	}

	if len(errs) > 0 {
		meta.ExitCode = int(exitcode.ValidationReferential)
		return layer.FailureResult(layer.NameReferential, errs, warns, meta)
	}
	meta.ExitCode = int(exitcode.Success)
	return layer.SuccessResult(layer.NameReferential, warns, meta)
}

// MatchPlanFile is the single canonical rule for matching a plan file
// name against a depends_on id, used by this layer's depends_on check.
// A file matches iff its basename, with a .plan.md or .plan.json suffix
// stripped, equals the id or starts with "id-".
func MatchPlanFile(depID, name string) bool {
	base := name
	for _, suffix := range []string{".plan.md", ".plan.json"} {
		if strings.HasSuffix(base, suffix) {
			base = strings.TrimSuffix(base, suffix)
			break
		}
	}
	return base == depID || strings.HasPrefix(base, depID+"-")
}
