package statemachine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/your-org/sow/internal/layer"
	"github.com/your-org/sow/internal/schema"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("fixture did not parse: %v", err)
	}
	return v
}

func TestValidateStateInvalidPhaseTransition(t *testing.T) {
	vc := &layer.Context{
		FileType: schema.FileTypeState,
		Data:     decode(t, `{"current_position":{"phase":1,"status":"complete"},"previous_status":"planning"}`),
	}
	r := Validate(context.Background(), vc)
	if r.Valid() {
		t.Fatal("expected invalid result")
	}
	e := r.Errors()[0]
	if e.Code != "STATE_MACHINE_INVALID_PHASE_TRANSITION" {
		t.Fatalf("code = %s, want STATE_MACHINE_INVALID_PHASE_TRANSITION", e.Code)
	}
	allowed := e.Details.(map[string]any)["allowedTransitions"].([]string)
	if len(allowed) != 1 || allowed[0] != "executing" {
		t.Errorf("allowedTransitions = %v, want [executing]", allowed)
	}
}

func TestValidateStateTerminalWarns(t *testing.T) {
	vc := &layer.Context{FileType: schema.FileTypeState, Data: decode(t, `{"current_position":{"phase":1,"status":"complete"}}`)}
	r := Validate(context.Background(), vc)
	if !r.Valid() {
		t.Fatalf("expected valid, got %+v", r.Errors())
	}
	if len(r.Warnings()) != 1 || r.Warnings()[0].Code != "STATE_MACHINE_TERMINAL_STATE" {
		t.Errorf("expected STATE_MACHINE_TERMINAL_STATE warning, got %+v", r.Warnings())
	}
}

func TestValidateStateReadyToStartIsAuthoritativeHere(t *testing.T) {
	vc := &layer.Context{FileType: schema.FileTypeState, Data: decode(t, `{"current_position":{"phase":1,"status":"Ready to start"}}`)}
	r := Validate(context.Background(), vc)
	if !r.Valid() {
		t.Fatalf("expected valid in isolation, got %+v", r.Errors())
	}
}

func TestValidateStatePriorResultsCarryForward(t *testing.T) {
	prior := layer.SuccessResult(layer.NameStateMachine, nil, layer.Metadata{
		PreviousState: &layer.PreviousState{PhaseStatus: "complete"},
	})
	vc := &layer.Context{
		FileType:        schema.FileTypeState,
		Data:            decode(t, `{"current_position":{"phase":1,"status":"planning"}}`),
		PreviousResults: []layer.Result{prior},
	}
	r := Validate(context.Background(), vc)
	if r.Valid() {
		t.Fatal("expected invalid: complete is terminal, planning is not a legal next state")
	}
	if r.Errors()[0].Code != "STATE_MACHINE_INVALID_PHASE_TRANSITION" {
		t.Errorf("code = %s, want STATE_MACHINE_INVALID_PHASE_TRANSITION", r.Errors()[0].Code)
	}
}

func TestValidateTaskRegistryCompletedWithPendingDeps(t *testing.T) {
	content := `{"version":"1.0.0","project":"p","last_task_id":2,"tasks":[
		{"id":"T001","title":"a","phase":1,"status":"pending","created":"2026-01-01T00:00:00Z"},
		{"id":"T002","title":"b","phase":1,"status":"completed","created":"2026-01-01T00:00:00Z","completed":"2026-01-02T00:00:00Z","dependencies":["T001"]}
	]}`
	vc := &layer.Context{FileType: schema.FileTypeTaskRegistry, Data: decode(t, content)}
	r := Validate(context.Background(), vc)
	if r.Valid() {
		t.Fatal("expected invalid result")
	}
	found := false
	for _, e := range r.Errors() {
		if e.Code == "STATE_MACHINE_COMPLETED_WITH_PENDING_DEPS" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected STATE_MACHINE_COMPLETED_WITH_PENDING_DEPS, got %+v", r.Errors())
	}
}

func TestValidateTaskRegistryShouldBeBlockedWarns(t *testing.T) {
	content := `{"version":"1.0.0","project":"p","last_task_id":2,"tasks":[
		{"id":"T001","title":"a","phase":1,"status":"pending","created":"2026-01-01T00:00:00Z"},
		{"id":"T002","title":"b","phase":1,"status":"in_progress","created":"2026-01-01T00:00:00Z","dependencies":["T001"]}
	]}`
	vc := &layer.Context{FileType: schema.FileTypeTaskRegistry, Data: decode(t, content)}
	r := Validate(context.Background(), vc)
	if !r.Valid() {
		t.Fatalf("expected valid (warning only), got %+v", r.Errors())
	}
	found := false
	for _, w := range r.Warnings() {
		if w.Code == "STATE_MACHINE_SHOULD_BE_BLOCKED" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected STATE_MACHINE_SHOULD_BE_BLOCKED warning, got %+v", r.Warnings())
	}
}

func TestValidateTaskRegistryInvalidTransition(t *testing.T) {
	content := `{"version":"1.0.0","project":"p","last_task_id":1,"tasks":[
		{"id":"T001","title":"a","phase":1,"status":"in_progress","created":"2026-01-01T00:00:00Z"}
	]}`
	prior := layer.SuccessResult(layer.NameStateMachine, nil, layer.Metadata{
		PreviousState: &layer.PreviousState{TaskStatuses: layer.TaskStatuses{"T001": "completed"}},
	})
	vc := &layer.Context{
		FileType:        schema.FileTypeTaskRegistry,
		Data:            decode(t, content),
		PreviousResults: []layer.Result{prior},
	}
	r := Validate(context.Background(), vc)
	if r.Valid() {
		t.Fatal("expected invalid: completed -> in_progress is not a legal transition")
	}
	hasInvalid, hasTerminalModified := false, false
	for _, e := range r.Errors() {
		if e.Code == "STATE_MACHINE_INVALID_TASK_TRANSITION" {
			hasInvalid = true
		}
	}
	for _, w := range r.Warnings() {
		if w.Code == "STATE_MACHINE_TERMINAL_STATE_MODIFIED" {
			hasTerminalModified = true
		}
	}
	if !hasInvalid {
		t.Errorf("expected STATE_MACHINE_INVALID_TASK_TRANSITION, got errors %+v", r.Errors())
	}
	if !hasTerminalModified {
		t.Errorf("expected STATE_MACHINE_TERMINAL_STATE_MODIFIED, got warnings %+v", r.Warnings())
	}
}

func TestValidatePlanPassesThrough(t *testing.T) {
	vc := &layer.Context{FileType: schema.FileTypePlan, Data: decode(t, `{"phase":"01","plan":1,"wave":1}`)}
	r := Validate(context.Background(), vc)
	if !r.Valid() {
		t.Fatalf("expected valid, got %+v", r.Errors())
	}
}
