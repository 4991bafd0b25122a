package semantic

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

func TestValidateState(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantValid bool
		wantCode  string
	}{
		{
			name:      "valid",
			content:   `{"current_position":{"phase":1,"status":"planning"}}`,
			wantValid: true,
		},
		{
			name:     "ready to start is not a semantic status",
			content:  `{"current_position":{"phase":1,"status":"Ready to start"}}`,
			wantCode: "SEMANTIC_INVALID_ENUM",
		},
		{
			name:     "negative phase",
			content:  `{"current_position":{"phase":-1,"status":"planning"}}`,
			wantCode: "SEMANTIC_INVALID_RANGE",
		},
		{
			name:     "bad decision date",
			content:  `{"current_position":{"phase":1,"status":"planning"},"decisions":[{"date":"01/02/2026","decision":"x"}]}`,
			wantCode: "SEMANTIC_INVALID_DATE_FORMAT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &layer.Context{FileType: schema.FileTypeState, Data: decode(t, tt.content)}
			r := Validate(context.Background(), vc)
			if tt.wantValid {
				if !r.Valid() {
					t.Fatalf("expected valid, got errors %+v", r.Errors())
				}
				return
			}
			found := false
			for _, e := range r.Errors() {
				if e.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected code %s among %+v", tt.wantCode, r.Errors())
			}
		})
	}
}

func TestValidateStateCompleteWithoutLogWarns(t *testing.T) {
	vc := &layer.Context{FileType: schema.FileTypeState, Data: decode(t, `{"current_position":{"phase":1,"status":"complete"}}`)}
	r := Validate(context.Background(), vc)
	if !r.Valid() {
		t.Fatalf("expected valid, got errors %+v", r.Errors())
	}
	if len(r.Warnings()) != 1 || r.Warnings()[0].Code != "SEMANTIC_COMPLETE_WITHOUT_LOG" {
		t.Errorf("expected SEMANTIC_COMPLETE_WITHOUT_LOG warning, got %+v", r.Warnings())
	}
}

func TestValidatePlan(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
	}{
		{name: "valid", content: `{"phase":"01","plan":1,"wave":1}`},
		{name: "zero wave", content: `{"phase":"01","plan":1,"wave":0}`, wantCode: "SEMANTIC_INVALID_RANGE"},
		{name: "bad priority", content: `{"phase":"01","plan":1,"wave":1,"priority":"urgent"}`, wantCode: "SEMANTIC_INVALID_ENUM"},
		{name: "bad depends_on", content: `{"phase":"01","plan":1,"wave":1,"depends_on":["abc"]}`, wantCode: "SEMANTIC_INVALID_PATTERN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &layer.Context{FileType: schema.FileTypePlan, Data: decode(t, tt.content)}
			r := Validate(context.Background(), vc)
			if tt.wantCode == "" {
				if !r.Valid() {
					t.Fatalf("expected valid, got errors %+v", r.Errors())
				}
				return
			}
			found := false
			for _, e := range r.Errors() {
				if e.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected code %s among %+v", tt.wantCode, r.Errors())
			}
		})
	}
}

func TestValidatePlanNonAutonomousWarns(t *testing.T) {
	vc := &layer.Context{FileType: schema.FileTypePlan, Data: decode(t, `{"phase":"01","plan":1,"wave":1,"autonomous":false}`)}
	r := Validate(context.Background(), vc)
	if len(r.Warnings()) != 1 || r.Warnings()[0].Code != "SEMANTIC_NON_AUTONOMOUS_PLAN" {
		t.Errorf("expected SEMANTIC_NON_AUTONOMOUS_PLAN warning, got %+v", r.Warnings())
	}
}

func TestValidateTaskRegistry(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
	}{
		{
			name:    "valid",
			content: `{"version":"1","project":"p","last_task_id":1,"tasks":[{"id":"T001","title":"x","phase":1,"status":"pending","created":"2026-01-01T00:00:00Z"}]}`,
		},
		{
			name:     "leverage out of range",
			content:  `{"version":"1","project":"p","last_task_id":1,"tasks":[{"id":"T001","title":"x","phase":1,"status":"pending","created":"2026-01-01T00:00:00Z","leverage":11}]}`,
			wantCode: "SEMANTIC_INVALID_RANGE",
		},
		{
			name:     "completed missing completed date",
			content:  `{"version":"1","project":"p","last_task_id":1,"tasks":[{"id":"T001","title":"x","phase":1,"status":"completed","created":"2026-01-01T00:00:00Z"}]}`,
			wantCode: "SEMANTIC_MISSING_COMPLETED",
		},
		{
			name:     "blocked missing blocked_by",
			content:  `{"version":"1","project":"p","last_task_id":1,"tasks":[{"id":"T001","title":"x","phase":1,"status":"blocked","created":"2026-01-01T00:00:00Z"}]}`,
			wantCode: "SEMANTIC_MISSING_BLOCKED_BY",
		},
		{
			name:     "completed before created",
			content:  `{"version":"1","project":"p","last_task_id":1,"tasks":[{"id":"T001","title":"x","phase":1,"status":"completed","created":"2026-01-23T12:00:00Z","completed":"2026-01-23T10:00:00Z"}]}`,
			wantCode: "SEMANTIC_INVALID_DATE_ORDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vc := &layer.Context{FileType: schema.FileTypeTaskRegistry, Data: decode(t, tt.content)}
			r := Validate(context.Background(), vc)
			if tt.wantCode == "" {
				if !r.Valid() {
					t.Fatalf("expected valid, got errors %+v", r.Errors())
				}
				return
			}
			found := false
			for _, e := range r.Errors() {
				if e.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected code %s among %+v", tt.wantCode, r.Errors())
			}
		})
	}
}

func TestValidateStatusTransition(t *testing.T) {
	tests := []struct {
		from, to schema.TaskStatus
		wantErr  bool
	}{
		{schema.TaskPending, schema.TaskInProgress, false},
		{schema.TaskPending, schema.TaskBlocked, false},
		{schema.TaskPending, schema.TaskCompleted, true},
		{schema.TaskInProgress, schema.TaskCompleted, false},
		{schema.TaskBlocked, schema.TaskPending, false},
		{schema.TaskCompleted, schema.TaskPending, true},
		{schema.TaskCompleted, schema.TaskCompleted, false},
	}

	for _, tt := range tests {
		got := ValidateStatusTransition(tt.from, tt.to)
		if tt.wantErr && got == nil {
			t.Errorf("ValidateStatusTransition(%s, %s) = nil, want error", tt.from, tt.to)
		}
		if !tt.wantErr && got != nil {
			t.Errorf("ValidateStatusTransition(%s, %s) = %+v, want nil", tt.from, tt.to, got)
		}
	}
}
