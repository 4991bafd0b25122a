package schema

import "testing"

func TestStoreValidateStateDocument(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
	}{
		{
			name:    "valid state document",
			content: `{"current_position":{"phase":1,"status":"planning"}}`,
		},
		{
			name:     "missing current_position",
			content:  `{}`,
			wantCode: "SCHEMA_MISSING_REQUIRED",
		},
		{
			name:     "phase wrong type",
			content:  `{"current_position":{"phase":"one","status":"planning"}}`,
			wantCode: "SCHEMA_INVALID_TYPE",
		},
		{
			name:     "status missing within current_position",
			content:  `{"current_position":{"phase":1}}`,
			wantCode: "SCHEMA_MISSING_REQUIRED",
		},
	}

	s := Get()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := s.Validate(FileTypeState, []byte(tt.content))
			if err != nil {
				t.Fatalf("Validate returned unexpected error: %v", err)
			}
			if tt.wantCode == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %+v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("expected an error with code %s, got none", tt.wantCode)
			}
			found := false
			for _, e := range errs {
				if e.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected code %s among %+v", tt.wantCode, errs)
			}
		})
	}
}

func TestStoreValidateTaskRegistry(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
	}{
		{
			name:    "valid registry",
			content: `{"version":"1.0","project":"demo","last_task_id":1,"tasks":[{"id":"T001","title":"Do the thing","phase":1,"status":"pending","created":"2026-01-01"}]}`,
		},
		{
			name:     "bad task id pattern",
			content:  `{"version":"1.0","project":"demo","last_task_id":1,"tasks":[{"id":"TX1","title":"x","phase":1,"status":"pending","created":"2026-01-01"}]}`,
			wantCode: "SCHEMA_INVALID_PATTERN",
		},
		{
			name:     "bad status enum",
			content:  `{"version":"1.0","project":"demo","last_task_id":1,"tasks":[{"id":"T001","title":"x","phase":1,"status":"done","created":"2026-01-01"}]}`,
			wantCode: "SCHEMA_INVALID_ENUM",
		},
		{
			name:     "title too long",
			content:  `{"version":"1.0","project":"demo","last_task_id":1,"tasks":[{"id":"T001","title":"` + longTitle() + `","phase":1,"status":"pending","created":"2026-01-01"}]}`,
			wantCode: "SCHEMA_TOO_LONG",
		},
		{
			name:     "missing required top-level field",
			content:  `{"project":"demo","last_task_id":1,"tasks":[]}`,
			wantCode: "SCHEMA_MISSING_REQUIRED",
		},
	}

	s := Get()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, err := s.Validate(FileTypeTaskRegistry, []byte(tt.content))
			if err != nil {
				t.Fatalf("Validate returned unexpected error: %v", err)
			}
			if tt.wantCode == "" {
				if len(errs) != 0 {
					t.Fatalf("expected no errors, got %+v", errs)
				}
				return
			}
			found := false
			for _, e := range errs {
				if e.Code == tt.wantCode {
					found = true
				}
			}
			if !found {
				t.Errorf("expected code %s among %+v", tt.wantCode, errs)
			}
		})
	}
}

func TestStoreValidatePlan(t *testing.T) {
	s := Get()

	errs, err := s.Validate(FileTypePlan, []byte(`{"phase":"01","plan":1,"wave":1}`))
	if err != nil {
		t.Fatalf("Validate returned unexpected error: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}

	errs, err = s.Validate(FileTypePlan, []byte(`{"phase":"01","wave":1}`))
	if err != nil {
		t.Fatalf("Validate returned unexpected error: %v", err)
	}
	if len(errs) == 0 || errs[0].Code != "SCHEMA_MISSING_REQUIRED" {
		t.Errorf("expected SCHEMA_MISSING_REQUIRED, got %+v", errs)
	}
}

func TestStoreValidateMalformedJSON(t *testing.T) {
	s := Get()
	errs, err := s.Validate(FileTypeState, []byte(`{not json`))
	if err != nil {
		t.Fatalf("Validate returned unexpected error: %v", err)
	}
	if len(errs) != 1 || errs[0].Code != "SCHEMA_PARSE_ERROR" {
		t.Errorf("expected a single SCHEMA_PARSE_ERROR, got %+v", errs)
	}
}

func TestStoreValidateUnknownFileType(t *testing.T) {
	s := Get()
	if _, err := s.Validate(FileType("bogus"), []byte(`{}`)); err == nil {
		t.Error("expected an error for an unknown file type")
	}
}

func longTitle() string {
	b := make([]byte, 201)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
