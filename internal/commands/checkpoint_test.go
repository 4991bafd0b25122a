package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckpointCreateCommand_PermittedNextPhaseStates(t *testing.T) {
	tmpDir := t.TempDir()
	planningDir := filepath.Join(tmpDir, ".planning")
	os.MkdirAll(planningDir, 0o755)

	stateContent := `{"current_position":{"phase":1,"status":"planning"}}`
	os.WriteFile(filepath.Join(planningDir, "STATE.json"), []byte(stateContent), 0o644)

	cmd := NewCheckpointCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"create", "--project", tmpDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("checkpoint create failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "permitted_next_phase_states") || !strings.Contains(output, "executing") {
		t.Errorf("expected permitted_next_phase_states to list \"executing\" for a planning checkpoint, got: %s", output)
	}
}

func TestCheckpointVerifyCommand_PermittedNextPhaseStates(t *testing.T) {
	tmpDir := t.TempDir()
	planningDir := filepath.Join(tmpDir, ".planning")
	os.MkdirAll(planningDir, 0o755)

	stateContent := `{"current_position":{"phase":1,"status":"executing"}}`
	os.WriteFile(filepath.Join(planningDir, "STATE.json"), []byte(stateContent), 0o644)

	cmd := NewCheckpointCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"verify", "--project", tmpDir})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("checkpoint verify failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "permitted_next_phase_states") || !strings.Contains(output, "verifying") {
		t.Errorf("expected permitted_next_phase_states to list \"verifying\" for an executing checkpoint, got: %s", output)
	}
}

func TestPermittedNextPhaseStates_NoStateFile(t *testing.T) {
	tmpDir := t.TempDir()
	if got := permittedNextPhaseStates(tmpDir); got != nil {
		t.Errorf("expected nil for a project with no STATE.json, got %v", got)
	}
}
