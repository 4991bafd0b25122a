// Package audit maintains the append-only JSONL record of every
// validation outcome, state change, decision, and error. It follows
// the teacher's repos.Index JSON-file round-trip idiom, adapted from a
// whole-file JSON array to one object per line.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of recordable audit actions.
type Action string

const (
	ActionTaskCreated        Action = "task_created"
	ActionTaskStarted        Action = "task_started"
	ActionTaskCompleted      Action = "task_completed"
	ActionTaskBlocked        Action = "task_blocked"
	ActionStateChanged       Action = "state_changed"
	ActionValidationPassed   Action = "validation_passed"
	ActionValidationFailed   Action = "validation_failed"
	ActionAgentStarted       Action = "agent_started"
	ActionAgentCompleted     Action = "agent_completed"
	ActionErrorOccurred      Action = "error_occurred"
	ActionCheckpointReached  Action = "checkpoint_reached"
	ActionDecisionMade       Action = "decision_made"
)

// Entry is a single record in the audit log.
type Entry struct {
	RecordID  string         `json:"record_id"`
	Timestamp string         `json:"timestamp"`
	Agent     string         `json:"agent,omitempty"`
	Action    Action         `json:"action"`
	TaskID    string         `json:"task_id,omitempty"`
	ExitCode  *int           `json:"exit_code,omitempty"`
	Before    any            `json:"before,omitempty"`
	After     any            `json:"after,omitempty"`
	Message   string         `json:"message,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Log wraps the single append-only file backing a project's audit
// trail. A Log's zero value is not usable; construct one with Open.
type Log struct {
	path string
	file *os.File
}

// Open creates <project>/.planning/AUDIT.jsonl if missing and returns
// a Log ready for appends. The caller must Close it when done.
func Open(projectPath string) (*Log, error) {
	dir := filepath.Join(projectPath, ".planning")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create planning directory: %w", err)
	}
	path := filepath.Join(dir, "AUDIT.jsonl")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	return &Log{path: path, file: f}, nil
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	return l.file.Close()
}

// Append writes one complete JSON line. A record_id is stamped on
// entries that don't already carry one, for idempotent replay tooling.
// Writes never modify existing lines; a single Write call keeps each
// line atomic at OS granularity.
func (l *Log) Append(e Entry) error {
	if e.RecordID == "" {
		e.RecordID = uuid.NewString()
	}
	if e.Timestamp == "" {
		return fmt.Errorf("audit: entry timestamp must be set by the caller")
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	raw = append(raw, '\n')

	if _, err := l.file.Write(raw); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	return nil
}

// ReadAll returns every entry in the log, in append order.
func ReadAll(projectPath string) ([]Entry, error) {
	path := filepath.Join(projectPath, ".planning", "AUDIT.jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: read log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("audit: parse log line: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}
	return entries, nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// TaskStart records a task_started entry for taskID.
func (l *Log) TaskStart(taskID, agent string) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionTaskStarted, TaskID: taskID, Agent: agent})
}

// TaskComplete records a task_completed entry for taskID.
func (l *Log) TaskComplete(taskID, agent string) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionTaskCompleted, TaskID: taskID, Agent: agent})
}

// TaskBlocked records a task_blocked entry for taskID with a reason.
func (l *Log) TaskBlocked(taskID, reason string) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionTaskBlocked, TaskID: taskID, Message: reason})
}

// Validation records a validation_passed or validation_failed entry
// depending on valid.
func (l *Log) Validation(filePath string, valid bool, exitCode int, errorCount int) error {
	action := ActionValidationPassed
	if !valid {
		action = ActionValidationFailed
	}
	return l.Append(Entry{
		Timestamp: nowRFC3339(),
		Action:    action,
		ExitCode:  &exitCode,
		Message:   filePath,
		Metadata:  map[string]any{"error_count": errorCount},
	})
}

// StateChange records a state_changed entry with before/after snapshots.
func (l *Log) StateChange(taskID string, before, after any) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionStateChanged, TaskID: taskID, Before: before, After: after})
}

// Error records an error_occurred entry.
func (l *Log) Error(message string, details map[string]any) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionErrorOccurred, Message: message, Metadata: details})
}

// Checkpoint records a checkpoint_reached entry.
func (l *Log) Checkpoint(message string, metadata map[string]any) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionCheckpointReached, Message: message, Metadata: metadata})
}

// Decision records a decision_made entry.
func (l *Log) Decision(message, rationale string) error {
	return l.Append(Entry{Timestamp: nowRFC3339(), Action: ActionDecisionMade, Message: message, Metadata: map[string]any{"rationale": rationale}})
}
