package schema

// FileType is the closed set of planning-artifact kinds the validator
// understands. It drives schema selection and layer dispatch.
type FileType string

const (
	FileTypeState         FileType = "state"
	FileTypePlan          FileType = "plan"
	FileTypeTaskRegistry  FileType = "task-registry"
	FileTypeUnknown       FileType = ""
)

// TaskStatus is the closed set of statuses a Task may hold.
type TaskStatus string

const (
	TaskPending     TaskStatus = "pending"
	TaskInProgress  TaskStatus = "in_progress"
	TaskBlocked     TaskStatus = "blocked"
	TaskCompleted   TaskStatus = "completed"
)

// PhaseStatus is the closed set of statuses a project's current position
// may hold in the STATE document.
type PhaseStatus string

const (
	PhasePlanning      PhaseStatus = "planning"
	PhaseExecuting     PhaseStatus = "executing"
	PhaseVerifying     PhaseStatus = "verifying"
	PhaseComplete      PhaseStatus = "complete"
	PhaseBlocked       PhaseStatus = "blocked"
	PhaseReadyToStart  PhaseStatus = "Ready to start"
)

// PlanPriority is the closed set of priority labels a Plan may declare.
type PlanPriority string

const (
	PriorityCritical PlanPriority = "critical"
	PriorityHigh     PlanPriority = "high"
	PriorityMedium   PlanPriority = "medium"
	PriorityLow      PlanPriority = "low"
)

// KnownAgents is the closed, contractual set of recognised plan agents.
var KnownAgents = map[string]bool{
	"backend-architect":      true,
	"database-engineer":      true,
	"devops-engineer":        true,
	"ui-ux-engineer":         true,
	"chat-engineer":          true,
	"data-viz-engineer":      true,
	"langchain-engineer":     true,
	"llm-workflow-engineer":  true,
	"prd-spec-validator":     true,
	"vector-store-engineer":  true,
	"cache-engineer":         true,
	"observability-engineer": true,
	"product-manager":        true,
	"product-strategy":       true,
	"technical-program-manager": true,
	"qa-engineer":            true,
	"documentation-engineer": true,
}

// Task is a single entry in a TaskRegistry.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Phase        int        `json:"phase"`
	Status       TaskStatus `json:"status"`
	Assignee     string     `json:"assignee,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Created      string     `json:"created"`
	Completed    string     `json:"completed,omitempty"`
	BlockedBy    string     `json:"blocked_by,omitempty"`
	Leverage     *int       `json:"leverage,omitempty"`
	// Notes carries free-form per-task annotations found in some planning
	// documents. The spec places no semantic invariant on it.
	Notes []string `json:"notes,omitempty"`
}

// TaskRegistry is the `.planning/TASKS.json` document.
type TaskRegistry struct {
	Version    string `json:"version"`
	Project    string `json:"project"`
	LastTaskID int    `json:"last_task_id"`
	Tasks      []Task `json:"tasks"`
}

// Decision is a single narrative decision entry in a StateDocument.
type Decision struct {
	Date      string `json:"date"`
	Decision  string `json:"decision"`
	Rationale string `json:"rationale,omitempty"`
}

// SessionLogEntry is a single entry in a StateDocument's session log.
type SessionLogEntry struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Agent     string `json:"agent,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
}

// OpenQuestion is a single open question tracked in a StateDocument.
type OpenQuestion struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Status   string `json:"status,omitempty"`
}

// CurrentPosition describes the project's current phase and status.
type CurrentPosition struct {
	Phase  int    `json:"phase"`
	Status string `json:"status"`
}

// StateDocument is the `.planning/STATE.json` document.
type StateDocument struct {
	CurrentPosition CurrentPosition   `json:"current_position"`
	PreviousStatus  string            `json:"previous_status,omitempty"`
	ActiveTask      any               `json:"active_task,omitempty"`
	NextSteps       []string          `json:"next_steps,omitempty"`
	Decisions       []Decision        `json:"decisions,omitempty"`
	SessionLog      []SessionLogEntry `json:"session_log,omitempty"`
	OpenQuestions   []OpenQuestion    `json:"open_questions,omitempty"`
}

// Plan is a single `.planning/plans/*.plan.json` document.
type Plan struct {
	Phase       string       `json:"phase"`
	Plan        int          `json:"plan"`
	Wave        int          `json:"wave"`
	Autonomous  *bool        `json:"autonomous,omitempty"`
	Agent       string       `json:"agent,omitempty"`
	DependsOn   []string     `json:"depends_on,omitempty"`
	Priority    PlanPriority `json:"priority,omitempty"`
	MustHaves   []string     `json:"must_haves,omitempty"`
}
