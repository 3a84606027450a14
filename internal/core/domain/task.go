package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskType identifies what a queued task asks a worker to do.
type TaskType string

// TaskTypeProcessFile runs the per-file pipeline for one XML or ingestion JSON file.
const TaskTypeProcessFile TaskType = "process_file"

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// DefaultMaxAttempts is how often a file is tried before its task fails.
const DefaultMaxAttempts = 3

// payloadPath is the payload key holding the input file of a process_file task.
const payloadPath = "path"

// Task is one unit of queued work. A run enqueues one task per input file;
// RunID ties every task and file result of that run together.
type Task struct {
	ID      string            `json:"id"`
	Type    TaskType          `json:"type"`
	RunID   string            `json:"run_id"`
	Payload map[string]string `json:"payload"`

	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Error       string     `json:"error,omitempty"` // last failure reason

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask creates a pending task with a fresh ID.
func NewTask(taskType TaskType, runID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		RunID:       runID,
		Payload:     payload,
		Status:      TaskStatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewProcessFileTask creates the task that runs the pipeline for path.
func NewProcessFileTask(runID, path string) *Task {
	return NewTask(TaskTypeProcessFile, runID, map[string]string{payloadPath: path})
}

// Path is the input file of a process_file task, or "" when absent.
func (t *Task) Path() string {
	return t.Payload[payloadPath]
}

// CanRetry reports whether another attempt is allowed.
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing records that a worker claimed the task. It counts an attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

// MarkCompleted records success and clears an earlier failure reason.
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Error = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed records a terminal failure.
func (t *Task) MarkFailed(reason string) {
	t.Status = TaskStatusFailed
	t.Error = reason
	t.UpdatedAt = time.Now()
}

// Retry returns the task to pending after a failed attempt.
func (t *Task) Retry(reason string) {
	t.Status = TaskStatusPending
	t.Error = reason
	t.UpdatedAt = time.Now()
}
