package tasks

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/recall/core"
)

// Registry tracks the lifecycle of ingestion tasks.
//
// Records are stored as immutable snapshots in a concurrency-safe keyed map:
// every transition swaps the whole record for a new one via compare-and-swap
// on the task's key, so readers never observe a record mid-update and
// unrelated tasks never contend on a shared lock. Records are process-local;
// no durability across restarts is guaranteed.
type Registry struct {
	records sync.Map // task id -> *core.IngestionTask (immutable)
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRegistry creates a new task registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger: slog.Default().With("component", "task-registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a new queued task for the given source and scope and
// returns a snapshot of its record. The task id is an opaque unique token.
func (r *Registry) Create(filename string, sizeBytes int64, scopeID string) *core.IngestionTask {
	task := &core.IngestionTask{
		Id:        uuid.NewString(),
		Filename:  filename,
		SizeBytes: sizeBytes,
		ScopeId:   scopeID,
		Status:    core.TaskQueued,
		Message:   "queued for ingestion",
		StartedAt: time.Now().UTC(),
	}
	r.records.Store(task.Id, task)
	r.logger.Debug("task created", "taskID", task.Id, "scopeID", scopeID, "filename", filename)

	snapshot := *task
	return &snapshot
}

// Claim atomically transitions a task from queued to processing. Returns
// false if the task doesn't exist or was already claimed, guaranteeing at
// most one worker processes a task.
func (r *Registry) Claim(taskID string) bool {
	for {
		value, ok := r.records.Load(taskID)
		if !ok {
			return false
		}
		current := value.(*core.IngestionTask)
		if current.Status != core.TaskQueued {
			return false
		}

		next := *current
		next.Status = core.TaskProcessing
		next.Message = "processing"
		if r.records.CompareAndSwap(taskID, current, &next) {
			return true
		}
		// Lost the race; re-read and re-check.
	}
}

// Complete transitions a processing task to complete with the committed
// document id.
func (r *Registry) Complete(taskID string, documentID core.ID) error {
	return r.finish(taskID, core.TaskComplete, documentID, "ingestion complete")
}

// Fail transitions a processing task to failed with a human-readable reason.
// Failed is the terminal state for recoverable business conditions.
func (r *Registry) Fail(taskID, reason string) error {
	return r.finish(taskID, core.TaskFailed, 0, reason)
}

// Error transitions a processing task to error with a human-readable reason.
// Error is the terminal state for unexpected faults.
func (r *Registry) Error(taskID, reason string) error {
	return r.finish(taskID, core.TaskError, 0, reason)
}

// Get returns a snapshot of the task record. Snapshots of terminal tasks are
// identical across repeated calls. Returns core.ErrNotFound for unknown ids.
func (r *Registry) Get(taskID string) (*core.IngestionTask, error) {
	value, ok := r.records.Load(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: task %q", core.ErrNotFound, taskID)
	}
	snapshot := *value.(*core.IngestionTask)
	return &snapshot, nil
}

// finish applies a terminal transition. Only processing tasks may be
// finished; anything else is an illegal transition.
func (r *Registry) finish(taskID string, status core.TaskStatus, documentID core.ID, message string) error {
	for {
		value, ok := r.records.Load(taskID)
		if !ok {
			return fmt.Errorf("%w: task %q", core.ErrNotFound, taskID)
		}
		current := value.(*core.IngestionTask)
		if current.Status != core.TaskProcessing {
			return fmt.Errorf("%w: task %q is %s, cannot transition to %s",
				core.ErrState, taskID, current.Status, status)
		}

		next := *current
		next.Status = status
		next.Message = message
		next.DocumentId = documentID
		next.CompletedAt = time.Now().UTC()
		if r.records.CompareAndSwap(taskID, current, &next) {
			r.logger.Debug("task finished", "taskID", taskID, "status", status.String())
			return nil
		}
	}
}
