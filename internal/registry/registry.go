// Package registry tracks the lifecycle state of crawl tasks. It is the
// single writer-coordination point between API handlers and the crawl
// loops driving individual tasks.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

type taskState struct {
	snapshot    crawler.TaskSnapshot
	stopRequest bool
}

// Registry holds all known tasks behind a single lock. Tasks are destroyed
// only by process restart; there is no persistence by design.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*taskState
	clock  crawler.Clock
	logger *zap.Logger
}

// New constructs a Registry.
func New(clock crawler.Clock, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tasks:  make(map[string]*taskState),
		clock:  clock,
		logger: logger,
	}
}

// Create inserts a task in running state with progress 0.
func (r *Registry) Create(taskID string, totalPages int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[taskID] = &taskState{
		snapshot: crawler.TaskSnapshot{
			ID:         taskID,
			Status:     crawler.TaskStatusRunning,
			Progress:   0,
			TotalPages: totalPages,
			Message:    "initializing...",
			CreatedAt:  r.clock.Now(),
		},
	}
	r.logger.Info("task created", zap.String("task_id", taskID), zap.Int("total_pages", totalPages))
}

// Get returns a deep-copied snapshot of the task, or ok=false.
func (r *Registry) Get(taskID string) (crawler.TaskSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.tasks[taskID]
	if !ok {
		return crawler.TaskSnapshot{}, false
	}
	return cloneSnapshot(state.snapshot), true
}

// UpdateProgress records a best-effort progress update. Last write wins;
// only the loop driving the task writes here. currentPage 0 leaves the
// stored page untouched.
func (r *Registry) UpdateProgress(taskID string, progress int, message string, currentPage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.tasks[taskID]
	if !ok || state.snapshot.Status.IsTerminal() {
		return
	}
	state.snapshot.Progress = progress
	if message != "" {
		state.snapshot.Message = message
	}
	if currentPage > 0 {
		state.snapshot.CurrentPage = currentPage
	}
}

// Complete transitions the task to completed with its result. A task
// already terminal keeps its state; the attempt is logged and ignored.
func (r *Registry) Complete(taskID string, result *crawler.ResultDocument) {
	r.settle(taskID, crawler.TaskStatusCompleted, result, "")
}

// Fail transitions the task to failed with the captured error text.
// Idempotent like Complete.
func (r *Registry) Fail(taskID string, errText string) {
	r.settle(taskID, crawler.TaskStatusFailed, nil, errText)
}

func (r *Registry) settle(taskID string, status crawler.TaskStatus, result *crawler.ResultDocument, errText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.tasks[taskID]
	if !ok {
		r.logger.Warn("settle for unknown task", zap.String("task_id", taskID))
		return
	}
	if state.snapshot.Status.IsTerminal() {
		r.logger.Warn("terminal transition rejected",
			zap.String("task_id", taskID),
			zap.String("current", string(state.snapshot.Status)),
			zap.String("attempted", string(status)),
		)
		return
	}
	now := r.clock.Now()
	state.snapshot.Status = status
	state.snapshot.CompletedAt = &now
	if status == crawler.TaskStatusCompleted {
		state.snapshot.Progress = 100
		state.snapshot.Message = "crawl completed"
		state.snapshot.Result = result
	} else {
		state.snapshot.Error = errText
	}
	r.logger.Info("task settled", zap.String("task_id", taskID), zap.String("status", string(status)))
}

// AttachResult stores the partial dataset on a stopped task. A stop marks
// the task terminal before the loop has drained, so the records gathered up
// to that point arrive after the fact; they must not be lost. Any other
// state ignores the attach.
func (r *Registry) AttachResult(taskID string, result *crawler.ResultDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.tasks[taskID]
	if !ok || state.snapshot.Status != crawler.TaskStatusStopped || result == nil {
		return
	}
	state.snapshot.Result = result
	state.snapshot.Message = "crawl stopped, partial result kept"
	r.logger.Info("partial result attached",
		zap.String("task_id", taskID),
		zap.Int("records", result.TotalQuestions),
	)
}

// RequestStop raises the stop flag the crawl loop polls between pages and
// marks the task stopped. It acknowledges regardless of whether the loop
// has observed the flag; a task already in another terminal state is left
// untouched.
func (r *Registry) RequestStop(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.tasks[taskID]
	if !ok {
		return false
	}
	state.stopRequest = true
	if !state.snapshot.Status.IsTerminal() {
		now := r.clock.Now()
		state.snapshot.Status = crawler.TaskStatusStopped
		state.snapshot.CompletedAt = &now
		state.snapshot.Message = "stop requested"
	}
	r.logger.Info("task stop requested", zap.String("task_id", taskID))
	return true
}

// StopRequested reports whether a stop has been requested for the task.
func (r *Registry) StopRequested(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.tasks[taskID]
	return ok && state.stopRequest
}

// RunningCount returns the number of tasks not yet terminal.
func (r *Registry) RunningCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, state := range r.tasks {
		if !state.snapshot.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// Handle returns the crawl loop's view of the task.
func (r *Registry) Handle(taskID string) crawler.TaskHandle {
	return &handle{registry: r, taskID: taskID}
}

type handle struct {
	registry *Registry
	taskID   string
}

func (h *handle) Stopped() bool {
	return h.registry.StopRequested(h.taskID)
}

func (h *handle) ReportProgress(progress int, message string, currentPage int) {
	h.registry.UpdateProgress(h.taskID, progress, message, currentPage)
}

// cloneSnapshot detaches the returned snapshot from registry-owned memory.
// The result document is shared read-only: it is immutable once settled.
func cloneSnapshot(s crawler.TaskSnapshot) crawler.TaskSnapshot {
	cp := s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return cp
}
