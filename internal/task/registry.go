package task

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/phrazzld/tickerwatch/internal/platform/logger"
)

// Counts summarizes the registry by status.
type Counts struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Total      int
}

// Registry is the consumer-side view of known tasks. It is safe for
// concurrent use: stream callbacks, status polls and readers may call it
// from different goroutines.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]Task
	seq    map[string]uint64
	next   uint64
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	return &Registry{
		tasks:  make(map[string]Task),
		seq:    make(map[string]uint64),
		logger: log.With("component", "task_registry"),
	}
}

// OnTaskCreated inserts the task or replaces the known one with the same id.
func (r *Registry) OnTaskCreated(t Task) { r.Apply(t, StatusPending) }

// OnTaskStarted updates the task in place, inserting it if unknown.
func (r *Registry) OnTaskStarted(t Task) { r.Apply(t, StatusProcessing) }

// OnTaskCompleted updates the task in place, inserting it if unknown.
func (r *Registry) OnTaskCompleted(t Task) { r.Apply(t, StatusCompleted) }

// OnTaskFailed updates the task in place, inserting it if unknown.
func (r *Registry) OnTaskFailed(t Task) { r.Apply(t, StatusFailed) }

// Apply folds t into the registry. An empty status in t is replaced by
// implied. Updates without a valid lifecycle status, and updates that would
// move a known task backwards along its lifecycle, are ignored and reported
// as false; applying the same update twice leaves the registry unchanged.
func (r *Registry) Apply(t Task, implied Status) bool {
	if t.TaskID == "" {
		return false
	}
	if t.Status == "" {
		t.Status = implied
	}
	if !t.Status.Valid() {
		r.logger.Debug("ignoring task update without a lifecycle status",
			"task_id", t.TaskID,
			"status", t.Status)
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[t.TaskID]
	if !ok {
		r.tasks[t.TaskID] = t
		r.next++
		r.seq[t.TaskID] = r.next
		return true
	}

	// an entry with an unknown status is replaced by any valid one
	if existing.Status.Valid() && !existing.Status.CanTransitionTo(t.Status) {
		r.logger.Debug("ignoring stale task update",
			"task_id", t.TaskID,
			"current_status", existing.Status,
			"incoming_status", t.Status)
		return false
	}

	r.tasks[t.TaskID] = merge(existing, t)
	return true
}

// ApplyStatus folds the result of a single status poll. stockCode may be
// empty when the caller does not know it.
func (r *Registry) ApplyStatus(taskID, stockCode string, status Status, progress int, message string) bool {
	return r.Apply(Task{
		TaskID:    taskID,
		StockCode: stockCode,
		Status:    status,
		Progress:  progress,
		Message:   message,
	}, status)
}

// Reconcile folds a full task list, typically fetched after the stream
// reconnects. It returns how many tasks changed or were inserted.
func (r *Registry) Reconcile(tasks []Task) int {
	applied := 0
	for _, t := range tasks {
		before, known := r.Get(t.TaskID)
		if !r.Apply(t, t.Status) {
			continue
		}
		if after, _ := r.Get(t.TaskID); !known || !equal(before, after) {
			applied++
		}
	}
	return applied
}

// Get returns a copy of the task with the given id.
func (r *Registry) Get(taskID string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskID]
	return t, ok
}

// List returns a copy of all tasks, newest first. Tasks without a creation
// time are ordered by when the registry first saw them.
func (r *Registry) List() []Task {
	r.mu.RLock()
	out := make([]Task, 0, len(r.tasks))
	seq := make(map[string]uint64, len(r.tasks))
	for id, t := range r.tasks {
		out = append(out, t)
		seq[id] = r.seq[id]
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt.Time) {
			return a.CreatedAt.After(b.CreatedAt.Time)
		}
		return seq[a.TaskID] > seq[b.TaskID]
	})
	return out
}

// Counts returns the number of tasks in each status.
func (r *Registry) Counts() Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c Counts
	for _, t := range r.tasks {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusProcessing:
			c.Processing++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		}
		c.Total++
	}
	return c
}

// merge overlays the fields present in next onto prev. Events and polls
// carry partial projections, so empty fields keep the known value.
func merge(prev, next Task) Task {
	out := prev
	out.Status = next.Status
	if next.StockCode != "" {
		out.StockCode = next.StockCode
	}
	if next.StockName != "" {
		out.StockName = next.StockName
	}
	if next.Progress != 0 || next.Status != prev.Status {
		out.Progress = next.Progress
	}
	if next.Message != "" {
		out.Message = next.Message
	}
	if next.ReportType != "" {
		out.ReportType = next.ReportType
	}
	if !next.CreatedAt.IsZero() {
		out.CreatedAt = next.CreatedAt
	}
	if next.StartedAt != nil {
		out.StartedAt = next.StartedAt
	}
	if next.CompletedAt != nil {
		out.CompletedAt = next.CompletedAt
	}
	if next.Error != "" {
		out.Error = next.Error
	}
	return out
}

func equal(a, b Task) bool {
	return a.Status == b.Status &&
		a.StockCode == b.StockCode &&
		a.StockName == b.StockName &&
		a.Progress == b.Progress &&
		a.Message == b.Message &&
		a.ReportType == b.ReportType &&
		a.CreatedAt.Equal(b.CreatedAt.Time) &&
		timeEqual(a.StartedAt, b.StartedAt) &&
		timeEqual(a.CompletedAt, b.CompletedAt) &&
		a.Error == b.Error
}

func timeEqual(a, b *Timestamp) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b.Time)
}
