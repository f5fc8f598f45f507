package events

import (
	"github.com/phrazzld/tickerwatch/internal/task"
)

// Type names an event on the task stream.
type Type string

// Event names emitted by the analysis server.
const (
	// Connected is sent once when the server accepts a subscription.
	Connected Type = "connected"
	// Heartbeat keeps an idle subscription alive. It carries no payload.
	Heartbeat Type = "heartbeat"

	TaskCreated   Type = "task_created"
	TaskStarted   Type = "task_started"
	TaskCompleted Type = "task_completed"
	TaskFailed    Type = "task_failed"
)

// IsLifecycle reports whether t carries a task payload that is routed to a
// Handler. Connected and Heartbeat are connectivity signals only.
func (t Type) IsLifecycle() bool {
	switch t {
	case TaskCreated, TaskStarted, TaskCompleted, TaskFailed:
		return true
	default:
		return false
	}
}

// Handler receives decoded task lifecycle events, one method per event.
// Implementations are called from the stream goroutine and must not block
// for long.
type Handler interface {
	OnTaskCreated(t task.Task)
	OnTaskStarted(t task.Task)
	OnTaskCompleted(t task.Task)
	OnTaskFailed(t task.Task)
}

// HandlerFuncs adapts optional functions to a Handler. A nil field is a
// no-op for that event.
type HandlerFuncs struct {
	Created   func(task.Task)
	Started   func(task.Task)
	Completed func(task.Task)
	Failed    func(task.Task)
}

// OnTaskCreated implements Handler.
func (f HandlerFuncs) OnTaskCreated(t task.Task) {
	if f.Created != nil {
		f.Created(t)
	}
}

// OnTaskStarted implements Handler.
func (f HandlerFuncs) OnTaskStarted(t task.Task) {
	if f.Started != nil {
		f.Started(t)
	}
}

// OnTaskCompleted implements Handler.
func (f HandlerFuncs) OnTaskCompleted(t task.Task) {
	if f.Completed != nil {
		f.Completed(t)
	}
}

// OnTaskFailed implements Handler.
func (f HandlerFuncs) OnTaskFailed(t task.Task) {
	if f.Failed != nil {
		f.Failed(t)
	}
}

// Multi fans every event out to each handler in order. Nil handlers are skipped.
type Multi []Handler

// OnTaskCreated implements Handler.
func (m Multi) OnTaskCreated(t task.Task) {
	for _, h := range m {
		if h != nil {
			h.OnTaskCreated(t)
		}
	}
}

// OnTaskStarted implements Handler.
func (m Multi) OnTaskStarted(t task.Task) {
	for _, h := range m {
		if h != nil {
			h.OnTaskStarted(t)
		}
	}
}

// OnTaskCompleted implements Handler.
func (m Multi) OnTaskCompleted(t task.Task) {
	for _, h := range m {
		if h != nil {
			h.OnTaskCompleted(t)
		}
	}
}

// OnTaskFailed implements Handler.
func (m Multi) OnTaskFailed(t task.Task) {
	for _, h := range m {
		if h != nil {
			h.OnTaskFailed(t)
		}
	}
}

// Ensure the adapters and the registry implement Handler
var (
	_ Handler = HandlerFuncs{}
	_ Handler = Multi(nil)
	_ Handler = (*task.Registry)(nil)
)
