package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tickerwatch/internal/platform/jsoncase"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
	"github.com/phrazzld/tickerwatch/internal/task"
)

// Errors returned by Dispatch. Neither is fatal to a subscription.
var (
	// ErrNotLifecycle is returned for event types that are not routed to a Handler.
	ErrNotLifecycle = errors.New("event is not a task lifecycle event")
	// ErrMalformedPayload is returned when a lifecycle payload cannot be decoded
	// into a valid task.
	ErrMalformedPayload = errors.New("malformed task payload")
)

// Dispatcher decodes lifecycle payloads and routes each one to exactly one
// method of its Handler. It holds no state beyond the handler, so one
// Dispatcher may serve any number of subscriptions in sequence.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher routing to h. A nil h drops every event.
func NewDispatcher(h Handler, log *slog.Logger) *Dispatcher {
	if h == nil {
		h = HandlerFuncs{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{
		handler: h,
		logger:  log.With("component", "event_dispatcher"),
	}
}

// Dispatch decodes data as a task and invokes the Handler method matching
// eventType. Nothing is invoked when an error is returned.
func (d *Dispatcher) Dispatch(eventType Type, data []byte) error {
	if !eventType.IsLifecycle() {
		return fmt.Errorf("%w: %q", ErrNotLifecycle, eventType)
	}

	t, err := Decode(data)
	if err != nil {
		return err
	}

	d.logger.Debug("dispatching task event",
		"event_type", eventType,
		"task_id", t.TaskID,
		"status", t.Status)

	switch eventType {
	case TaskCreated:
		d.handler.OnTaskCreated(t)
	case TaskStarted:
		d.handler.OnTaskStarted(t)
	case TaskCompleted:
		d.handler.OnTaskCompleted(t)
	case TaskFailed:
		d.handler.OnTaskFailed(t)
	}
	return nil
}

// Decode parses a task payload as sent on the stream. Keys are normalized to
// camelCase first, so both snake_case and camelCase payloads are accepted.
// A payload without a task id or with an unknown status is malformed; an
// absent status is left empty for the handler to infer from the event type.
func Decode(data []byte) (task.Task, error) {
	normalized, err := jsoncase.Normalize(data)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var t task.Task
	if err := json.Unmarshal(normalized, &t); err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := t.Validate(); err != nil {
		return task.Task{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return t, nil
}
