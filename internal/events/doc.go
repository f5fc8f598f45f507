// Package events routes task lifecycle events from the live stream to the
// rest of the application.
//
// The stream emits named events. Connected and Heartbeat are connectivity
// signals handled by the stream connector itself; task_created,
// task_started, task_completed and task_failed carry a task payload that a
// Dispatcher decodes and hands to exactly one method of a Handler.
//
// Handlers are injected at construction. HandlerFuncs adapts a set of
// optional functions; Multi fans one event out to several handlers.
package events
