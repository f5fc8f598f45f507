// Package monitor ties submission, the live task stream and polling into a
// single consistent view of analysis tasks.
//
// Stream events are folded into a task.Registry before any application
// handler sees them. Each time the stream reports "connected" the Monitor
// can fetch the full task list and reconcile, so transitions missed while
// the stream was down are not silently lost.
package monitor
