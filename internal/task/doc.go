// Package task defines the client-side projection of server-tracked analysis
// tasks and the Registry that folds lifecycle events and status polls into a
// consistent view.
//
// The Registry satisfies the consumer contract of the event stream: creation
// events insert or replace by task id, later lifecycle events update in
// place, unknown ids are inserted, and duplicate delivery is idempotent.
package task
