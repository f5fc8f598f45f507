// Package stream maintains the live task event subscription.
//
// A Connector owns at most one text/event-stream subscription. Connectivity
// frames ("connected", "heartbeat") update its State; task lifecycle frames
// are handed to an events.Dispatcher in the order the transport delivers
// them. A transport error closes the subscription and, when auto-reconnect
// is enabled, schedules exactly one new attempt after a fixed delay.
// Disconnect is terminal until Reconnect.
//
// Events the server emits while no subscription is live are not replayed;
// callers recover them with a task list poll after reconnecting.
package stream
