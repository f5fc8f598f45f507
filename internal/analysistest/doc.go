// Package analysistest provides an in-memory analysis server for tests and
// local development.
//
// The server speaks the same REST and event-stream contract as the real
// analysis backend: snake_case JSON bodies, offset-less timestamps, errors
// nested under "detail" (the duplicate-submission answer is flat), and a
// text/event-stream endpoint that opens with a "connected" frame.
//
// Tasks never progress on their own. Tests drive them with StartTask,
// CompleteTask and FailTask, and can disrupt the stream with DropStreams and
// RejectStreams.
package analysistest
