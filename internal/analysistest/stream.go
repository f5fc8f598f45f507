package analysistest

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// subscriberBuffer bounds how many frames a slow stream may fall behind
// before frames are dropped for it.
const subscriberBuffer = 256

type frame struct {
	event string
	data  []byte
}

// broadcastLocked pushes payload as event to every open stream.
func (s *Server) broadcastLocked(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode stream event", "event", event, "error", err)
		return
	}
	s.sendLocked(frame{event: event, data: data})
}

func (s *Server) sendLocked(f frame) {
	for id, ch := range s.subscribers {
		select {
		case ch <- f:
		default:
			s.logger.Warn("stream subscriber is behind, dropping frame", "subscriber", id, "event", f.event)
		}
	}
}

// Emit pushes a raw frame to every open stream. data is sent verbatim, so
// tests can inject malformed payloads.
func (s *Server) Emit(event, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(frame{event: event, data: []byte(data)})
}

// Heartbeat pushes a heartbeat frame to every open stream.
func (s *Server) Heartbeat() {
	s.Emit("heartbeat", `{}`)
}

// DropStreams ends every open stream from the server side.
func (s *Server) DropStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

func (s *Server) dropLocked() {
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}

// RejectStreams makes new stream requests fail with status until
// AcceptStreams is called.
func (s *Server) RejectStreams(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectWith = status
}

// AcceptStreams undoes RejectStreams.
func (s *Server) AcceptStreams() {
	s.RejectStreams(0)
}

// StreamOpens returns how many stream requests were received, including
// rejected ones.
func (s *Server) StreamOpens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamOpens
}

// Subscribers returns how many streams are currently open.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Server) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.dropLocked()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, http.StatusInternalServerError, "sse_not_supported", "streaming not supported", nil)
		return
	}

	s.mu.Lock()
	s.streamOpens++
	if s.closed {
		s.mu.Unlock()
		s.respondError(w, r, http.StatusServiceUnavailable, "shutting_down", "server is shutting down", nil)
		return
	}
	if s.rejectWith != 0 {
		status := s.rejectWith
		s.mu.Unlock()
		s.respondError(w, r, status, "stream_unavailable", "stream temporarily unavailable", nil)
		return
	}
	id := s.nextSub
	s.nextSub++
	ch := make(chan frame, subscriberBuffer)
	s.subscribers[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if cur, ok := s.subscribers[id]; ok && cur == ch {
			delete(s.subscribers, id)
		}
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeFrame(w, "connected", []byte(`{"message":"connected to task stream"}`))
	flusher.Flush()
	s.logger.Debug("stream opened", "subscriber", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("stream closed by client", "subscriber", id)
			return
		case f, ok := <-ch:
			if !ok {
				s.logger.Debug("stream dropped by server", "subscriber", id)
				return
			}
			writeFrame(w, f.event, f.data)
			flusher.Flush()
		}
	}
}

// writeFrame writes one SSE frame: event: <type>\ndata: <json>\n\n
func writeFrame(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
