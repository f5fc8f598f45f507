package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// maxFrameLine bounds a single SSE line. Task payloads are small, but a
// failed task can carry a long error message.
const maxFrameLine = 256 * 1024

// Frame is one server-sent event.
type Frame struct {
	Event string
	Data  string
	ID    string
}

// readFrames parses the text/event-stream format from r and calls emit for
// every complete frame. Frames without an event field are named "message".
// A frame containing a line longer than maxFrameLine is discarded whole and
// reported to dropped (which may be nil); parsing resumes with the next
// frame. readFrames returns nil when r reaches EOF and the read error
// otherwise; a trailing frame not terminated by a blank line is discarded.
func readFrames(r io.Reader, emit func(Frame), dropped func(event string)) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		event    string
		id       string
		data     strings.Builder
		hasData  bool
		oversize bool
	)

	reset := func() {
		event = ""
		data.Reset()
		hasData = false
		oversize = false
	}

	flush := func() {
		defer reset()
		if oversize {
			if dropped != nil {
				dropped(event)
			}
			return
		}
		if !hasData && event == "" {
			return
		}
		name := event
		if name == "" {
			name = "message"
		}
		emit(Frame{Event: name, Data: data.String(), ID: id})
	}

	for {
		line, tooLong, err := readLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if tooLong {
			oversize = true
			continue
		}

		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, ":") {
			// comment, used by some servers as a keep-alive
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			id = value
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxFrameLine is consumed to its end and reported as tooLong with no
// content. A final line without a terminator is returned with io.EOF and is
// therefore never part of an emitted frame.
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxFrameLine+2 {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		if tooLong {
			return "", true, nil
		}
		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		return string(buf), false, nil
	}
}
