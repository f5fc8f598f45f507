package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// rank orders statuses along the lifecycle. Completed and failed share the
// terminal rank: neither may follow the other.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the four lifecycle statuses.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// IsTerminal reports whether s is completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether a task in status s may be observed in
// status next. Transitions only move forward along
// pending → processing → {completed|failed}; staying put is allowed so
// progress updates and duplicate deliveries apply cleanly.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.IsTerminal() {
		return s == next
	}
	return next.rank() >= s.rank()
}

// ReportType selects how much detail the analysis report carries.
type ReportType string

// Report types accepted by the server.
const (
	ReportSimple   ReportType = "simple"
	ReportDetailed ReportType = "detailed"
)

// Task is the client-side projection of a server-tracked analysis job.
// The server owns the task; the client only folds events and polls into it.
type Task struct {
	TaskID      string     `json:"taskId" validate:"required"`
	StockCode   string     `json:"stockCode"`
	StockName   string     `json:"stockName,omitempty"`
	Status      Status     `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
	Progress    int        `json:"progress" validate:"gte=0,lte=100"`
	Message     string     `json:"message,omitempty"`
	ReportType  string     `json:"reportType,omitempty"`
	CreatedAt   Timestamp  `json:"createdAt"`
	StartedAt   *Timestamp `json:"startedAt,omitempty"`
	CompletedAt *Timestamp `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

var validate = validator.New()

// Validate checks that the task carries an identity and a known status.
func (t Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid task %q: %w", t.TaskID, err)
	}
	return nil
}

// Timestamp is a time.Time that also accepts the offset-less ISO 8601 form
// the analysis server emits (e.g. "2024-05-01T09:30:00.123456"). Such values
// are interpreted as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler. null and "" leave the zero time.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		ts.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler. The zero time encodes as null.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + ts.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}
