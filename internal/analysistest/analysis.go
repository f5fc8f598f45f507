package analysistest

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// serverTimeLayout is the offset-less ISO 8601 form the real server emits.
const serverTimeLayout = "2006-01-02T15:04:05.000000"

// Task statuses as they appear on the wire.
const (
	statusPending    = "pending"
	statusProcessing = "processing"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// wireTask is a task in the server's snake_case form.
type wireTask struct {
	TaskID      string  `json:"task_id"`
	StockCode   string  `json:"stock_code"`
	StockName   string  `json:"stock_name,omitempty"`
	Status      string  `json:"status"`
	Progress    int     `json:"progress"`
	Message     string  `json:"message,omitempty"`
	ReportType  string  `json:"report_type"`
	CreatedAt   string  `json:"created_at"`
	StartedAt   *string `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
	Error       string  `json:"error,omitempty"`
}

func (t *wireTask) active() bool {
	return t.Status == statusPending || t.Status == statusProcessing
}

type analyzeRequest struct {
	StockCode    string `json:"stock_code" validate:"required"`
	ReportType   string `json:"report_type" validate:"omitempty,oneof=simple detailed"`
	ForceRefresh bool   `json:"force_refresh"`
	AsyncMode    bool   `json:"async_mode"`
}

// Task returns a snapshot of a task as the server sees it.
func (s *Server) Task(taskID string) (TaskSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return TaskSnapshot{}, false
	}
	return TaskSnapshot{TaskID: t.TaskID, StockCode: t.StockCode, Status: t.Status, Progress: t.Progress}, true
}

// TaskSnapshot is the subset of a task tests usually assert on.
type TaskSnapshot struct {
	TaskID    string
	StockCode string
	Status    string
	Progress  int
}

// AddTask registers a task directly, without a submission and without a
// stream event. It is how tests seed tasks the client has never seen.
func (s *Server) AddTask(stockCode, status string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.newTaskLocked(stockCode, "simple")
	t.Status = status
	return t.TaskID
}

func (s *Server) newTaskLocked(stockCode, reportType string) *wireTask {
	if reportType == "" {
		reportType = "simple"
	}
	t := &wireTask{
		TaskID:     uuid.NewString(),
		StockCode:  stockCode,
		StockName:  stockNames[stockCode],
		Status:     statusPending,
		Message:    "queued",
		ReportType: reportType,
		CreatedAt:  s.stampLocked(),
	}
	s.tasks[t.TaskID] = t
	s.order = append(s.order, t.TaskID)
	return t
}

func (s *Server) stampLocked() string {
	return s.now().UTC().Format(serverTimeLayout)
}

// StartTask moves a pending task to processing and pushes task_started.
func (s *Server) StartTask(taskID string) error {
	return s.transition(taskID, "task_started", func(t *wireTask) {
		stamp := s.stampLocked()
		t.Status = statusProcessing
		t.Progress = 10
		t.Message = "analyzing"
		t.StartedAt = &stamp
	})
}

// CompleteTask moves a task to completed and pushes task_completed.
func (s *Server) CompleteTask(taskID string) error {
	return s.transition(taskID, "task_completed", func(t *wireTask) {
		first := t.Status != statusCompleted
		stamp := s.stampLocked()
		t.Status = statusCompleted
		t.Progress = 100
		t.Message = "analysis complete"
		t.CompletedAt = &stamp
		if first {
			s.recordHistoryLocked(*t)
		}
	})
}

// FailTask moves a task to failed and pushes task_failed.
func (s *Server) FailTask(taskID, reason string) error {
	return s.transition(taskID, "task_failed", func(t *wireTask) {
		stamp := s.stampLocked()
		t.Status = statusFailed
		t.Message = "analysis failed"
		t.Error = reason
		t.CompletedAt = &stamp
	})
}

// SetProgress changes a task's progress without pushing an event; clients
// only see it by polling.
func (s *Server) SetProgress(taskID string, progress int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}
	t.Progress = progress
	t.Message = message
	return nil
}

// SetStatus moves a task to status without pushing an event, as if the
// stream had lost the transition.
func (s *Server) SetStatus(taskID, status string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}
	t.Status = status
	t.Progress = progress
	return nil
}

func (s *Server) transition(taskID, event string, apply func(*wireTask)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}
	apply(t)
	s.broadcastLocked(event, *t)
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", err.Error(), nil)
		return
	}

	s.mu.Lock()
	s.submissions++
	if !req.ForceRefresh {
		for _, id := range s.order {
			if t := s.tasks[id]; t.StockCode == req.StockCode && t.active() {
				s.mu.Unlock()
				s.respondJSON(w, http.StatusConflict, map[string]interface{}{
					"error":      "duplicate_task",
					"message":    fmt.Sprintf("stock %s is already being analyzed", req.StockCode),
					"stock_code": t.StockCode,
					"task_id":    t.TaskID,
				})
				return
			}
		}
	}
	t := s.newTaskLocked(req.StockCode, req.ReportType)
	s.broadcastLocked("task_created", *t)
	s.mu.Unlock()

	s.logger.Info("analysis accepted", "task_id", t.TaskID, "stock_code", t.StockCode)
	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": t.TaskID,
		"status":  statusPending,
		"message": "analysis task accepted",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	s.mu.Lock()
	t, ok := s.tasks[taskID]
	var snapshot wireTask
	if ok {
		snapshot = *t
	}
	s.mu.Unlock()

	if !ok {
		s.respondError(w, r, http.StatusNotFound, "not_found", "task not found", nil)
		return
	}

	body := map[string]interface{}{
		"task_id":  snapshot.TaskID,
		"status":   snapshot.Status,
		"progress": snapshot.Progress,
		"message":  snapshot.Message,
	}
	if snapshot.Status == statusCompleted {
		body["result"] = reportFor(snapshot)
	}
	s.respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "limit must be between 1 and 200", nil)
			return
		}
		limit = n
	}

	s.mu.Lock()
	var tasks []wireTask
	pending, processing := 0, 0
	for i := len(s.order) - 1; i >= 0; i-- {
		t := s.tasks[s.order[i]]
		switch t.Status {
		case statusPending:
			pending++
		case statusProcessing:
			processing++
		}
		if status != "" && t.Status != status {
			continue
		}
		tasks = append(tasks, *t)
	}
	s.mu.Unlock()

	total := len(tasks)
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	if tasks == nil {
		tasks = []wireTask{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":            tasks,
		"processing_count": processing,
		"pending_count":    pending,
		"total":            total,
	})
}

// reportFor fabricates a deterministic report for a completed task.
func reportFor(t wireTask) map[string]interface{} {
	return map[string]interface{}{
		"meta": map[string]interface{}{
			"query_id":    t.TaskID,
			"stock_code":  t.StockCode,
			"stock_name":  t.StockName,
			"report_type": t.ReportType,
			"created_at":  t.CreatedAt,
		},
		"summary": map[string]interface{}{
			"analysis_summary": "steady uptrend on rising volume",
			"operation_advice": "hold",
			"trend_prediction": "sideways to up",
			"sentiment_score":  62,
			"sentiment_label":  "optimistic",
		},
		"strategy": map[string]interface{}{
			"ideal_buy": "1650",
			"stop_loss": "1580",
		},
	}
}

// Tasks returns the ids of every task, oldest first.
func (s *Server) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}
