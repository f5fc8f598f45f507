package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/tickerwatch/internal/task"
)

// Analysis API paths.
const (
	analyzePath    = "/api/v1/analysis/analyze"
	statusPath     = "/api/v1/analysis/status/"
	tasksPath      = "/api/v1/analysis/tasks"
	taskStreamPath = "/api/v1/analysis/tasks/stream"
)

var validate = validator.New()

// AnalysisRequest asks the server to analyze one stock.
type AnalysisRequest struct {
	StockCode    string          `validate:"required"`
	ReportType   task.ReportType `validate:"omitempty,oneof=simple detailed"`
	ForceRefresh bool
}

// analyzeBody is the wire form of AnalysisRequest. Submissions are always
// asynchronous.
type analyzeBody struct {
	StockCode    string          `json:"stock_code"`
	ReportType   task.ReportType `json:"report_type,omitempty"`
	ForceRefresh bool            `json:"force_refresh,omitempty"`
	AsyncMode    bool            `json:"async_mode"`
}

// AnalysisAccepted is the server's answer to an accepted submission.
type AnalysisAccepted struct {
	TaskID  string      `json:"taskId"`
	Status  task.Status `json:"status"`
	Message string      `json:"message"`
}

// TaskStatusReport is the result of polling a single task.
type TaskStatusReport struct {
	TaskID   string          `json:"taskId"`
	Status   task.Status     `json:"status"`
	Progress int             `json:"progress"`
	Message  string          `json:"message,omitempty"`
	Result   *AnalysisReport `json:"result,omitempty"`
}

// TaskFilter narrows ListTasks. Zero values are omitted.
type TaskFilter struct {
	Status task.Status
	Limit  int
}

// TaskList is the server's view of recent tasks.
type TaskList struct {
	Tasks           []task.Task `json:"tasks"`
	ProcessingCount int         `json:"processingCount"`
	PendingCount    int         `json:"pendingCount"`
	Total           int         `json:"total"`
}

// SubmitAnalysis submits req for asynchronous analysis.
//
// A 409 answer is returned as *DuplicateTaskError carrying the id of the task
// that is already running. Every other failure propagates unchanged.
func (c *Client) SubmitAnalysis(ctx context.Context, req AnalysisRequest) (*AnalysisAccepted, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	body := analyzeBody{
		StockCode:    req.StockCode,
		ReportType:   req.ReportType,
		ForceRefresh: req.ForceRefresh,
		AsyncMode:    true,
	}

	var accepted AnalysisAccepted
	err := c.do(ctx, http.MethodPost, analyzePath, nil, body, &accepted)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusConflict {
			dup := duplicateFromBody(httpErr.Body, req.StockCode)
			c.logger.Info("analysis already in progress",
				"stock_code", dup.StockCode,
				"existing_task_id", dup.ExistingTaskID)
			return nil, dup
		}
		return nil, err
	}

	c.logger.Info("analysis submitted",
		"stock_code", req.StockCode,
		"task_id", accepted.TaskID,
		"status", accepted.Status)
	return &accepted, nil
}

// duplicateFromBody builds the conflict error from whatever the server sent,
// falling back to the submitted stock code and a default message.
func duplicateFromBody(raw []byte, stockCode string) *DuplicateTaskError {
	var payload struct {
		TaskID    string `json:"taskId"`
		StockCode string `json:"stockCode"`
		Message   string `json:"message"`
	}
	decodeErrorBody(raw, &payload)

	dup := &DuplicateTaskError{
		StockCode:      payload.StockCode,
		ExistingTaskID: payload.TaskID,
		Message:        payload.Message,
	}
	if dup.StockCode == "" {
		dup.StockCode = stockCode
	}
	if dup.Message == "" {
		dup.Message = DefaultDuplicateMessage
	}
	return dup
}

// TaskStatus polls a single task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskStatusReport, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: task id cannot be empty", ErrInvalidRequest)
	}

	var report TaskStatusReport
	if err := c.do(ctx, http.MethodGet, statusPath+url.PathEscape(taskID), nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListTasks returns recent tasks, optionally filtered.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) (*TaskList, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, filter.Status)
	}
	if filter.Limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", ErrInvalidRequest)
	}

	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var list TaskList
	if err := c.do(ctx, http.MethodGet, tasksPath, query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// TaskStreamURL is the server-push endpoint carrying task lifecycle events.
func (c *Client) TaskStreamURL() string {
	return c.baseURL + taskStreamPath
}
