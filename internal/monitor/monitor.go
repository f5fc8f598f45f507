package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tickerwatch/internal/client"
	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/events"
	"github.com/phrazzld/tickerwatch/internal/redact"
	"github.com/phrazzld/tickerwatch/internal/stream"
	"github.com/phrazzld/tickerwatch/internal/task"
)

// API is the subset of the analysis server the Monitor needs.
// *client.Client implements it.
type API interface {
	SubmitAnalysis(ctx context.Context, req client.AnalysisRequest) (*client.AnalysisAccepted, error)
	TaskStatus(ctx context.Context, taskID string) (*client.TaskStatusReport, error)
	ListTasks(ctx context.Context, filter client.TaskFilter) (*client.TaskList, error)
	TaskStreamURL() string
}

var _ API = (*client.Client)(nil)

// pollTimeout bounds background status and list polls.
const pollTimeout = 30 * time.Second

// Option customizes a Monitor.
type Option func(*options)

type options struct {
	handler       events.Handler
	observer      stream.Observer
	streamOptions []stream.Option
}

// WithHandler forwards every lifecycle event to h after it has been folded
// into the Monitor's registry.
func WithHandler(h events.Handler) Option {
	return func(o *options) { o.handler = h }
}

// WithObserver forwards connectivity changes to o.
func WithObserver(o stream.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithStreamOptions passes options through to the stream connector.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) { o.streamOptions = append(o.streamOptions, opts...) }
}

// Monitor keeps a live, consistent view of analysis tasks. It owns a task
// registry fed by the event stream, by its own submissions and by
// reconciliation polls.
type Monitor struct {
	api       API
	registry  *task.Registry
	conn      *stream.Connector
	observer  stream.Observer
	reconcile bool
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Monitor. Nothing is connected until Start.
func New(api API, cfg config.StreamConfig, logger *slog.Logger, opts ...Option) (*Monitor, error) {
	if api == nil {
		return nil, errors.New("api cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		api:       api,
		registry:  task.NewRegistry(logger),
		observer:  o.observer,
		reconcile: cfg.ReconcileOnConnect,
		logger:    logger.With("component", "task_monitor"),
		ctx:       ctx,
		cancel:    cancel,
	}
	if m.observer == nil {
		m.observer = stream.ObserverFuncs{}
	}

	handler := events.Multi{m.registry}
	if o.handler != nil {
		handler = append(handler, o.handler)
	}
	dispatcher := events.NewDispatcher(handler, logger)

	streamOpts := append([]stream.Option{
		stream.WithObserver(stream.ObserverFuncs{
			Connected: m.onConnected,
			Error:     m.observer.OnError,
		}),
		stream.WithLogger(logger),
	}, o.streamOptions...)
	m.conn = stream.New(api.TaskStreamURL(), dispatcher, stream.OptionsFromConfig(cfg), streamOpts...)

	return m, nil
}

// Start subscribes to the task stream for as long as ctx is alive.
func (m *Monitor) Start(ctx context.Context) {
	m.conn.Start(ctx)
}

// Submit submits an analysis. An accepted task is added to the registry as
// pending right away. On conflict the *client.DuplicateTaskError is returned
// unchanged and the existing task is refreshed in the background.
func (m *Monitor) Submit(ctx context.Context, req client.AnalysisRequest) (*client.AnalysisAccepted, error) {
	accepted, err := m.api.SubmitAnalysis(ctx, req)
	if err != nil {
		var dup *client.DuplicateTaskError
		if errors.As(err, &dup) && dup.ExistingTaskID != "" {
			m.background(func(ctx context.Context) {
				if _, err := m.refresh(ctx, dup.ExistingTaskID, dup.StockCode); err != nil {
					m.logger.Warn("failed to refresh existing task",
						"task_id", dup.ExistingTaskID,
						"error", redact.Error(err))
				}
			})
		}
		return nil, err
	}

	// the stream may already have delivered task_created
	if _, known := m.registry.Get(accepted.TaskID); !known {
		m.registry.Apply(task.Task{
			TaskID:     accepted.TaskID,
			StockCode:  req.StockCode,
			Status:     task.StatusPending,
			Message:    accepted.Message,
			ReportType: string(req.ReportType),
			CreatedAt:  task.NewTimestamp(time.Now().UTC()),
		}, task.StatusPending)
	}
	return accepted, nil
}

// Refresh polls one task and folds the result into the registry.
func (m *Monitor) Refresh(ctx context.Context, taskID string) (*client.TaskStatusReport, error) {
	return m.refresh(ctx, taskID, "")
}

func (m *Monitor) refresh(ctx context.Context, taskID, stockCode string) (*client.TaskStatusReport, error) {
	report, err := m.api.TaskStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !m.registry.ApplyStatus(taskID, stockCode, report.Status, report.Progress, report.Message) {
		m.logger.Debug("ignored status poll result",
			"task_id", taskID,
			"status", report.Status)
	}
	return report, nil
}

// Reconcile fetches the server's task list and folds it into the registry.
// It returns how many tasks changed.
func (m *Monitor) Reconcile(ctx context.Context) (int, error) {
	list, err := m.api.ListTasks(ctx, client.TaskFilter{})
	if err != nil {
		return 0, err
	}
	changed := m.registry.Reconcile(list.Tasks)
	m.logger.Debug("reconciled tasks",
		"server_total", list.Total,
		"changed", changed)
	return changed, nil
}

func (m *Monitor) onConnected() {
	if m.reconcile {
		m.background(func(ctx context.Context) {
			if _, err := m.Reconcile(ctx); err != nil {
				m.logger.Warn("reconciliation poll failed", "error", redact.Error(err))
			}
		})
	}
	m.observer.OnConnected()
}

// background runs f on its own goroutine with a bounded context derived
// from the Monitor's lifetime.
func (m *Monitor) background(f func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(m.ctx, pollTimeout)
		defer cancel()
		f(ctx)
	}()
}

// Tasks returns every known task, newest first.
func (m *Monitor) Tasks() []task.Task {
	return m.registry.List()
}

// Task returns the known projection of one task.
func (m *Monitor) Task(taskID string) (task.Task, bool) {
	return m.registry.Get(taskID)
}

// Counts summarizes known tasks by status.
func (m *Monitor) Counts() task.Counts {
	return m.registry.Counts()
}

// Connected reports whether the stream is live.
func (m *Monitor) Connected() bool {
	return m.conn.Connected()
}

// State returns the stream connectivity state.
func (m *Monitor) State() stream.State {
	return m.conn.State()
}

// Reconnect resumes the stream after Disconnect or a failure.
func (m *Monitor) Reconnect() {
	m.conn.Reconnect()
}

// Disconnect stops the stream. Background polls already running finish.
func (m *Monitor) Disconnect() {
	m.conn.Disconnect()
}

// Close disconnects, cancels background polls and waits for them to return.
func (m *Monitor) Close() {
	m.conn.Disconnect()
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}
