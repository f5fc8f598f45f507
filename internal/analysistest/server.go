package analysistest

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
)

// Server is an in-memory analysis server. Tasks only move when the test
// drives them with StartTask, CompleteTask or FailTask; every move is pushed
// to the open streams.
type Server struct {
	router chi.Router
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	tasks       map[string]*wireTask
	order       []string
	subscribers map[int]chan frame
	nextSub     int
	streamOpens int
	rejectWith  int
	submissions int
	closed      bool

	watchlist     []watchlistItem
	nextWatchID   int64
	config        map[string]string
	configVersion int

	history       []historyEntry
	nextHistoryID int64
	backtests     map[backtestKey]backtestResult
	backtestOrder []backtestKey
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server. It implements http.Handler and can be mounted
// anywhere; NewTestServer also starts it.
func New(opts ...Option) *Server {
	s := &Server{
		logger:      logger.Discard(),
		now:         time.Now,
		tasks:       make(map[string]*wireTask),
		subscribers: make(map[int]chan frame),
		nextWatchID: 1,
		config: map[string]string{
			"STOCK_LIST":       "600519,000001",
			"LLM_MODEL":        "default",
			"SCHEDULE_ENABLED": "false",
			"API_TOKEN":        "sk-test-secret",
		},
		configVersion: 1,
		nextHistoryID: 1,
		backtests:     make(map[backtestKey]backtestResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "fake_analysis_server")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analysis", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyze)
			r.Get("/status/{taskID}", s.handleStatus)
			r.Get("/tasks", s.handleTasks)
			r.Get("/tasks/stream", s.handleStream)
		})
		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.handleListWatchlist)
			r.Post("/", s.handleAddWatchlist)
			r.Get("/search", s.handleSearch)
			r.Delete("/{id}", s.handleRemoveWatchlist)
		})
		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleListHistory)
			r.Get("/{queryID}", s.handleHistoryDetail)
			r.Get("/{queryID}/news", s.handleHistoryNews)
		})
		r.Route("/backtest", func(r chi.Router) {
			r.Post("/run", s.handleRunBacktest)
			r.Get("/results", s.handleBacktestResults)
			r.Get("/performance", s.handlePerformance)
			r.Get("/performance/{code}", s.handlePerformance)
		})
		r.Get("/system/config", s.handleGetConfig)
		r.Put("/system/config", s.handleUpdateConfig)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// TestServer is a Server listening on a loopback address.
type TestServer struct {
	*Server
	URL string

	http *httptest.Server
}

// NewTestServer starts a Server and closes it when the test ends. Streams
// are refused and dropped first so Close does not wait on them.
func NewTestServer(t testing.TB, opts ...Option) *TestServer {
	t.Helper()

	s := New(opts...)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.shutdown()
		ts.Close()
	})
	return &TestServer{Server: s, URL: ts.URL, http: ts}
}

// Client returns an HTTP client for the test server.
func (ts *TestServer) Client() *http.Client {
	return ts.http.Client()
}

// Submissions returns how many analyze requests were received, accepted or not.
func (s *Server) Submissions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submissions
}
