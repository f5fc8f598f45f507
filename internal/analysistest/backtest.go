package analysistest

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	defaultEvalWindow = 10
	engineVersion     = "v1"
	startPrice        = 100.0
)

// priceMoves is the percentage move each stock makes over any evaluation
// window. Stocks not listed rise 5%.
var priceMoves = map[string]float64{
	"AAPL":   -4,
	"000858": 0,
}

type backtestRunRequest struct {
	Code           string `json:"code"`
	Force          bool   `json:"force"`
	EvalWindowDays int    `json:"eval_window_days" validate:"gte=0"`
	MinAgeDays     int    `json:"min_age_days" validate:"gte=0"`
	Limit          int    `json:"limit" validate:"gte=0"`
}

type backtestResult struct {
	AnalysisHistoryID   int64   `json:"analysis_history_id"`
	Code                string  `json:"code"`
	AnalysisDate        string  `json:"analysis_date"`
	EvalWindowDays      int     `json:"eval_window_days"`
	EngineVersion       string  `json:"engine_version"`
	EvalStatus          string  `json:"eval_status"`
	OperationAdvice     string  `json:"operation_advice"`
	StartPrice          float64 `json:"start_price"`
	EndClose            float64 `json:"end_close"`
	StockReturnPct      float64 `json:"stock_return_pct"`
	DirectionExpected   string  `json:"direction_expected"`
	DirectionCorrect    bool    `json:"direction_correct"`
	Outcome             string  `json:"outcome"`
	SimulatedReturnPct  float64 `json:"simulated_return_pct"`
	SimulatedExitReason string  `json:"simulated_exit_reason"`
	EvaluatedAt         string  `json:"evaluated_at"`
}

type backtestKey struct {
	historyID int64
	window    int
}

// Backtests returns how many evaluations are stored.
func (s *Server) Backtests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backtestOrder)
}

func (s *Server) evaluateLocked(e historyEntry, window int) backtestResult {
	move, ok := priceMoves[e.Task.StockCode]
	if !ok {
		move = 5
	}

	outcome := "neutral"
	switch {
	case move > 0:
		outcome = "win"
	case move < 0:
		outcome = "loss"
	}
	return backtestResult{
		AnalysisHistoryID:   e.ID,
		Code:                e.Task.StockCode,
		AnalysisDate:        e.CreatedAt.Format(time.DateOnly),
		EvalWindowDays:      window,
		EngineVersion:       engineVersion,
		EvalStatus:          "completed",
		OperationAdvice:     "hold",
		StartPrice:          startPrice,
		EndClose:            startPrice * (1 + move/100),
		StockReturnPct:      move,
		DirectionExpected:   "up",
		DirectionCorrect:    move > 0,
		Outcome:             outcome,
		SimulatedReturnPct:  move,
		SimulatedExitReason: "window_end",
		EvaluatedAt:         s.stampLocked(),
	}
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRunRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", err.Error(), nil)
		return
	}
	window := req.EvalWindowDays
	if window == 0 {
		window = defaultEvalWindow
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().AddDate(0, 0, -req.MinAgeDays)
	var evaluated, skipped, total int
	for _, e := range s.history {
		if req.Code != "" && e.Task.StockCode != req.Code {
			continue
		}
		total++

		key := backtestKey{historyID: e.ID, window: window}
		_, done := s.backtests[key]
		tooYoung := e.CreatedAt.After(cutoff)
		overLimit := req.Limit > 0 && evaluated >= req.Limit
		if (done && !req.Force) || tooYoung || overLimit {
			skipped++
			continue
		}

		if !done {
			s.backtestOrder = append(s.backtestOrder, key)
		}
		s.backtests[key] = s.evaluateLocked(e, window)
		evaluated++
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"evaluated": evaluated,
		"skipped":   skipped,
		"failed":    0,
		"total":     total,
	})
}

// matchingResultsLocked returns stored evaluations for code (any when
// empty) and window (any when zero), newest first.
func (s *Server) matchingResultsLocked(code string, window int) []backtestResult {
	var out []backtestResult
	for i := len(s.backtestOrder) - 1; i >= 0; i-- {
		res := s.backtests[s.backtestOrder[i]]
		if code != "" && res.Code != code {
			continue
		}
		if window != 0 && res.EvalWindowDays != window {
			continue
		}
		out = append(out, res)
	}
	return out
}

func windowParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("eval_window_days")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleBacktestResults(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pageParams(r, 20, 200)
	window, windowOK := windowParam(r)
	if !ok || !windowOK {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "invalid paging or window", nil)
		return
	}

	s.mu.Lock()
	results := s.matchingResultsLocked(r.URL.Query().Get("code"), window)
	s.mu.Unlock()

	start, end, totalPages := pageBounds(len(results), page, limit)
	items := append([]backtestResult{}, results[start:end]...)
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":       items,
		"total":       len(results),
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	window, ok := windowParam(r)
	if !ok {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "invalid window", nil)
		return
	}
	if window == 0 {
		window = defaultEvalWindow
	}
	code := chi.URLParam(r, "code")

	s.mu.Lock()
	results := s.matchingResultsLocked(code, window)
	s.mu.Unlock()

	if len(results) == 0 {
		s.respondError(w, r, http.StatusNotFound, "not_found", "no backtest data", nil)
		return
	}

	var wins, losses, neutral, correct int
	var sumReturn float64
	for _, res := range results {
		switch res.Outcome {
		case "win":
			wins++
		case "loss":
			losses++
		default:
			neutral++
		}
		if res.DirectionCorrect {
			correct++
		}
		sumReturn += res.StockReturnPct
	}
	n := float64(len(results))
	pct := func(v int) float64 { return math.Round(float64(v)/n*10000) / 100 }

	scope := "overall"
	if code != "" {
		scope = "stock"
	}
	body := map[string]interface{}{
		"scope":                    scope,
		"eval_window_days":         window,
		"engine_version":           engineVersion,
		"total_evaluations":        len(results),
		"completed_count":          len(results),
		"insufficient_count":       0,
		"win_count":                wins,
		"loss_count":               losses,
		"neutral_count":            neutral,
		"direction_accuracy_pct":   pct(correct),
		"win_rate_pct":             pct(wins),
		"avg_stock_return_pct":     sumReturn / n,
		"avg_simulated_return_pct": sumReturn / n,
	}
	if code != "" {
		body["code"] = code
	}
	s.respondJSON(w, http.StatusOK, body)
}
