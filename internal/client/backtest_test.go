package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktest_RunResultsAndPerformance(t *testing.T) {
	c, ts := newTestClient(t)
	ctx := context.Background()

	metrics, err := c.BacktestPerformance(ctx, "", 0)
	require.NoError(t, err, "no data yet is not an error")
	assert.Nil(t, metrics)

	completeAnalysis(t, ts, "600519")
	completeAnalysis(t, ts, "AAPL")
	completeAnalysis(t, ts, "000001")

	summary, err := c.RunBacktest(ctx, BacktestRun{})
	require.NoError(t, err)
	assert.Equal(t, BacktestSummary{Evaluated: 3, Total: 3}, *summary)

	summary, err = c.RunBacktest(ctx, BacktestRun{})
	require.NoError(t, err)
	assert.Equal(t, BacktestSummary{Skipped: 3, Total: 3}, *summary, "evaluated reports are skipped")

	summary, err = c.RunBacktest(ctx, BacktestRun{Code: "AAPL", Force: true})
	require.NoError(t, err)
	assert.Equal(t, BacktestSummary{Evaluated: 1, Total: 1}, *summary)
	assert.Equal(t, 3, ts.Backtests())

	page, err := c.BacktestResults(ctx, BacktestFilter{Code: "AAPL"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	res := page.Items[0]
	assert.Equal(t, "AAPL", res.Code)
	assert.Equal(t, 10, res.EvalWindowDays)
	assert.Equal(t, OutcomeLoss, res.Outcome)
	require.NotNil(t, res.StockReturnPct)
	assert.Equal(t, -4.0, *res.StockReturnPct)
	require.NotNil(t, res.DirectionCorrect)
	assert.False(t, *res.DirectionCorrect)
	assert.NotZero(t, res.AnalysisHistoryID)
	require.NotNil(t, res.EvaluatedAt)

	page, err = c.BacktestResults(ctx, BacktestFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	metrics, err = c.BacktestPerformance(ctx, "", 0)
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.Equal(t, "overall", metrics.Scope)
	assert.Equal(t, 3, metrics.TotalEvaluations)
	assert.Equal(t, 2, metrics.WinCount)
	assert.Equal(t, 1, metrics.LossCount)
	require.NotNil(t, metrics.WinRatePct)
	assert.InDelta(t, 66.67, *metrics.WinRatePct, 0.001)

	metrics, err = c.BacktestPerformance(ctx, "600519", 10)
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.Equal(t, "stock", metrics.Scope)
	assert.Equal(t, "600519", metrics.Code)
	assert.Equal(t, 1, metrics.WinCount)

	metrics, err = c.BacktestPerformance(ctx, "", 20)
	require.NoError(t, err)
	assert.Nil(t, metrics, "no evaluations for that window")
}

func TestRunBacktest_WireFormat(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"evaluated":0,"skipped":0,"failed":0,"total":0}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.APIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, logger.Discard())
	require.NoError(t, err)

	_, err = c.RunBacktest(context.Background(), BacktestRun{Code: " 600519 ", EvalWindowDays: 5, MinAgeDays: 14})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"code":             "600519",
		"eval_window_days": float64(5),
		"min_age_days":     float64(14),
	}, <-bodies)
}

func TestBacktestPerformance_OtherErrorsPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":{"error":"internal","message":"boom"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.APIConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, logger.Discard())
	require.NoError(t, err)

	metrics, err := c.BacktestPerformance(context.Background(), "600519", 0)
	assert.Nil(t, metrics)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
}

func TestBacktest_Validation(t *testing.T) {
	c, ts := newTestClient(t)
	ctx := context.Background()

	_, err := c.RunBacktest(ctx, BacktestRun{EvalWindowDays: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = c.BacktestResults(ctx, BacktestFilter{Limit: 500})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = c.BacktestPerformance(ctx, "", -3)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, ts.Backtests())
}
