package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phrazzld/tickerwatch/internal/task"
)

const backtestPath = "/api/v1/backtest"

// BacktestRun asks the server to evaluate stored advice against later
// prices. Zero values leave the server defaults in place.
type BacktestRun struct {
	Code           string
	Force          bool
	EvalWindowDays int `validate:"gte=0"`
	MinAgeDays     int `validate:"gte=0"`
	Limit          int `validate:"gte=0"`
}

type backtestRunBody struct {
	Code           string `json:"code,omitempty"`
	Force          bool   `json:"force,omitempty"`
	EvalWindowDays int    `json:"eval_window_days,omitempty"`
	MinAgeDays     int    `json:"min_age_days,omitempty"`
	Limit          int    `json:"limit,omitempty"`
}

// BacktestSummary counts what a run did.
type BacktestSummary struct {
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// BacktestFilter narrows BacktestResults. Zero values are not sent.
type BacktestFilter struct {
	Code           string
	EvalWindowDays int `validate:"gte=0"`
	Page           int `validate:"gte=0"`
	Limit          int `validate:"gte=0,lte=200"`
}

// BacktestOutcome is how a piece of advice played out.
type BacktestOutcome string

// Outcomes.
const (
	OutcomeWin     BacktestOutcome = "win"
	OutcomeLoss    BacktestOutcome = "loss"
	OutcomeNeutral BacktestOutcome = "neutral"
)

// BacktestResult is the evaluation of one stored report.
type BacktestResult struct {
	AnalysisHistoryID   int64           `json:"analysisHistoryId"`
	Code                string          `json:"code"`
	AnalysisDate        string          `json:"analysisDate,omitempty"`
	EvalWindowDays      int             `json:"evalWindowDays"`
	EngineVersion       string          `json:"engineVersion"`
	EvalStatus          string          `json:"evalStatus"`
	OperationAdvice     string          `json:"operationAdvice,omitempty"`
	StartPrice          *float64        `json:"startPrice,omitempty"`
	EndClose            *float64        `json:"endClose,omitempty"`
	MaxHigh             *float64        `json:"maxHigh,omitempty"`
	MinLow              *float64        `json:"minLow,omitempty"`
	StockReturnPct      *float64        `json:"stockReturnPct,omitempty"`
	DirectionExpected   string          `json:"directionExpected,omitempty"`
	DirectionCorrect    *bool           `json:"directionCorrect,omitempty"`
	Outcome             BacktestOutcome `json:"outcome,omitempty"`
	StopLoss            *float64        `json:"stopLoss,omitempty"`
	TakeProfit          *float64        `json:"takeProfit,omitempty"`
	HitStopLoss         *bool           `json:"hitStopLoss,omitempty"`
	HitTakeProfit       *bool           `json:"hitTakeProfit,omitempty"`
	SimulatedReturnPct  *float64        `json:"simulatedReturnPct,omitempty"`
	SimulatedExitReason string          `json:"simulatedExitReason,omitempty"`
	EvaluatedAt         *task.Timestamp `json:"evaluatedAt,omitempty"`
}

// BacktestResultPage is one page of evaluations.
type BacktestResultPage struct {
	Items      []BacktestResult `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

// PerformanceMetrics aggregates evaluations overall or for one stock.
type PerformanceMetrics struct {
	Scope                 string   `json:"scope"`
	Code                  string   `json:"code,omitempty"`
	EvalWindowDays        int      `json:"evalWindowDays"`
	EngineVersion         string   `json:"engineVersion"`
	TotalEvaluations      int      `json:"totalEvaluations"`
	CompletedCount        int      `json:"completedCount"`
	InsufficientCount     int      `json:"insufficientCount"`
	WinCount              int      `json:"winCount"`
	LossCount             int      `json:"lossCount"`
	NeutralCount          int      `json:"neutralCount"`
	DirectionAccuracyPct  *float64 `json:"directionAccuracyPct,omitempty"`
	WinRatePct            *float64 `json:"winRatePct,omitempty"`
	AvgStockReturnPct     *float64 `json:"avgStockReturnPct,omitempty"`
	AvgSimulatedReturnPct *float64 `json:"avgSimulatedReturnPct,omitempty"`
}

// RunBacktest evaluates stored reports that are old enough.
func (c *Client) RunBacktest(ctx context.Context, run BacktestRun) (*BacktestSummary, error) {
	if err := validate.Struct(run); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	body := backtestRunBody{
		Code:           strings.TrimSpace(run.Code),
		Force:          run.Force,
		EvalWindowDays: run.EvalWindowDays,
		MinAgeDays:     run.MinAgeDays,
		Limit:          run.Limit,
	}
	var summary BacktestSummary
	if err := c.do(ctx, http.MethodPost, backtestPath+"/run", nil, body, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// BacktestResults pages through stored evaluations.
func (c *Client) BacktestResults(ctx context.Context, filter BacktestFilter) (*BacktestResultPage, error) {
	if err := validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	query := url.Values{}
	if code := strings.TrimSpace(filter.Code); code != "" {
		query.Set("code", code)
	}
	if filter.EvalWindowDays > 0 {
		query.Set("eval_window_days", strconv.Itoa(filter.EvalWindowDays))
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var page BacktestResultPage
	if err := c.do(ctx, http.MethodGet, backtestPath+"/results", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// BacktestPerformance returns aggregated metrics, for one stock when code is
// set and overall otherwise. When the server has nothing evaluated yet it
// answers 404, which is returned as nil metrics and a nil error.
func (c *Client) BacktestPerformance(ctx context.Context, code string, evalWindowDays int) (*PerformanceMetrics, error) {
	if evalWindowDays < 0 {
		return nil, fmt.Errorf("%w: eval window cannot be negative", ErrInvalidRequest)
	}

	path := backtestPath + "/performance"
	if code = strings.TrimSpace(code); code != "" {
		path += "/" + url.PathEscape(code)
	}
	var query url.Values
	if evalWindowDays > 0 {
		query = url.Values{"eval_window_days": {strconv.Itoa(evalWindowDays)}}
	}

	var metrics PerformanceMetrics
	if err := c.do(ctx, http.MethodGet, path, query, nil, &metrics); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &metrics, nil
}
