package client

import (
	"encoding/json"

	"github.com/phrazzld/tickerwatch/internal/task"
)

// SentimentLabel buckets the report's sentiment score.
type SentimentLabel string

// Sentiment labels.
const (
	SentimentFearful    SentimentLabel = "fearful"
	SentimentCautious   SentimentLabel = "cautious"
	SentimentNeutral    SentimentLabel = "neutral"
	SentimentOptimistic SentimentLabel = "optimistic"
	SentimentGreedy     SentimentLabel = "greedy"
)

// AnalysisReport is the result attached to a completed task.
type AnalysisReport struct {
	Meta     ReportMeta      `json:"meta"`
	Summary  ReportSummary   `json:"summary"`
	Strategy *ReportStrategy `json:"strategy,omitempty"`
	Details  *ReportDetails  `json:"details,omitempty"`
}

// ReportMeta identifies the report.
type ReportMeta struct {
	QueryID      string          `json:"queryId"`
	StockCode    string          `json:"stockCode"`
	StockName    string          `json:"stockName"`
	ReportType   task.ReportType `json:"reportType"`
	CreatedAt    task.Timestamp  `json:"createdAt"`
	CurrentPrice *float64        `json:"currentPrice,omitempty"`
	ChangePct    *float64        `json:"changePct,omitempty"`
}

// ReportSummary is the headline of the analysis.
type ReportSummary struct {
	AnalysisSummary string         `json:"analysisSummary"`
	OperationAdvice string         `json:"operationAdvice"`
	TrendPrediction string         `json:"trendPrediction"`
	SentimentScore  float64        `json:"sentimentScore"`
	SentimentLabel  SentimentLabel `json:"sentimentLabel,omitempty"`
}

// ReportStrategy holds suggested price levels.
type ReportStrategy struct {
	IdealBuy     string `json:"idealBuy,omitempty"`
	SecondaryBuy string `json:"secondaryBuy,omitempty"`
	StopLoss     string `json:"stopLoss,omitempty"`
	TakeProfit   string `json:"takeProfit,omitempty"`
}

// ReportDetails carries the raw material behind the report. The nested
// documents are server-defined and kept undecoded.
type ReportDetails struct {
	NewsContent     string          `json:"newsContent,omitempty"`
	RawResult       json.RawMessage `json:"rawResult,omitempty"`
	ContextSnapshot json.RawMessage `json:"contextSnapshot,omitempty"`
}
