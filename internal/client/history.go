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

const (
	historyPath = "/api/v1/history"

	defaultNewsLimit = 20
)

// HistoryFilter narrows ListHistory. Zero values are not sent.
type HistoryFilter struct {
	StockCode string
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
	Page      int    `validate:"gte=0"`
	Limit     int    `validate:"gte=0,lte=100"`
}

// HistoryItem is one stored analysis report.
type HistoryItem struct {
	QueryID         string         `json:"queryId"`
	StockCode       string         `json:"stockCode"`
	StockName       string         `json:"stockName,omitempty"`
	ReportType      string         `json:"reportType,omitempty"`
	SentimentScore  *float64       `json:"sentimentScore,omitempty"`
	OperationAdvice string         `json:"operationAdvice,omitempty"`
	CreatedAt       task.Timestamp `json:"createdAt"`
}

// HistoryPage is one page of stored reports, newest first.
type HistoryPage struct {
	Items      []HistoryItem `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// NewsItem is one news article gathered for a report.
type NewsItem struct {
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	URL           string `json:"url"`
	Source        string `json:"source,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// NewsIntel is the news behind a stored report.
type NewsIntel struct {
	Items []NewsItem `json:"items"`
	Total int        `json:"total"`
}

// ListHistory pages through stored analysis reports.
func (c *Client) ListHistory(ctx context.Context, filter HistoryFilter) (*HistoryPage, error) {
	if err := validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	query := url.Values{}
	if code := strings.TrimSpace(filter.StockCode); code != "" {
		query.Set("stock_code", code)
	}
	if filter.StartDate != "" {
		query.Set("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		query.Set("end_date", filter.EndDate)
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	var page HistoryPage
	if err := c.do(ctx, http.MethodGet, historyPath, query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// HistoryDetail returns the full stored report.
func (c *Client) HistoryDetail(ctx context.Context, queryID string) (*AnalysisReport, error) {
	if queryID == "" {
		return nil, fmt.Errorf("%w: query id cannot be empty", ErrInvalidRequest)
	}

	var report AnalysisReport
	if err := c.do(ctx, http.MethodGet, historyPath+"/"+url.PathEscape(queryID), nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// HistoryNews returns up to limit news items behind a stored report. A
// non-positive limit asks for the server's usual 20.
func (c *Client) HistoryNews(ctx context.Context, queryID string, limit int) (*NewsIntel, error) {
	if queryID == "" {
		return nil, fmt.Errorf("%w: query id cannot be empty", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = defaultNewsLimit
	}

	path := historyPath + "/" + url.PathEscape(queryID) + "/news"
	var news NewsIntel
	if err := c.do(ctx, http.MethodGet, path, url.Values{"limit": {strconv.Itoa(limit)}}, nil, &news); err != nil {
		return nil, err
	}
	return &news, nil
}
