package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/tickerwatch/internal/analysistest"
	"github.com/phrazzld/tickerwatch/internal/config"
	"github.com/phrazzld/tickerwatch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a time source tests move by hand.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newClockedClient(t *testing.T, clock *manualClock) (*Client, *analysistest.TestServer) {
	t.Helper()
	ts := analysistest.NewTestServer(t, analysistest.WithClock(clock.Now))
	c, err := New(config.APIConfig{BaseURL: ts.URL, Timeout: 5 * time.Second}, logger.Discard())
	require.NoError(t, err)
	return c, ts
}

// completeAnalysis seeds a finished analysis and returns its query id.
func completeAnalysis(t *testing.T, ts *analysistest.TestServer, stockCode string) string {
	t.Helper()
	id := ts.AddTask(stockCode, "pending")
	require.NoError(t, ts.StartTask(id))
	require.NoError(t, ts.CompleteTask(id))
	return id
}

func TestListHistory(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
	c, ts := newClockedClient(t, clock)
	ctx := context.Background()

	first := completeAnalysis(t, ts, "600519")
	clock.Set(time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC))
	second := completeAnalysis(t, ts, "000001")
	third := completeAnalysis(t, ts, "600519")
	require.NoError(t, ts.CompleteTask(third), "completing twice stores one report")

	page, err := c.ListHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Items, 3)
	assert.Equal(t, third, page.Items[0].QueryID, "newest first")
	assert.Equal(t, "Kweichow Moutai", page.Items[0].StockName)
	assert.Equal(t, "hold", page.Items[0].OperationAdvice)
	require.NotNil(t, page.Items[0].SentimentScore)
	assert.Equal(t, 62.0, *page.Items[0].SentimentScore)
	assert.Equal(t, 2024, page.Items[0].CreatedAt.Year())

	page, err = c.ListHistory(ctx, HistoryFilter{StockCode: "600519"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = c.ListHistory(ctx, HistoryFilter{StartDate: "2024-05-02"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, second, page.Items[1].QueryID)

	page, err = c.ListHistory(ctx, HistoryFilter{EndDate: "2024-05-01"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first, page.Items[0].QueryID)

	page, err = c.ListHistory(ctx, HistoryFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, first, page.Items[0].QueryID)
}

func TestListHistory_Validation(t *testing.T) {
	c, ts := newTestClient(t)

	tests := []struct {
		name   string
		filter HistoryFilter
	}{
		{name: "bad start date", filter: HistoryFilter{StartDate: "01/05/2024"}},
		{name: "bad end date", filter: HistoryFilter{EndDate: "2024-13-01"}},
		{name: "negative page", filter: HistoryFilter{Page: -1}},
		{name: "limit too large", filter: HistoryFilter{Limit: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ListHistory(context.Background(), tt.filter)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Empty(t, ts.History())
}

func TestHistoryDetail(t *testing.T) {
	c, ts := newTestClient(t)
	ctx := context.Background()
	id := completeAnalysis(t, ts, "600519")

	report, err := c.HistoryDetail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, report.Meta.QueryID)
	assert.Equal(t, "600519", report.Meta.StockCode)
	assert.Equal(t, "hold", report.Summary.OperationAdvice)
	require.NotNil(t, report.Strategy)
	assert.Equal(t, "1580", report.Strategy.StopLoss)

	_, err = c.HistoryDetail(ctx, "missing")
	assert.True(t, IsNotFound(err))

	_, err = c.HistoryDetail(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestHistoryNews(t *testing.T) {
	c, ts := newTestClient(t)
	ctx := context.Background()
	id := completeAnalysis(t, ts, "AAPL")

	news, err := c.HistoryNews(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, news.Total)
	require.Len(t, news.Items, 3)
	assert.Equal(t, "AAPL headline 1", news.Items[0].Title)
	assert.Equal(t, "https://news.example.com/AAPL/1", news.Items[0].URL)
	assert.NotEmpty(t, news.Items[0].PublishedDate)

	news, err = c.HistoryNews(ctx, id, 2)
	require.NoError(t, err)
	assert.Len(t, news.Items, 2)

	_, err = c.HistoryNews(ctx, "missing", 5)
	assert.True(t, IsNotFound(err))
}
