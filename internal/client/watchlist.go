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

const watchlistPath = "/api/v1/watchlist"

// WatchlistItem is one followed stock.
type WatchlistItem struct {
	ID        int64          `json:"id"`
	StockCode string         `json:"stockCode"`
	StockName string         `json:"stockName,omitempty"`
	CreatedAt task.Timestamp `json:"createdAt"`
}

// Watchlist is the full list of followed stocks.
type Watchlist struct {
	Items []WatchlistItem `json:"items"`
	Total int             `json:"total"`
}

// StockSearchResult is one match of a stock search.
type StockSearchResult struct {
	StockCode string `json:"stockCode"`
	StockName string `json:"stockName"`
	Market    string `json:"market,omitempty"`
}

// StockSearch is the answer to a search query.
type StockSearch struct {
	Query   string              `json:"query"`
	Results []StockSearchResult `json:"results"`
}

type addWatchlistBody struct {
	StockCode string  `json:"stock_code"`
	StockName *string `json:"stock_name"`
}

// ListWatchlist returns every followed stock.
func (c *Client) ListWatchlist(ctx context.Context) (*Watchlist, error) {
	var list Watchlist
	if err := c.do(ctx, http.MethodGet, watchlistPath, nil, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchStocks looks stocks up by code or name fragment.
func (c *Client) SearchStocks(ctx context.Context, q string) (*StockSearch, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: search query cannot be empty", ErrInvalidRequest)
	}

	var result StockSearch
	if err := c.do(ctx, http.MethodGet, watchlistPath+"/search", url.Values{"q": {q}}, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddToWatchlist follows a stock. An empty name is sent as null and left for
// the server to resolve.
func (c *Client) AddToWatchlist(ctx context.Context, stockCode, stockName string) (*WatchlistItem, error) {
	stockCode = strings.TrimSpace(stockCode)
	if stockCode == "" {
		return nil, fmt.Errorf("%w: stock code cannot be empty", ErrInvalidRequest)
	}

	body := addWatchlistBody{StockCode: stockCode}
	if stockName != "" {
		body.StockName = &stockName
	}

	var item WatchlistItem
	if err := c.do(ctx, http.MethodPost, watchlistPath, nil, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveFromWatchlist unfollows the entry with the given id.
func (c *Client) RemoveFromWatchlist(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, watchlistPath+"/"+strconv.FormatInt(id, 10), nil, nil, nil)
}
