package analysistest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// stockNames is the fake server's whole stock universe.
var stockNames = map[string]string{
	"600519": "Kweichow Moutai",
	"000001": "Ping An Bank",
	"000858": "Wuliangye Yibin",
	"300750": "Contemporary Amperex Technology",
	"AAPL":   "Apple Inc.",
	"00700":  "Tencent Holdings",
}

var stockMarkets = map[string]string{
	"AAPL":  "US",
	"00700": "HK",
}

type watchlistItem struct {
	ID        int64   `json:"id"`
	StockCode string  `json:"stock_code"`
	StockName *string `json:"stock_name"`
	CreatedAt string  `json:"created_at"`
}

type addWatchlistRequest struct {
	StockCode string  `json:"stock_code"`
	StockName *string `json:"stock_name"`
}

type searchResult struct {
	StockCode string `json:"stock_code"`
	StockName string `json:"stock_name"`
	Market    string `json:"market,omitempty"`
}

func (s *Server) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := append([]watchlistItem{}, s.watchlist...)
	s.mu.Unlock()

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "q is required", nil)
		return
	}

	needle := strings.ToLower(q)
	results := []searchResult{}
	for code, name := range stockNames {
		if strings.Contains(strings.ToLower(code), needle) || strings.Contains(strings.ToLower(name), needle) {
			market := stockMarkets[code]
			if market == "" {
				market = "A"
			}
			results = append(results, searchResult{StockCode: code, StockName: name, Market: market})
		}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   q,
		"results": results,
	})
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addWatchlistRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", err.Error(), nil)
		return
	}
	code := strings.TrimSpace(req.StockCode)
	if code == "" {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_code", "stock code cannot be empty", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.watchlist {
		if item.StockCode == code {
			s.respondJSON(w, http.StatusOK, item)
			return
		}
	}

	name := req.StockName
	if name == nil {
		if known, ok := stockNames[code]; ok {
			name = &known
		}
	}
	item := watchlistItem{
		ID:        s.nextWatchID,
		StockCode: code,
		StockName: name,
		CreatedAt: s.stampLocked(),
	}
	s.nextWatchID++
	s.watchlist = append(s.watchlist, item)
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "id must be an integer", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.watchlist {
		if item.ID == id {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
			return
		}
	}
	s.respondError(w, r, http.StatusNotFound, "not_found", "watchlist entry not found", nil)
}
