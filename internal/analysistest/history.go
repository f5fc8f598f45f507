package analysistest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// historyEntry is a stored report, recorded when a task completes.
type historyEntry struct {
	ID        int64
	Task      wireTask
	CreatedAt time.Time
}

type historyItem struct {
	QueryID         string  `json:"query_id"`
	StockCode       string  `json:"stock_code"`
	StockName       string  `json:"stock_name,omitempty"`
	ReportType      string  `json:"report_type"`
	SentimentScore  float64 `json:"sentiment_score"`
	OperationAdvice string  `json:"operation_advice"`
	CreatedAt       string  `json:"created_at"`
}

type newsItem struct {
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	URL           string `json:"url"`
	Source        string `json:"source,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// newsPerReport is how many news items every stored report carries.
const newsPerReport = 3

func (s *Server) recordHistoryLocked(t wireTask) {
	s.history = append(s.history, historyEntry{
		ID:        s.nextHistoryID,
		Task:      t,
		CreatedAt: s.now().UTC(),
	})
	s.nextHistoryID++
}

// History returns the query ids of every stored report, oldest first.
func (s *Server) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.history))
	for _, e := range s.history {
		ids = append(ids, e.Task.TaskID)
	}
	return ids
}

func (s *Server) historyLocked(queryID string) (historyEntry, bool) {
	for _, e := range s.history {
		if e.Task.TaskID == queryID {
			return e, true
		}
	}
	return historyEntry{}, false
}

// pageParams reads page and limit, defaulting to page 1 of defaultLimit.
func pageParams(r *http.Request, defaultLimit, maxLimit int) (page, limit int, ok bool) {
	page, limit = 1, defaultLimit
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		page = n
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return 0, 0, false
		}
		limit = n
	}
	return page, limit, true
}

// pageBounds returns the slice bounds of page within n items.
func pageBounds(n, page, limit int) (start, end, totalPages int) {
	totalPages = (n + limit - 1) / limit
	start = (page - 1) * limit
	if start > n {
		start = n
	}
	end = start + limit
	if end > n {
		end = n
	}
	return start, end, totalPages
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, ok := pageParams(r, 20, 100)
	if !ok {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "page and limit must be positive", nil)
		return
	}

	var from, to time.Time
	if raw := q.Get("start_date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "start_date must be YYYY-MM-DD", nil)
			return
		}
		from = d
	}
	if raw := q.Get("end_date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "end_date must be YYYY-MM-DD", nil)
			return
		}
		to = d.AddDate(0, 0, 1)
	}
	code := q.Get("stock_code")

	s.mu.Lock()
	var items []historyItem
	for i := len(s.history) - 1; i >= 0; i-- {
		e := s.history[i]
		if code != "" && e.Task.StockCode != code {
			continue
		}
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !e.CreatedAt.Before(to) {
			continue
		}
		items = append(items, historyItem{
			QueryID:         e.Task.TaskID,
			StockCode:       e.Task.StockCode,
			StockName:       e.Task.StockName,
			ReportType:      e.Task.ReportType,
			SentimentScore:  62,
			OperationAdvice: "hold",
			CreatedAt:       e.CreatedAt.Format(serverTimeLayout),
		})
	}
	s.mu.Unlock()

	start, end, totalPages := pageBounds(len(items), page, limit)
	pageItems := append([]historyItem{}, items[start:end]...)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":       pageItems,
		"total":       len(items),
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
	})
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	e, ok := s.historyLocked(chi.URLParam(r, "queryID"))
	s.mu.Unlock()

	if !ok {
		s.respondError(w, r, http.StatusNotFound, "not_found", "report not found", nil)
		return
	}
	s.respondJSON(w, http.StatusOK, reportFor(e.Task))
}

func (s *Server) handleHistoryNews(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			s.respondError(w, r, http.StatusUnprocessableEntity, "invalid_request", "limit must be between 1 and 100", nil)
			return
		}
		limit = n
	}

	s.mu.Lock()
	e, ok := s.historyLocked(chi.URLParam(r, "queryID"))
	s.mu.Unlock()

	if !ok {
		s.respondError(w, r, http.StatusNotFound, "not_found", "report not found", nil)
		return
	}

	items := []newsItem{}
	for i := 1; i <= newsPerReport && i <= limit; i++ {
		items = append(items, newsItem{
			Title:         e.Task.StockCode + " headline " + strconv.Itoa(i),
			Snippet:       "market commentary on " + e.Task.StockCode,
			URL:           "https://news.example.com/" + e.Task.StockCode + "/" + strconv.Itoa(i),
			Source:        "example wire",
			PublishedDate: e.CreatedAt.Format(time.DateOnly),
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}
