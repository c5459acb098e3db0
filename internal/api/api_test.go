package api

import (
	"bufio"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/quotedash/internal/adapters"
	"github.com/Rajchodisetti/quotedash/internal/watchlist"
)

func newTestServer(t *testing.T) (*Server, *watchlist.Watchlist, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := adapters.NewQuoteClient(adapters.OfflineSource{}, adapters.NewRateLimiter(time.Millisecond),
		adapters.NewSyntheticGenerator(0, rand.NewSource(1)))
	wl := watchlist.New(client, watchlist.Config{})
	s := NewServer(context.Background(), wl, client, Options{
		Heartbeat:      20 * time.Millisecond,
		DetailInterval: time.Hour,
		QuoteWait:      2 * time.Second,
	})
	t.Cleanup(s.Close)
	return s, wl, s.Router()
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestWatchlistEndpoints(t *testing.T) {
	_, wl, r := newTestServer(t)

	w := do(r, http.MethodGet, "/watchlist", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[watchlist.Snapshot](t, w).Entries)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"add", http.MethodPost, "/watchlist", `{"symbol":"aapl"}`, http.StatusCreated},
		{"add second", http.MethodPost, "/watchlist", `{"symbol":"MSFT"}`, http.StatusCreated},
		{"duplicate", http.MethodPost, "/watchlist", `{"symbol":"AAPL"}`, http.StatusConflict},
		{"empty symbol", http.MethodPost, "/watchlist", `{"symbol":"  "}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/watchlist", `{"symbol":`, http.StatusBadRequest},
		{"remove", http.MethodDelete, "/watchlist/msft", "", http.StatusNoContent},
		{"remove absent", http.MethodDelete, "/watchlist/MSFT", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, []string{"AAPL"}, wl.Symbols())
}

func TestRefreshAndStats(t *testing.T) {
	_, wl, r := newTestServer(t)
	require.NoError(t, wl.Add("AAPL"))
	require.NoError(t, wl.Add("ZZZZ"))

	w := do(r, http.MethodPost, "/watchlist/refresh", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	wl.Wait()

	snap := decode[watchlist.Snapshot](t, do(r, http.MethodGet, "/watchlist", ""))
	require.Len(t, snap.Entries, 2)

	aapl, bad := snap.Entries[0], snap.Entries[1]
	assert.Equal(t, watchlist.Idle, aapl.State)
	require.NotNil(t, aapl.Quote)
	assert.Equal(t, adapters.SourceSynthetic, aapl.Quote.Source)
	require.NotNil(t, aapl.Analysis)

	assert.Equal(t, watchlist.Failed, bad.State)
	assert.Nil(t, bad.Quote)
	assert.Equal(t, "symbol_not_found", bad.Reason)

	st := decode[watchlist.Stats](t, do(r, http.MethodGet, "/stats", ""))
	assert.True(t, st.TotalValue.Equal(aapl.Quote.Price))
	assert.Equal(t, 1, st.GainerCount+st.LoserCount+boolInt(aapl.Quote.Change.IsZero()))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func TestAutoRefreshToggle(t *testing.T) {
	_, wl, r := newTestServer(t)

	w := do(r, http.MethodPut, "/watchlist/auto-refresh", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"auto_refresh":false}`, w.Body.String())
	assert.False(t, wl.AutoRefresh())

	w = do(r, http.MethodPut, "/watchlist/auto-refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, wl.AutoRefresh())
}

func TestQuoteDetail(t *testing.T) {
	s, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/quotes/aapl", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entry := decode[watchlist.Entry](t, w)
	assert.Equal(t, "AAPL", entry.Symbol)
	require.NotNil(t, entry.Quote)
	assert.Equal(t, "175.43", entry.Quote.PreviousClose.String())

	w = do(r, http.MethodGet, "/quotes/AAPL/analysis", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Symbol   string             `json:"symbol"`
		Name     string             `json:"name"`
		Analysis watchlist.Analysis `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Apple Inc.", got.Name)
	assert.Contains(t, []string{watchlist.Bullish, watchlist.Bearish}, got.Analysis.Direction)
	assert.Equal(t, "24H", got.Analysis.Timeframe)

	// one view per symbol, reused across requests
	assert.Equal(t, []string{"AAPL"}, s.details.Active())

	w = do(r, http.MethodGet, "/quotes/ZZZZ", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "symbol_not_found", decode[ErrorResponse](t, w).Reason)
}

func TestDetailViews_ReapIdle(t *testing.T) {
	s, _, r := newTestServer(t)
	clock := time.Now()
	s.details.now = func() time.Time { return clock }

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/quotes/MSFT", "").Code)
	clock = clock.Add(s.opts.DetailIdle + time.Second)
	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/quotes/NVDA", "").Code)

	assert.Equal(t, []string{"NVDA"}, s.details.Active())
}

func TestChart(t *testing.T) {
	_, _, r := newTestServer(t)

	for tf, n := range map[string]int{"1D": 24, "1W": 7, "1M": 30} {
		w := do(r, http.MethodGet, "/chart/aapl?timeframe="+tf, "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[ChartResponse](t, w)
		assert.Equal(t, "AAPL", resp.Symbol)
		assert.Len(t, resp.Points, n, tf)
	}

	w := do(r, http.MethodGet, "/chart/AAPL", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ChartResponse](t, w).Points, 24)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/chart/AAPL?timeframe=10Y", "").Code)
}

func TestSearch(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/search?q=aa", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Results []adapters.SearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "AAPL", resp.Results[0].Symbol)
	assert.Equal(t, "Apple Inc.", resp.Results[0].Name)
}

func TestHealthAndMetrics(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status"`)

	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"counters"`)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestStream(t *testing.T) {
	_, wl, r := newTestServer(t)
	require.NoError(t, wl.Add("AAPL"))

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var (
		sawEvent bool
		snap     watchlist.Snapshot
	)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event:") {
			sawEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:")) == "snapshot"
			continue
		}
		if sawEvent && strings.HasPrefix(line, "data:") {
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &snap))
			break
		}
	}
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "AAPL", snap.Entries[0].Symbol)
}
