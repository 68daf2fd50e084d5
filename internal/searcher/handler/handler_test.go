package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
)

type fakeEngine struct {
	mu       sync.Mutex
	calls    map[string]int
	lastMode string
	lastN    int
	results  []ranker.Result
}

func newFakeEngine(n int) *fakeEngine {
	results := make([]ranker.Result, n)
	for i := range results {
		results[i] = ranker.Result{DocID: index.DocID(i + 1), Title: "Doc", Score: float64(n - i)}
	}
	return &fakeEngine{calls: make(map[string]int), results: results}
}

func (f *fakeEngine) record(mode string, limit int) []ranker.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[mode]++
	f.lastMode, f.lastN = mode, limit
	if limit > 0 && limit < len(f.results) {
		return f.results[:limit]
	}
	return f.results
}

func (f *fakeEngine) Search(_ context.Context, _ string) []ranker.Result {
	return f.record("search", 0)
}
func (f *fakeEngine) SearchBody(_ context.Context, _ string, limit int) []ranker.Result {
	return f.record("body", limit)
}
func (f *fakeEngine) SearchTitle(_ context.Context, _ string, limit int) []ranker.Result {
	return f.record("title", limit)
}
func (f *fakeEngine) SearchAnchor(_ context.Context, _ string, limit int) []ranker.Result {
	return f.record("anchor", limit)
}
func (f *fakeEngine) PageRank(ids []index.DocID) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = float64(id) / 10
	}
	return out
}
func (f *fakeEngine) PageViews(ids []index.DocID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id) * 100
	}
	return out
}
func (f *fakeEngine) Tokenizer() *tokenizer.Tokenizer { return tokenizer.Default() }

func newServer(t *testing.T, eng *fakeEngine, opts Options) (*http.ServeMux, *Handler) {
	t.Helper()
	opts.Engine = eng
	h := New(opts)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, h
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSearchReturnsPairs(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	mux, _ := newServer(t, newFakeEngine(2), Options{Metrics: m})
	rec := do(mux, http.MethodGet, "/api/v1/search?q=python+programming", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `[["1","Doc"],["2","Doc"]]` {
		t.Fatalf("body = %s", got)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("search", "miss")); got != 1 {
		t.Errorf("search_queries_total = %v", got)
	}
}

func TestSearchValidation(t *testing.T) {
	eng := newFakeEngine(3)
	mux, _ := newServer(t, eng, Options{})
	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{"missing q", "/api/v1/search", http.StatusBadRequest, ""},
		{"stop words only", "/api/v1/search?q=the+and+of", http.StatusOK, "[]"},
		{"bad limit", "/api/v1/search/body?q=python&limit=zero", http.StatusBadRequest, ""},
		{"negative limit", "/api/v1/search/title?q=python&limit=-1", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodGet, tt.target, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && strings.TrimSpace(rec.Body.String()) != tt.body {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
	if len(eng.calls) != 0 {
		t.Fatalf("engine should not be called, got %v", eng.calls)
	}
}

func TestSingleFieldRoutesPassLimit(t *testing.T) {
	eng := newFakeEngine(50)
	mux, _ := newServer(t, eng, Options{DefaultLimit: 10, MaxResults: 20})
	for _, tt := range []struct {
		target string
		mode   string
		limit  int
	}{
		{"/api/v1/search/body?q=python", "body", 10},
		{"/api/v1/search/title?q=python&limit=5", "title", 5},
		{"/api/v1/search/anchor?q=python&limit=500", "anchor", 20},
	} {
		rec := do(mux, http.MethodGet, tt.target, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.target, rec.Code)
		}
		if eng.lastMode != tt.mode || eng.lastN != tt.limit {
			t.Errorf("%s: engine got mode=%s limit=%d", tt.target, eng.lastMode, eng.lastN)
		}
		var got []ranker.Result
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.limit {
			t.Errorf("%s: %d results", tt.target, len(got))
		}
	}
}

func TestFusedSearchCappedByMaxResults(t *testing.T) {
	mux, _ := newServer(t, newFakeEngine(100), Options{MaxResults: 30})
	rec := do(mux, http.MethodGet, "/api/v1/search?q=python", "")
	var got []ranker.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 30 {
		t.Fatalf("results = %d", len(got))
	}
}

func TestPageRankAndPageViews(t *testing.T) {
	mux, _ := newServer(t, newFakeEngine(0), Options{})
	rec := do(mux, http.MethodPost, "/api/v1/pagerank", "[1, 20]")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[0.1,2]" {
		t.Fatalf("pagerank: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(mux, http.MethodPost, "/api/v1/pageviews", "[3]")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[300]" {
		t.Fatalf("pageviews: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(mux, http.MethodPost, "/api/v1/pageviews", "[]")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty ids: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(mux, http.MethodPost, "/api/v1/pagerank", `{"ids": [1]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("object body: %d", rec.Code)
	}
	rec = do(mux, http.MethodGet, "/api/v1/pagerank", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET pagerank: %d", rec.Code)
	}
}

func TestCacheDisabledRoutes(t *testing.T) {
	mux, _ := newServer(t, newFakeEngine(1), Options{Cache: cache.New(nil, time.Minute, nil)})
	rec := do(mux, http.MethodGet, "/api/v1/cache/stats", "")
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Fatalf("stats = %s", rec.Body.String())
	}
	rec = do(mux, http.MethodPost, "/api/v1/cache/invalidate", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("invalidate = %d", rec.Code)
	}
}

func TestSearchTracksAnalytics(t *testing.T) {
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(agg, 10, 1, time.Hour, nil)
	collector.Start(context.Background())
	mux, _ := newServer(t, newFakeEngine(0), Options{Collector: collector})

	do(mux, http.MethodGet, "/api/v1/search?q=unfindable", "")
	do(mux, http.MethodGet, "/api/v1/search/title?q=unfindable", "")
	collector.Close()

	stats := agg.Stats()
	if stats.TotalSearches != 2 || stats.ZeroResultCount != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByMode["title"] != 1 {
		t.Errorf("by mode = %v", stats.ByMode)
	}
}
