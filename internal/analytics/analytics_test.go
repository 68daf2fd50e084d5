package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	cp := make([]kafka.Event, len(events))
	copy(cp, events)
	p.batches = append(p.batches, cp)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesFullBatches(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 3, time.Hour, nil)
	c.Start(context.Background())
	for i := 0; i < 7; i++ {
		c.Track(SearchEvent{Mode: ModeSearch, Query: "python"})
	}
	c.Close()

	if got := pub.count(); got != 7 {
		t.Fatalf("published %d events, want 7", got)
	}
	if len(pub.batches) != 3 {
		t.Fatalf("batches = %d, want 3,3,1", len(pub.batches))
	}
	if pub.batches[0][0].Key != string(ModeSearch) {
		t.Errorf("key = %q", pub.batches[0][0].Key)
	}
}

func TestCollectorFlushesOnContextCancel(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 50, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(SearchEvent{Mode: ModeBody, Query: "a"})
	c.Track(SearchEvent{Mode: ModeBody, Query: "b"})
	cancel()
	c.Close()
	if got := pub.count(); got != 2 {
		t.Fatalf("published %d events, want 2", got)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := NewCollector(&recordingPublisher{}, 1, 10, time.Hour, m)
	c.Track(SearchEvent{Query: "kept"})
	c.Track(SearchEvent{Query: "dropped"})
	if got := testutil.ToFloat64(m.EventsDropped); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}
	c.Close()
	c.Track(SearchEvent{Query: "after close"})
}

func TestCollectorCountsFailedBatches(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 10, 2, time.Hour, m)
	c.Start(context.Background())
	c.Track(SearchEvent{Query: "a"})
	c.Track(SearchEvent{Query: "b"})
	c.Close()
	if got := testutil.ToFloat64(m.EventsDropped); got != 2 {
		t.Fatalf("dropped = %v, want 2", got)
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	events := []SearchEvent{
		{Mode: ModeSearch, Query: "python", Results: 10, LatencyMs: 10},
		{Mode: ModeSearch, Query: "python", Results: 10, LatencyMs: 20, CacheHit: true},
		{Mode: ModeTitle, Query: "golang", Results: 3, LatencyMs: 30},
		{Mode: ModeSearch, Query: "zzzz", Results: 0, LatencyMs: 40},
	}
	for _, e := range events {
		agg.Record(e)
	}
	stats := agg.Stats()
	if stats.TotalSearches != 4 || stats.CacheHits != 1 || stats.CacheMisses != 3 {
		t.Fatalf("totals = %+v", stats)
	}
	if stats.ByMode["search"] != 3 || stats.ByMode["title"] != 1 {
		t.Errorf("by mode = %v", stats.ByMode)
	}
	if stats.ZeroResultCount != 1 || len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "zzzz" {
		t.Errorf("zero results = %d %v", stats.ZeroResultCount, stats.ZeroResultQueries)
	}
	if stats.TopQueries[0] != (QueryCount{Query: "python", Count: 2}) {
		t.Errorf("top = %v", stats.TopQueries)
	}
	if stats.AvgLatencyMs != 25 || stats.P50LatencyMs != 30 || stats.P99LatencyMs != 40 {
		t.Errorf("latency avg=%v p50=%d p99=%d", stats.AvgLatencyMs, stats.P50LatencyMs, stats.P99LatencyMs)
	}
}

func TestAggregatorLatencyWindow(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+5; i++ {
		agg.Record(SearchEvent{Query: "q", LatencyMs: 1})
	}
	if len(agg.latencies) != maxLatencySamples {
		t.Fatalf("samples = %d", len(agg.latencies))
	}
	if agg.Stats().TotalSearches != maxLatencySamples+5 {
		t.Fatal("totals must count every event")
	}
}

func TestHandleEventDecodesJSON(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	value, _ := json.Marshal(SearchEvent{Mode: ModeAnchor, Query: "java", Results: 2})
	if err := handle(context.Background(), []byte("anchor"), value); err != nil {
		t.Fatal(err)
	}
	if err := handle(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatal("bad messages are skipped, not retried")
	}
	if agg.Stats().ByMode["anchor"] != 1 {
		t.Fatalf("stats = %+v", agg.Stats())
	}
}

func TestAggregatorAsPublisher(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(agg, 10, 1, time.Hour, nil)
	c.Start(context.Background())
	c.Track(SearchEvent{Mode: ModeSearch, Query: "x", Results: 1})
	c.Close()
	if agg.Stats().TotalSearches != 1 {
		t.Fatal("in-process publishing lost the event")
	}
}

func TestRestore(t *testing.T) {
	agg := NewAggregator()
	agg.Restore(AggregatedStats{
		TotalSearches: 5,
		ByMode:        map[string]int64{"search": 5},
		TopQueries:    []QueryCount{{Query: "python", Count: 4}},
	})
	agg.Record(SearchEvent{Mode: ModeSearch, Query: "python", Results: 1})
	stats := agg.Stats()
	if stats.TotalSearches != 6 || stats.ByMode["search"] != 6 || stats.TopQueries[0].Count != 5 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(SearchEvent{Mode: ModeSearch, Query: "python", Results: 1})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TotalSearches != 1 {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestHandlerTopParam(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"a", "b", "b", "c", "c", "c"} {
		agg.Record(SearchEvent{Mode: ModeSearch, Query: q, Results: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=2", nil))
	var got AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.TopQueries) != 2 || got.TopQueries[0].Query != "c" {
		t.Fatalf("top = %+v", got.TopQueries)
	}

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
