// Package handler exposes the engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/tracing"
)

// maxIDs bounds the id list accepted by the pagerank and pageviews routes.
const maxIDs = 10000

// Searcher is the query surface of engine.Engine.
type Searcher interface {
	Search(ctx context.Context, raw string) []ranker.Result
	SearchBody(ctx context.Context, raw string, limit int) []ranker.Result
	SearchTitle(ctx context.Context, raw string, limit int) []ranker.Result
	SearchAnchor(ctx context.Context, raw string, limit int) []ranker.Result
	PageRank(ids []index.DocID) []float64
	PageViews(ids []index.DocID) []int64
	Tokenizer() *tokenizer.Tokenizer
}

type Options struct {
	Engine       Searcher
	Cache        *cache.QueryCache
	Collector    *analytics.Collector
	Metrics      *metrics.Metrics
	DefaultLimit int
	MaxResults   int
}

type Handler struct {
	engine       Searcher
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(opts Options) *Handler {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxResults {
		opts.DefaultLimit = opts.MaxResults
	}
	return &Handler{
		engine:       opts.Engine,
		cache:        opts.Cache,
		collector:    opts.Collector,
		metrics:      opts.Metrics,
		defaultLimit: opts.DefaultLimit,
		maxResults:   opts.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every engine route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/body", h.SearchBody)
	mux.HandleFunc("GET /api/v1/search/title", h.SearchTitle)
	mux.HandleFunc("GET /api/v1/search/anchor", h.SearchAnchor)
	mux.HandleFunc("POST /api/v1/pagerank", h.PageRank)
	mux.HandleFunc("POST /api/v1/pageviews", h.PageViews)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

// Search answers with the fused ranking as [[id, title], ...].
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, analytics.ModeSearch, false, func(ctx context.Context, q string, _ int) []ranker.Result {
		return h.engine.Search(ctx, q)
	})
}

func (h *Handler) SearchBody(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, analytics.ModeBody, true, h.engine.SearchBody)
}

func (h *Handler) SearchTitle(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, analytics.ModeTitle, true, h.engine.SearchTitle)
}

func (h *Handler) SearchAnchor(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, analytics.ModeAnchor, true, h.engine.SearchAnchor)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, mode analytics.Mode, limited bool, run func(context.Context, string, int) []ranker.Result) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), string(mode), middleware.GetRequestID(r.Context()))
	defer span.End()
	log := logger.FromContext(ctx)

	raw := r.URL.Query().Get("q")
	if raw == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, "query parameter 'q' is required"))
		return
	}
	limit := h.maxResults
	if limited {
		var err error
		if limit, err = h.parseLimit(r); err != nil {
			h.writeError(w, err)
			return
		}
	}

	plan := query.Parse(raw, h.engine.Tokenizer())
	if plan.Empty() {
		h.observe(mode, "empty_query", 0, start)
		h.writeJSON(w, http.StatusOK, []ranker.Result{})
		return
	}

	var (
		results  []ranker.Result
		cacheHit bool
	)
	compute := func() []ranker.Result { return run(ctx, raw, limit) }
	if h.cache != nil {
		results, cacheHit = h.cache.GetOrCompute(ctx, string(mode), raw, limit, compute)
	} else {
		results = compute()
	}
	if !limited && len(results) > limit {
		results = results[:limit]
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"mode", mode,
		"query", raw,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	resultType := "miss"
	switch {
	case len(results) == 0:
		resultType = "zero_result"
	case cacheHit:
		resultType = "hit"
	}
	h.observe(mode, resultType, len(results), start)

	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Mode:      mode,
			Query:     raw,
			Tokens:    plan.Tokens,
			Results:   len(results),
			LatencyMs: latencyMs,
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, results)
}

// PageRank answers a JSON array of ids with their authority scores.
func (h *Handler) PageRank(w http.ResponseWriter, r *http.Request) {
	ids, err := h.decodeIDs(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.PageRank(ids))
}

// PageViews answers a JSON array of ids with their view counts.
func (h *Handler) PageViews(w http.ResponseWriter, r *http.Request) {
	ids, err := h.decodeIDs(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.PageViews(ids))
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil || !h.cache.Enabled() {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil || !h.cache.Enabled() {
		h.writeError(w, apperrors.ErrCacheDisabled)
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrInternal, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, "limit must be a positive integer")
	}
	if n > h.maxResults {
		n = h.maxResults
	}
	return n, nil
}

func (h *Handler) decodeIDs(w http.ResponseWriter, r *http.Request) ([]index.DocID, error) {
	var ids []index.DocID
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&ids); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "body must be a JSON array of document ids: %v", err)
	}
	if len(ids) > maxIDs {
		return nil, apperrors.Newf(apperrors.ErrTooLarge, "at most %d ids per request", maxIDs)
	}
	if ids == nil {
		ids = []index.DocID{}
	}
	return ids, nil
}

func (h *Handler) observe(mode analytics.Mode, resultType string, results int, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(string(mode), resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.WithLabelValues(string(mode)).Observe(float64(results))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.Message(err)})
}
