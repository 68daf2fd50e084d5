// Package engine executes queries: it plans the query, scores every field
// concurrently, and fuses the field scores into the final ranking.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/scoring"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/tracing"
)

// Options configures an Engine.
type Options struct {
	Fields       index.Fields
	Source       scoring.PostingSource
	Tokenizer    *tokenizer.Tokenizer
	Metadata     *metadata.Store
	Params       scoring.Params
	Weights      ranker.Weights
	QueryTimeout time.Duration
	// SlowQuery, when positive, logs the stage timings of fused queries
	// that take at least this long.
	SlowQuery time.Duration
	Metrics   *metrics.Metrics
}

// Engine answers queries against a fixed set of loaded fields. All of its
// state is read-only, so one Engine serves any number of concurrent queries.
type Engine struct {
	fields       index.Fields
	src          scoring.PostingSource
	tok          *tokenizer.Tokenizer
	meta         *metadata.Store
	ranker       *ranker.Ranker
	params       scoring.Params
	queryTimeout time.Duration
	slowQuery    time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New validates opts and prepares the fields for scoring. Phrase fields
// without lengths of their own borrow the body field's. Fields with neither
// lengths nor an explicit collection size use the number of known titles as
// their collection size.
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("engine requires a posting source")
	}
	if opts.Metadata == nil {
		opts.Metadata = metadata.New(nil, nil, nil)
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.Default()
	}
	if opts.Params == (scoring.Params{}) {
		opts.Params = scoring.DefaultParams()
	}
	if opts.Params.CosineTopN <= 0 {
		opts.Params.CosineTopN = scoring.DefaultParams().CosineTopN
	}
	if opts.Weights == (ranker.Weights{}) {
		opts.Weights = ranker.DefaultWeights()
	}

	fields := make(index.Fields, len(opts.Fields))
	body := opts.Fields.Get(index.KindBody)
	for kind, f := range opts.Fields {
		if f == nil || f.Descriptor == nil {
			return nil, fmt.Errorf("field %s has no descriptor", kind)
		}
		cp := *f
		if kind.IsPhrase() && !cp.Descriptor.HasLengths() && body != nil {
			cp.Descriptor = cp.Descriptor.WithLengths(body.Descriptor.Lengths())
		}
		if cp.Descriptor.CollectionSize() == 0 {
			cp.Descriptor = cp.Descriptor.WithCollectionSize(opts.Metadata.TitleCount())
		}
		fields[kind] = &cp
		if opts.Metrics != nil {
			opts.Metrics.LoadedTerms.WithLabelValues(string(kind)).Set(float64(cp.Descriptor.VocabularySize()))
		}
	}

	return &Engine{
		fields:       fields,
		src:          opts.Source,
		tok:          opts.Tokenizer,
		meta:         opts.Metadata,
		ranker:       ranker.New(opts.Weights, opts.Metadata),
		params:       opts.Params,
		queryTimeout: opts.QueryTimeout,
		slowQuery:    opts.SlowQuery,
		metrics:      opts.Metrics,
		logger:       slog.Default().With("component", "engine"),
	}, nil
}

// Fields returns the kinds the engine was loaded with.
func (e *Engine) Fields() []index.FieldKind {
	out := make([]index.FieldKind, 0, len(e.fields))
	for k := range e.fields {
		out = append(out, k)
	}
	return out
}

// Tokenizer returns the tokenizer used for queries.
func (e *Engine) Tokenizer() *tokenizer.Tokenizer { return e.tok }

// Search returns at most the configured limit of documents for raw, best
// first. It never fails: unknown terms, missing blocks and a query that
// runs out of time all reduce to fewer or no results.
func (e *Engine) Search(ctx context.Context, raw string) []ranker.Result {
	start := time.Now()
	plan := query.Parse(raw, e.tok)
	if plan.Empty() {
		return []ranker.Result{}
	}
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	ctx, span := tracing.Child(ctx, "search")
	span.Set("query", raw)

	var signals ranker.Signals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		signals.Body = stage(gctx, "body", func(ctx context.Context) scoring.ScoreMap { return e.bodyScores(ctx, plan) })
		return gctx.Err()
	})
	g.Go(func() error {
		signals.Title = stage(gctx, "title", func(ctx context.Context) scoring.ScoreMap { return e.titleScores(ctx, plan) })
		return gctx.Err()
	})
	g.Go(func() error {
		signals.Anchor = stage(gctx, "anchor", func(ctx context.Context) scoring.ScoreMap { return e.anchorScores(ctx, plan) })
		return gctx.Err()
	})
	// A stage that ran out of time still returns what it scored; the error
	// only records that the deadline passed.
	timedOut := g.Wait() != nil

	e.observeCandidates(index.KindBody, signals.Body)
	e.observeCandidates(index.KindTitle, signals.Title)
	e.observeCandidates(index.KindAnchor, signals.Anchor)

	_, fuse := tracing.Child(ctx, "fuse")
	results := e.ranker.Fuse(signals)
	fuse.Set("results", len(results))
	fuse.End()
	span.End()
	if e.slowQuery > 0 && span.Duration >= e.slowQuery {
		span.Log(ctx, logger.FromContext(ctx), slog.LevelWarn)
	}

	logger.FromContext(ctx).Info("query executed",
		"query", raw,
		"tokens", plan.Tokens,
		"candidates", len(signals.Body)+len(signals.Title)+len(signals.Anchor),
		"results", len(results),
		"latency_ms", time.Since(start).Milliseconds(),
		"timed_out", timedOut,
	)
	return results
}

// stage runs one scoring step under its own span.
func stage(ctx context.Context, name string, score func(context.Context) scoring.ScoreMap) scoring.ScoreMap {
	ctx, span := tracing.Child(ctx, name)
	m := score(ctx)
	span.Set("candidates", len(m))
	span.End()
	return m
}

func (e *Engine) bodyScores(ctx context.Context, plan *query.Plan) scoring.ScoreMap {
	scores := scoring.ScoreMap{}
	if body := e.fields.Get(index.KindBody); body != nil {
		scores = scoring.BM25(ctx, e.src, plan.For(body), body, e.params)
	}
	if phrase := e.fields.Get(index.KindBodyPhrase); phrase != nil && len(plan.Bigrams) > 0 {
		scoring.AddInto(scores, scoring.BM25(ctx, e.src, plan.Bigrams, phrase, e.params))
	}
	return scores
}

func (e *Engine) titleScores(ctx context.Context, plan *query.Plan) scoring.ScoreMap {
	title := e.titleField()
	if title == nil {
		return scoring.ScoreMap{}
	}
	scores := scoring.TitleOverlap(ctx, e.src, plan.For(title), title, e.meta.Title, e.tok, e.params)
	if phrase := e.fields.Get(index.KindTitlePhrase); phrase != nil && len(plan.Bigrams) > 0 {
		scoring.AddInto(scores, scoring.BM25(ctx, e.src, plan.Bigrams, phrase, e.params))
	}
	return scores
}

func (e *Engine) anchorScores(ctx context.Context, plan *query.Plan) scoring.ScoreMap {
	anchor := e.fields.Get(index.KindAnchor)
	if anchor == nil {
		return scoring.ScoreMap{}
	}
	return scoring.Anchor(ctx, e.src, plan.For(anchor), anchor)
}

// titleField prefers the unstemmed title index.
func (e *Engine) titleField() *index.Field {
	if f := e.fields.Get(index.KindTitleNoStem); f != nil {
		return f
	}
	return e.fields.Get(index.KindTitle)
}

func (e *Engine) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.queryTimeout > 0 {
		return context.WithTimeout(ctx, e.queryTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) observeCandidates(kind index.FieldKind, m scoring.ScoreMap) {
	if e.metrics != nil {
		e.metrics.FieldCandidates.WithLabelValues(string(kind)).Observe(float64(len(m)))
	}
}
