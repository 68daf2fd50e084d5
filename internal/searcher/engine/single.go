package engine

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/scoring"
)

// SearchBody ranks by cosine tf-idf over the stemmed body field alone.
func (e *Engine) SearchBody(ctx context.Context, raw string, limit int) []ranker.Result {
	body := e.fields.Get(index.KindBody)
	return e.single(ctx, raw, limit, body, func(ctx context.Context, p *query.Plan) scoring.ScoreMap {
		return scoring.Cosine(ctx, e.src, p.For(body), body, e.params.CosineTopN)
	})
}

// SearchTitle ranks by the number of distinct query tokens in the title.
func (e *Engine) SearchTitle(ctx context.Context, raw string, limit int) []ranker.Result {
	title := e.titleField()
	return e.single(ctx, raw, limit, title, func(ctx context.Context, p *query.Plan) scoring.ScoreMap {
		return scoring.Overlap(ctx, e.src, p.For(title), title)
	})
}

// SearchAnchor ranks by the number of distinct query tokens in anchor text
// pointing at the document.
func (e *Engine) SearchAnchor(ctx context.Context, raw string, limit int) []ranker.Result {
	anchor := e.fields.Get(index.KindAnchor)
	return e.single(ctx, raw, limit, anchor, func(ctx context.Context, p *query.Plan) scoring.ScoreMap {
		return scoring.Overlap(ctx, e.src, p.For(anchor), anchor)
	})
}

// PageRank returns the authority score of each id, 0 for unknown ids.
func (e *Engine) PageRank(ids []index.DocID) []float64 {
	return e.meta.AuthorityOf(ids)
}

// PageViews returns the view count of each id, 0 for unknown ids.
func (e *Engine) PageViews(ids []index.DocID) []int64 {
	return e.meta.PopularityOf(ids)
}

func (e *Engine) single(ctx context.Context, raw string, limit int, f *index.Field, score func(context.Context, *query.Plan) scoring.ScoreMap) []ranker.Result {
	plan := query.Parse(raw, e.tok)
	if plan.Empty() || f == nil {
		return []ranker.Result{}
	}
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	scores := score(ctx, plan)
	e.observeCandidates(f.Kind, scores)
	return e.ranker.Rank(scores, limit)
}
