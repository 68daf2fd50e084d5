package scoring

import (
	"context"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
)

// Anchor rewards documents that many anchors pointing at them describe with
// the query terms: idf * log1p(anchor count) per posting, once for every
// occurrence of the term in the query.
func Anchor(ctx context.Context, src PostingSource, tokens []string, f *index.Field) ScoreMap {
	out := make(ScoreMap)
	if len(tokens) == 0 {
		return out
	}
	d := f.Descriptor
	n := d.CollectionSize()
	terms, counts := occurrences(tokens)
	for _, term := range terms {
		if !d.Contains(term) {
			continue
		}
		w := float64(counts[term]) * log10IDF(n, d.DF(term))
		for _, posting := range src.Read(ctx, f, term) {
			out[posting.DocID] += w * math.Log1p(float64(posting.Frequency))
		}
	}
	return out
}

// Overlap counts, per document, how many distinct query tokens it contains.
func Overlap(ctx context.Context, src PostingSource, tokens []string, f *index.Field) ScoreMap {
	out := make(ScoreMap)
	for _, term := range distinct(tokens) {
		if !f.Descriptor.Contains(term) {
			continue
		}
		for _, posting := range src.Read(ctx, f, term) {
			out[posting.DocID]++
		}
	}
	return out
}
