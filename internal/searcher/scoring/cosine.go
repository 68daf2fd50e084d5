package scoring

import (
	"context"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
)

// Cosine scores documents by cosine similarity of length-normalized tf-idf
// vectors, using the precomputed document norms of the field. Only the topN
// best documents are returned.
func Cosine(ctx context.Context, src PostingSource, tokens []string, f *index.Field, topN int) ScoreMap {
	if len(tokens) == 0 {
		return ScoreMap{}
	}
	d := f.Descriptor
	n := d.CollectionSize()
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	queryLen := float64(len(tokens))

	raw := make(ScoreMap)
	var queryNormSq float64
	matched := false
	for _, term := range distinct(tokens) {
		if !d.Contains(term) {
			continue
		}
		idf := log10IDF(n, d.DF(term))
		qw := float64(counts[term]) / queryLen * idf
		queryNormSq += qw * qw
		matched = true
		for _, p := range src.Read(ctx, f, term) {
			dl := 1.0
			if l, ok := d.Length(p.DocID); ok && l > 0 {
				dl = float64(l)
			}
			dw := float64(p.Frequency) / dl * idf
			raw[p.DocID] += qw * dw
		}
	}
	if !matched || queryNormSq == 0 {
		return ScoreMap{}
	}

	queryNorm := math.Sqrt(queryNormSq)
	out := make(ScoreMap, len(raw))
	for id, s := range raw {
		norm := 1.0
		if dn, ok := d.Norm(id); ok && dn != 0 {
			norm = dn
		}
		out[id] = s / (queryNorm * norm)
	}
	return Truncate(out, topN)
}
