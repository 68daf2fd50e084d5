package scoring

import (
	"context"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
)

// BM25 scores documents with Okapi BM25. Repeated query terms count once;
// term frequency comes only from the postings. A document without a recorded
// length is treated as having the field's average length.
func BM25(ctx context.Context, src PostingSource, tokens []string, f *index.Field, p Params) ScoreMap {
	out := make(ScoreMap)
	if len(tokens) == 0 {
		return out
	}
	d := f.Descriptor
	n := float64(d.CollectionSize())
	avgdl := d.AverageLength()
	for _, term := range distinct(tokens) {
		if !d.Contains(term) {
			continue
		}
		df := float64(d.DF(term))
		idf := BM25IDF(n, df)
		for _, posting := range src.Read(ctx, f, term) {
			dl := avgdl
			if l, ok := d.Length(posting.DocID); ok {
				dl = float64(l)
			}
			out[posting.DocID] += idf * BM25TF(float64(posting.Frequency), dl, avgdl, p.K1, p.B)
		}
	}
	return out
}

// BM25IDF is ln((N-df+0.5)/(df+0.5)+1).
func BM25IDF(n, df float64) float64 {
	return math.Log((n-df+0.5)/(df+0.5) + 1)
}

// BM25TF is the saturated, length-normalized term frequency component.
func BM25TF(tf, dl, avgdl, k1, b float64) float64 {
	if avgdl <= 0 {
		avgdl = 1
	}
	return tf * (k1 + 1) / (tf + k1*(1-b+b*dl/avgdl))
}

// Phrase scores the bigrams of stemmed tokens with BM25 against a phrase
// field. The keys match what the phrase index was built with.
func Phrase(ctx context.Context, src PostingSource, stemmed []string, f *index.Field, p Params) ScoreMap {
	return BM25(ctx, src, tokenizer.Bigrams(stemmed), f, p)
}
