package scoring

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
)

// TitleLookup resolves a document's title text.
type TitleLookup func(index.DocID) (string, bool)

// TitleOverlap adds log10(N/df) to a document for every distinct query token
// its title contains, then subtracts idf*TitlePenalty for every occurrence of
// a query token with idf above TitleRarity that the document's own title
// lacks. Only
// documents that matched some token are scored or penalized.
func TitleOverlap(ctx context.Context, src PostingSource, tokens []string, f *index.Field, titles TitleLookup, tok *tokenizer.Tokenizer, p Params) ScoreMap {
	out := make(ScoreMap)
	if len(tokens) == 0 {
		return out
	}
	d := f.Descriptor
	n := d.CollectionSize()
	terms, counts := occurrences(tokens)
	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		if !d.Contains(term) {
			continue
		}
		w := log10IDF(n, d.DF(term))
		idf[term] = w
		for _, posting := range src.Read(ctx, f, term) {
			out[posting.DocID] += w
		}
	}
	if len(out) == 0 || titles == nil {
		return out
	}

	var rare []string
	for _, term := range terms {
		if idf[term] > p.TitleRarity {
			rare = append(rare, term)
		}
	}
	if len(rare) == 0 {
		return out
	}
	for id := range out {
		title, _ := titles(id)
		have := make(map[string]struct{})
		for _, t := range tok.Tokenize(title, f.Stemmed) {
			have[t] = struct{}{}
		}
		for _, term := range rare {
			if _, ok := have[term]; !ok {
				out[id] -= float64(counts[term]) * idf[term] * p.TitlePenalty
			}
		}
	}
	return out
}
