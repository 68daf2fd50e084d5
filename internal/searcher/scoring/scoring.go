// Package scoring implements the per-field relevance functions. Each one maps
// query tokens and a field to a ScoreMap and has no side effects beyond
// reading postings; an empty token list always yields an empty map.
package scoring

import (
	"context"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

// ScoreMap accumulates a score per document for one field of one query.
type ScoreMap map[index.DocID]float64

// PostingSource supplies posting lists; postings.Reader implements it.
type PostingSource interface {
	Read(ctx context.Context, field *index.Field, term string) index.PostingList
}

// Params holds the tunable constants of the scoring functions.
type Params struct {
	K1           float64
	B            float64
	TitleRarity  float64
	TitlePenalty float64
	CosineTopN   int
}

// DefaultParams returns k1=1.2, b=0.5, rarity threshold 3.5, penalty factor
// 0.15 and a cosine cut-off of 100.
func DefaultParams() Params {
	return Params{K1: 1.2, B: 0.5, TitleRarity: 3.5, TitlePenalty: 0.15, CosineTopN: 100}
}

// ParamsFromConfig converts the scoring section of the configuration.
func ParamsFromConfig(cfg config.ScoringConfig) Params {
	p := Params{
		K1:           cfg.K1,
		B:            cfg.B,
		TitleRarity:  cfg.TitleRarity,
		TitlePenalty: cfg.TitlePenalty,
		CosineTopN:   cfg.CosineTopN,
	}
	if p.CosineTopN <= 0 {
		p.CosineTopN = DefaultParams().CosineTopN
	}
	return p
}

// AddInto adds every score of src into dst.
func AddInto(dst, src ScoreMap) {
	for id, s := range src {
		dst[id] += s
	}
}

// Max returns the largest score in m. It returns 1 when m is empty or its
// largest score is not positive, so dividing by it never flips signs.
func Max(m ScoreMap) float64 {
	if len(m) == 0 {
		return 1
	}
	best := math.Inf(-1)
	for _, s := range m {
		if s > best {
			best = s
		}
	}
	if best <= 0 {
		return 1
	}
	return best
}

// log10IDF is log10(N/df), 0 when either side is not positive.
func log10IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log10(float64(n) / float64(df))
}

// distinct returns the unique tokens in sorted order so that accumulation
// order, and with it every floating point sum, is independent of query order.
func distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// occurrences returns distinct(tokens) together with how often each token
// appears in the query.
func occurrences(tokens []string) ([]string, map[string]int) {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return distinct(tokens), counts
}
