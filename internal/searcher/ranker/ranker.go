// Package ranker fuses per-field score maps with static document signals
// into the final ranking.
package ranker

import (
	"encoding/json"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/scoring"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

// UnknownTitle is reported for documents without a title.
const UnknownTitle = "Unknown"

// Weights are the coefficients of the linear fusion and the truncation
// depths applied before and after it.
type Weights struct {
	Body       float64
	Title      float64
	Anchor     float64
	Authority  float64
	Popularity float64
	FieldDepth int
	Limit      int
}

// DefaultWeights returns body 0.30, title 0.50, anchor 0.15, authority 0.05,
// popularity 0, a per-field depth of 500 and a limit of 100.
func DefaultWeights() Weights {
	return Weights{Body: 0.30, Title: 0.50, Anchor: 0.15, Authority: 0.05, FieldDepth: 500, Limit: 100}
}

// WeightsFromConfig converts the fusion section of the configuration.
func WeightsFromConfig(cfg config.FusionConfig) Weights {
	return Weights{
		Body:       cfg.Body,
		Title:      cfg.Title,
		Anchor:     cfg.Anchor,
		Authority:  cfg.Authority,
		Popularity: cfg.Popularity,
		FieldDepth: cfg.FieldDepth,
		Limit:      cfg.Limit,
	}
}

// Signals are the per-field score maps of one query.
type Signals struct {
	Body   scoring.ScoreMap
	Title  scoring.ScoreMap
	Anchor scoring.ScoreMap
}

// Metadata supplies static per-document values; metadata.Store implements it.
type Metadata interface {
	Authority(id index.DocID) float64
	Popularity(id index.DocID) int64
	Title(id index.DocID) (string, bool)
}

// Result is one ranked document. It encodes to JSON as ["id", "title"].
type Result struct {
	DocID index.DocID
	Title string
	Score float64
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{strconv.FormatUint(uint64(r.DocID), 10), r.Title})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	id, err := strconv.ParseUint(pair[0], 10, 32)
	if err != nil {
		return err
	}
	r.DocID = index.DocID(id)
	r.Title = pair[1]
	return nil
}

// Ranker combines signals with fixed weights.
type Ranker struct {
	weights Weights
	meta    Metadata
}

// New creates a Ranker. Non-positive depths fall back to the defaults.
func New(w Weights, meta Metadata) *Ranker {
	d := DefaultWeights()
	if w.FieldDepth <= 0 {
		w.FieldDepth = d.FieldDepth
	}
	if w.Limit <= 0 {
		w.Limit = d.Limit
	}
	return &Ranker{weights: w, meta: meta}
}

func (r *Ranker) Weights() Weights { return r.weights }

// Fuse truncates each field to its best FieldDepth documents, divides each
// by its own maximum, normalizes authority and popularity by their maxima
// among the candidates, and returns the Limit best candidates by weighted
// sum. Ties are broken by ascending document id.
func (r *Ranker) Fuse(s Signals) []Result {
	w := r.weights
	body := scoring.Truncate(s.Body, w.FieldDepth)
	title := scoring.Truncate(s.Title, w.FieldDepth)
	anchor := scoring.Truncate(s.Anchor, w.FieldDepth)

	candidates := make(map[index.DocID]struct{}, len(body)+len(title)+len(anchor))
	for _, m := range []scoring.ScoreMap{body, title, anchor} {
		for id := range m {
			candidates[id] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return []Result{}
	}

	// A field whose best score is not positive (every title penalized below
	// zero) divides by 1 rather than by that negative maximum, so penalized
	// documents keep sorting below unpenalized ones.
	bodyMax, titleMax, anchorMax := scoring.Max(body), scoring.Max(title), scoring.Max(anchor)
	authority := make(map[index.DocID]float64, len(candidates))
	popularity := make(map[index.DocID]float64, len(candidates))
	var authorityMax, popularityMax float64
	for id := range candidates {
		a := r.meta.Authority(id)
		authority[id] = a
		if a > authorityMax {
			authorityMax = a
		}
		p := float64(r.meta.Popularity(id))
		popularity[id] = p
		if p > popularityMax {
			popularityMax = p
		}
	}
	if authorityMax == 0 {
		authorityMax = 1
	}
	if popularityMax == 0 {
		popularityMax = 1
	}

	final := make(scoring.ScoreMap, len(candidates))
	for id := range candidates {
		final[id] = w.Body*body[id]/bodyMax +
			w.Title*title[id]/titleMax +
			w.Anchor*anchor[id]/anchorMax +
			w.Authority*authority[id]/authorityMax +
			w.Popularity*popularity[id]/popularityMax
	}
	return r.resolve(scoring.Top(final, w.Limit))
}

// Rank orders a single score map without fusion and resolves titles.
func (r *Ranker) Rank(m scoring.ScoreMap, limit int) []Result {
	return r.resolve(scoring.Top(m, limit))
}

func (r *Ranker) resolve(docs []scoring.ScoredDoc) []Result {
	out := make([]Result, len(docs))
	for i, d := range docs {
		title, ok := r.meta.Title(d.DocID)
		if !ok {
			title = UnknownTitle
		}
		out[i] = Result{DocID: d.DocID, Title: title, Score: d.Score}
	}
	return out
}
