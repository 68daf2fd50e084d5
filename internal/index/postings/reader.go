// Package postings reads fixed-width posting records for a term out of the
// storage blocks named by a field's descriptor.
package postings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
)

// Reader resolves posting lists. It keeps no per-call state and holds no
// lock while fetching, so one Reader serves every concurrent query.
type Reader struct {
	store   blob.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReader creates a Reader over store. m may be nil.
func NewReader(store blob.Store, m *metrics.Metrics) *Reader {
	return &Reader{
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "postings"),
	}
}

// Read returns the postings of term in field. An unknown term yields an empty
// list. A block that is missing or cannot be fetched is skipped, which costs
// recall for this term but never fails the query. From each location exactly
// DF(term) records are decoded; records running past the end of the block
// are dropped.
func (r *Reader) Read(ctx context.Context, field *index.Field, term string) index.PostingList {
	d := field.Descriptor
	locs := d.Locations(term)
	if len(locs) == 0 {
		return nil
	}
	df := d.DF(term)
	var out index.PostingList
	for _, loc := range locs {
		buf, err := r.store.Get(ctx, field.Folder, loc.Block)
		if err != nil {
			r.fetchFailed(field, term, loc.Block, err)
			continue
		}
		if r.metrics != nil {
			r.metrics.PostingBlocksFetched.WithLabelValues(string(field.Kind)).Inc()
		}
		out = append(out, index.DecodeRecords(buf, loc.Offset, df)...)
	}
	return out
}

func (r *Reader) fetchFailed(field *index.Field, term, block string, err error) {
	reason := "error"
	switch {
	case blob.IsNotFound(err):
		reason = "missing"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "cancelled"
	}
	if r.metrics != nil {
		r.metrics.PostingFetchFailures.WithLabelValues(string(field.Kind), reason).Inc()
	}
	if reason == "missing" {
		r.logger.Debug("posting block not found", "field", field.Kind, "term", term, "block", block)
		return
	}
	r.logger.Warn("posting block fetch failed", "field", field.Kind, "term", term, "block", block, "reason", reason, "error", err)
}
