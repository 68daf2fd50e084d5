// Package indexer builds a complete index, posting blocks plus field
// descriptors plus metadata tables, from a corpus of JSON documents. It
// produces the layout the searcher loads and is meant for development
// corpora that fit in memory.
package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

const maxLineSize = 16 << 20

// Anchor is link text pointing at a document and how many links carry it.
type Anchor struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Document is one corpus record.
type Document struct {
	ID        uint32   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Anchors   []Anchor `json:"anchors,omitempty"`
	PageRank  float64  `json:"pagerank"`
	PageViews int64    `json:"pageviews"`
}

type fieldBuilder struct {
	cfg     config.FieldConfig
	kind    index.FieldKind
	builder *index.Builder
}

// Stats summarises what Write produced.
type Stats struct {
	Documents int
	Fields    int
	Blobs     int64
}

// countingSink counts the blobs written through it.
type countingSink struct {
	index.BlockSink
	n atomic.Int64
}

func (c *countingSink) Put(folder, name string, data []byte) error {
	if err := c.BlockSink.Put(folder, name, data); err != nil {
		return err
	}
	c.n.Add(1)
	return nil
}

// Indexer accumulates documents for every enabled field.
type Indexer struct {
	mu         sync.Mutex
	fields     []*fieldBuilder
	meta       config.MetadataConfig
	tok        *tokenizer.Tokenizer
	authority  map[index.DocID]float64
	popularity map[index.DocID]int64
	titles     map[index.DocID]string
	docs       int
	logger     *slog.Logger
}

// New creates an Indexer for the enabled fields in cfgs.
func New(cfgs []config.FieldConfig, meta config.MetadataConfig, tok *tokenizer.Tokenizer) (*Indexer, error) {
	if tok == nil {
		tok = tokenizer.Default()
	}
	ix := &Indexer{
		meta:       meta,
		tok:        tok,
		authority:  make(map[index.DocID]float64),
		popularity: make(map[index.DocID]int64),
		titles:     make(map[index.DocID]string),
		logger:     slog.Default().With("component", "indexer"),
	}
	for _, fc := range cfgs {
		if !fc.Enabled {
			continue
		}
		kind, err := index.ParseFieldKind(fc.Kind)
		if err != nil {
			return nil, err
		}
		b := index.NewBuilder(string(kind), tok, fc.Stemmed)
		if kind.IsPhrase() {
			b.Phrases()
		}
		ix.fields = append(ix.fields, &fieldBuilder{cfg: fc, kind: kind, builder: b})
	}
	if len(ix.fields) == 0 {
		return nil, fmt.Errorf("no enabled fields to index")
	}
	return ix, nil
}

// Add indexes doc into every field.
func (ix *Indexer) Add(doc Document) {
	id := index.DocID(doc.ID)
	for _, f := range ix.fields {
		switch f.kind {
		case index.KindBody, index.KindBodyPhrase:
			f.builder.Add(id, doc.Body)
		case index.KindTitle, index.KindTitleNoStem, index.KindTitlePhrase:
			f.builder.Add(id, doc.Title)
		case index.KindAnchor:
			for _, a := range doc.Anchors {
				count := a.Count
				if count <= 0 {
					count = 1
				}
				if count > math.MaxUint16 {
					count = math.MaxUint16
				}
				for _, term := range ix.tok.Tokenize(a.Text, f.cfg.Stemmed) {
					f.builder.AddTerm(id, term, uint16(count))
				}
			}
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs++
	if doc.PageRank != 0 {
		ix.authority[id] = doc.PageRank
	}
	if doc.PageViews != 0 {
		ix.popularity[id] = doc.PageViews
	}
	if doc.Title != "" {
		ix.titles[id] = doc.Title
	}
}

// ReadJSONL adds one document per non-blank line of r and returns how many
// were read.
func (ix *Indexer) ReadJSONL(ctx context.Context, r io.Reader) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n, line := 0, 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return n, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return n, fmt.Errorf("line %d: decoding document: %w", line, err)
		}
		ix.Add(doc)
		n++
		if n%10000 == 0 {
			ix.logger.Info("documents read", "count", n)
		}
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("reading corpus: %w", err)
	}
	return n, nil
}

// Write builds every field into sink and stores descriptors at the sink's
// root followed by the metadata tables. Titles are split across the
// configured shards by document id.
func (ix *Indexer) Write(ctx context.Context, sink index.BlockSink, blockSize int) (Stats, error) {
	stats := Stats{Fields: len(ix.fields)}
	counted := &countingSink{BlockSink: sink}
	sink = counted

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range ix.fields {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := f.builder.Build(sink, f.cfg.Folder, blockSize)
			if err != nil {
				return fmt.Errorf("building field %s: %w", f.kind, err)
			}
			data, err := index.Encode(d)
			if err != nil {
				return fmt.Errorf("encoding field %s: %w", f.kind, err)
			}
			if err := sink.Put("", f.cfg.Descriptor, data); err != nil {
				return fmt.Errorf("writing descriptor %s: %w", f.cfg.Descriptor, err)
			}
			ix.logger.Info("field written",
				"kind", f.kind,
				"descriptor", f.cfg.Descriptor,
				"terms", d.VocabularySize(),
				"docs", len(d.Lengths()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ix.writeMetadata(sink); err != nil {
		return stats, err
	}
	stats.Blobs = counted.n.Load()
	ix.mu.Lock()
	stats.Documents = ix.docs
	ix.mu.Unlock()
	return stats, nil
}

func (ix *Indexer) writeMetadata(sink index.BlockSink) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.meta.Authority != "" {
		if err := putTable(sink, ix.meta.Folder, ix.meta.Authority, ix.authority); err != nil {
			return err
		}
	}
	if ix.meta.Popularity != "" {
		if err := putTable(sink, ix.meta.Folder, ix.meta.Popularity, ix.popularity); err != nil {
			return err
		}
	}
	shards := ix.meta.TitleShards
	if len(shards) == 0 {
		ix.logger.Warn("no title shards configured, titles not written", "titles", len(ix.titles))
		return nil
	}
	parts := make([]map[index.DocID]string, len(shards))
	for i := range parts {
		parts[i] = make(map[index.DocID]string)
	}
	for id, title := range ix.titles {
		parts[int(id)%len(shards)][id] = title
	}
	for i, name := range shards {
		if err := putTable(sink, ix.meta.Folder, name, parts[i]); err != nil {
			return err
		}
	}
	return nil
}

func putTable[V any](sink index.BlockSink, folder, name string, table map[index.DocID]V) error {
	data, err := metadata.EncodeTable(table)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sink.Put(folder, name, data); err != nil {
		return fmt.Errorf("writing metadata %s: %w", name, err)
	}
	return nil
}
