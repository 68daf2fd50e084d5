package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
)

// Builder accumulates documents for a single field in memory and writes them
// out as posting blocks plus a Descriptor. It backs test fixtures, benchmarks
// and local development corpora.
type Builder struct {
	mu       sync.Mutex
	name     string
	tok      *tokenizer.Tokenizer
	stem     bool
	phrases  bool
	postings map[string]map[DocID]uint16
	lengths  map[DocID]int
}

// NewBuilder creates a Builder for the field called name.
func NewBuilder(name string, tok *tokenizer.Tokenizer, stem bool) *Builder {
	if tok == nil {
		tok = tokenizer.Default()
	}
	return &Builder{
		name:     name,
		tok:      tok,
		stem:     stem,
		postings: make(map[string]map[DocID]uint16),
		lengths:  make(map[DocID]int),
	}
}

// Phrases switches the builder to index adjacent-token bigrams. Phrase
// descriptors carry no lengths of their own.
func (b *Builder) Phrases() *Builder {
	b.phrases = true
	return b
}

// Add tokenizes text and records it under doc.
func (b *Builder) Add(doc DocID, text string) {
	tokens := b.tok.Tokenize(text, b.stem)
	terms := tokens
	if b.phrases {
		terms = tokenizer.Bigrams(tokens)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, term := range terms {
		b.addLocked(doc, term, 1)
	}
	if !b.phrases {
		b.lengths[doc] += len(tokens)
	}
}

// AddTerm records freq occurrences of an already normalized term, such as an
// anchor-text count.
func (b *Builder) AddTerm(doc DocID, term string, freq uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addLocked(doc, term, freq)
}

// SetLength overrides the recorded length of doc.
func (b *Builder) SetLength(doc DocID, length int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lengths[doc] = length
}

func (b *Builder) addLocked(doc DocID, term string, freq uint16) {
	docs, ok := b.postings[term]
	if !ok {
		docs = make(map[DocID]uint16)
		b.postings[term] = docs
	}
	if uint32(docs[doc])+uint32(freq) > math.MaxUint16 {
		docs[doc] = math.MaxUint16
		return
	}
	docs[doc] += freq
}

// DocCount returns the number of documents with a recorded length.
func (b *Builder) DocCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lengths)
}

// Build writes every posting list into blocks under folder and returns the
// field's descriptor. Document norms are the Euclidean norms of the
// length-normalized tf-idf vectors.
func (b *Builder) Build(sink BlockSink, folder string, blockSize int) (*Descriptor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	terms := make([]string, 0, len(b.postings))
	for term := range b.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	w := NewBlockWriter(sink, folder, b.name, blockSize)
	df := make(map[string]int, len(terms))
	locs := make(map[string][]Location, len(terms))
	n := float64(len(b.lengths))
	normSq := make(map[DocID]float64)

	for _, term := range terms {
		docs := b.postings[term]
		list := make(PostingList, 0, len(docs))
		for id, tf := range docs {
			list = append(list, Posting{DocID: id, Frequency: tf})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].DocID < list[j].DocID })
		loc, err := w.Write(list)
		if err != nil {
			return nil, fmt.Errorf("writing postings for %q: %w", term, err)
		}
		df[term] = len(list)
		locs[term] = []Location{loc}

		if n == 0 {
			continue
		}
		idf := math.Log10(n / float64(len(list)))
		for _, p := range list {
			l := b.lengths[p.DocID]
			if l == 0 {
				continue
			}
			wgt := float64(p.Frequency) / float64(l) * idf
			normSq[p.DocID] += wgt * wgt
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	lengths := make(map[DocID]int, len(b.lengths))
	for id, l := range b.lengths {
		lengths[id] = l
	}
	norms := make(map[DocID]float64, len(normSq))
	for id, sq := range normSq {
		if sq > 0 {
			norms[id] = math.Sqrt(sq)
		}
	}
	return NewDescriptor(b.name, df, locs, lengths, norms), nil
}
