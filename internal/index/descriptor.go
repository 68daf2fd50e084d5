// Package index holds the read-only per-field index model used at query
// time: descriptors, posting records, field kinds, the persisted descriptor
// codec, and a small in-memory builder for fixtures.
package index

// Location is one place where part of a term's posting list is stored.
type Location struct {
	Block  string
	Offset int64
}

// Descriptor describes one field's inverted index. It is never modified after
// NewDescriptor returns and may be shared by any number of concurrent
// queries.
type Descriptor struct {
	name             string
	documentFreq     map[string]int
	postingLocations map[string][]Location
	documentLength   map[DocID]int
	documentNorm     map[DocID]float64

	collectionSize int
	averageLength  float64
}

// NewDescriptor takes ownership of the given maps, any of which may be nil.
// The collection size defaults to the number of documents with a recorded
// length; the average length is the mean of those lengths, or 1 when there
// are none.
func NewDescriptor(name string, df map[string]int, locations map[string][]Location, lengths map[DocID]int, norms map[DocID]float64) *Descriptor {
	if df == nil {
		df = map[string]int{}
	}
	if locations == nil {
		locations = map[string][]Location{}
	}
	if lengths == nil {
		lengths = map[DocID]int{}
	}
	if norms == nil {
		norms = map[DocID]float64{}
	}
	d := &Descriptor{
		name:             name,
		documentFreq:     df,
		postingLocations: locations,
		documentLength:   lengths,
		documentNorm:     norms,
	}
	d.freeze(len(lengths))
	return d
}

func (d *Descriptor) freeze(collectionSize int) {
	d.collectionSize = collectionSize
	d.averageLength = 1
	if len(d.documentLength) == 0 {
		return
	}
	var total int64
	for _, l := range d.documentLength {
		total += int64(l)
	}
	d.averageLength = float64(total) / float64(len(d.documentLength))
}

// WithCollectionSize returns a copy of d whose collection size is n. The
// underlying tables are shared.
func (d *Descriptor) WithCollectionSize(n int) *Descriptor {
	cp := *d
	cp.collectionSize = n
	return &cp
}

// WithLengths returns a copy of d that uses lengths for length normalization
// and for the derived collection statistics. Phrase fields built without
// their own lengths borrow the body field's this way.
func (d *Descriptor) WithLengths(lengths map[DocID]int) *Descriptor {
	cp := *d
	if lengths == nil {
		lengths = map[DocID]int{}
	}
	cp.documentLength = lengths
	cp.freeze(len(lengths))
	return &cp
}

func (d *Descriptor) Name() string { return d.name }

// CollectionSize is the N used by every IDF formula for this field.
func (d *Descriptor) CollectionSize() int { return d.collectionSize }

// AverageLength is the mean recorded document length, 1 when none.
func (d *Descriptor) AverageLength() float64 { return d.averageLength }

// DF returns the document frequency of term, 0 when unknown.
func (d *Descriptor) DF(term string) int { return d.documentFreq[term] }

// Contains reports whether term is in the field vocabulary.
func (d *Descriptor) Contains(term string) bool {
	_, ok := d.documentFreq[term]
	return ok
}

// Locations returns where term's postings are stored, nil when absent.
func (d *Descriptor) Locations(term string) []Location { return d.postingLocations[term] }

// Length returns the recorded length of doc.
func (d *Descriptor) Length(doc DocID) (int, bool) {
	l, ok := d.documentLength[doc]
	return l, ok
}

// Norm returns the precomputed vector norm of doc.
func (d *Descriptor) Norm(doc DocID) (float64, bool) {
	n, ok := d.documentNorm[doc]
	return n, ok
}

// Lengths exposes the length table for sharing with another descriptor.
// Callers must not modify it.
func (d *Descriptor) Lengths() map[DocID]int { return d.documentLength }

func (d *Descriptor) VocabularySize() int { return len(d.documentFreq) }

func (d *Descriptor) HasLengths() bool { return len(d.documentLength) > 0 }
