package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"path"

	"github.com/fxamacker/cbor/v2"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
)

// CurrentVersion is the descriptor schema version written by Encode.
const CurrentVersion = 2

var ErrInvalidDescriptor = errors.New("invalid index descriptor")

// wireDescriptor is the persisted form. Version 1 blobs stored lengths under
// "DL" and block names with their folder prefix.
type wireDescriptor struct {
	Version        int                       `cbor:"version"`
	Name           string                    `cbor:"name"`
	DF             map[string]int            `cbor:"df"`
	PostingLocs    map[string][]wireLocation `cbor:"posting_locs"`
	DocLength      map[uint32]int            `cbor:"doc_length,omitempty"`
	LegacyLength   map[uint32]int            `cbor:"DL,omitempty"`
	DocNorm        map[uint32]float64        `cbor:"doc_norm,omitempty"`
	CollectionSize int                       `cbor:"collection_size,omitempty"`
}

type wireLocation struct {
	_      struct{} `cbor:",toarray"`
	Block  string
	Offset int64
}

var migrations = map[int]func(*wireDescriptor) error{
	1: migrateV1,
}

func migrateV1(w *wireDescriptor) error {
	if w.DocLength == nil && w.LegacyLength != nil {
		w.DocLength = w.LegacyLength
	}
	w.LegacyLength = nil
	for term, locs := range w.PostingLocs {
		for i := range locs {
			locs[i].Block = path.Base(locs[i].Block)
		}
		w.PostingLocs[term] = locs
	}
	w.Version = 2
	return nil
}

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		MaxMapPairs:      math.MaxInt32,
		MaxArrayElements: math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Decode parses a persisted descriptor, upgrading older schema versions.
// A missing version is read as version 1.
func Decode(data []byte) (*Descriptor, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrInvalidDescriptor)
	}
	var w wireDescriptor
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if w.Version == 0 {
		w.Version = 1
	}
	for w.Version < CurrentVersion {
		migrate, ok := migrations[w.Version]
		if !ok {
			return nil, fmt.Errorf("%w: no migration from version %d", ErrInvalidDescriptor, w.Version)
		}
		from := w.Version
		if err := migrate(&w); err != nil {
			return nil, fmt.Errorf("migrating descriptor from version %d: %w", from, err)
		}
	}
	if w.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDescriptor, w.Version)
	}

	locs := make(map[string][]Location, len(w.PostingLocs))
	for term, wl := range w.PostingLocs {
		out := make([]Location, len(wl))
		for i, l := range wl {
			out[i] = Location{Block: l.Block, Offset: l.Offset}
		}
		locs[term] = out
	}
	lengths := make(map[DocID]int, len(w.DocLength))
	for id, l := range w.DocLength {
		lengths[DocID(id)] = l
	}
	norms := make(map[DocID]float64, len(w.DocNorm))
	for id, n := range w.DocNorm {
		norms[DocID(id)] = n
	}
	d := NewDescriptor(w.Name, w.DF, locs, lengths, norms)
	if w.CollectionSize > 0 {
		d = d.WithCollectionSize(w.CollectionSize)
	}
	return d, nil
}

// Encode serializes d at CurrentVersion. The collection size is recorded only
// when it differs from the number of recorded lengths.
func Encode(d *Descriptor) ([]byte, error) {
	w := wireDescriptor{
		Version:     CurrentVersion,
		Name:        d.name,
		DF:          d.documentFreq,
		PostingLocs: make(map[string][]wireLocation, len(d.postingLocations)),
		DocLength:   make(map[uint32]int, len(d.documentLength)),
		DocNorm:     make(map[uint32]float64, len(d.documentNorm)),
	}
	for term, locs := range d.postingLocations {
		wl := make([]wireLocation, len(locs))
		for i, l := range locs {
			wl[i] = wireLocation{Block: l.Block, Offset: l.Offset}
		}
		w.PostingLocs[term] = wl
	}
	for id, l := range d.documentLength {
		w.DocLength[uint32(id)] = l
	}
	for id, n := range d.documentNorm {
		w.DocNorm[uint32(id)] = n
	}
	if d.collectionSize != len(d.documentLength) {
		w.CollectionSize = d.collectionSize
	}
	var buf bytes.Buffer
	if err := cbor.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("encoding descriptor %s: %w", d.name, err)
	}
	return buf.Bytes(), nil
}

// Load fetches and decodes the descriptor stored at folder/name.
func Load(ctx context.Context, store blob.Store, folder, name string) (*Descriptor, error) {
	data, err := store.Get(ctx, folder, name)
	if err != nil {
		return nil, fmt.Errorf("fetching descriptor %s: %w", blob.Key(folder, name), err)
	}
	d, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding descriptor %s: %w", blob.Key(folder, name), err)
	}
	return d, nil
}
