package postings

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/metrics"
)

func records(ps ...index.Posting) []byte {
	var buf []byte
	for _, p := range ps {
		buf = index.AppendRecord(buf, p)
	}
	return buf
}

func newField(df map[string]int, locs map[string][]index.Location) *index.Field {
	return &index.Field{
		Kind:       index.KindBody,
		Descriptor: index.NewDescriptor("body", df, locs, nil, nil),
		Folder:     "postings_body",
		Stemmed:    true,
	}
}

type failingStore struct{ err error }

func (f failingStore) Get(ctx context.Context, folder, name string) ([]byte, error) {
	return nil, f.err
}

func TestReadAbsentTerm(t *testing.T) {
	r := NewReader(blob.NewMemStore(), nil)
	f := newField(map[string]int{"cat": 1}, map[string][]index.Location{"cat": {{Block: "0.bin"}}})
	if got := r.Read(context.Background(), f, "dog"); len(got) != 0 {
		t.Fatalf("absent term returned %v", got)
	}
}

func TestReadDecodesOffsetAndDF(t *testing.T) {
	store := blob.NewMemStore()
	store.Put("postings_body", "0.bin", records(
		index.Posting{DocID: 9, Frequency: 9},
		index.Posting{DocID: 1, Frequency: 2},
		index.Posting{DocID: 2, Frequency: 1},
		index.Posting{DocID: 3, Frequency: 7},
	))
	f := newField(map[string]int{"cat": 2}, map[string][]index.Location{"cat": {{Block: "0.bin", Offset: 6}}})

	got := NewReader(store, nil).Read(context.Background(), f, "cat")
	want := index.PostingList{{DocID: 1, Frequency: 2}, {DocID: 2, Frequency: 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("posting %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadSkipsMissingBlocks(t *testing.T) {
	store := blob.NewMemStore()
	store.Put("postings_body", "1.bin", records(index.Posting{DocID: 5, Frequency: 1}))
	f := newField(map[string]int{"cat": 1}, map[string][]index.Location{
		"cat": {{Block: "0.bin"}, {Block: "1.bin"}},
	})
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	got := NewReader(store, m).Read(context.Background(), f, "cat")
	if len(got) != 1 || got[0].DocID != 5 {
		t.Fatalf("got %v", got)
	}
	if v := testutil.ToFloat64(m.PostingFetchFailures.WithLabelValues("body", "missing")); v != 1 {
		t.Errorf("missing-block failures = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.PostingBlocksFetched.WithLabelValues("body")); v != 1 {
		t.Errorf("blocks fetched = %v, want 1", v)
	}
}

func TestReadSwallowsFetchErrors(t *testing.T) {
	f := newField(map[string]int{"cat": 1}, map[string][]index.Location{"cat": {{Block: "0.bin"}}})
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	r := NewReader(failingStore{err: errors.New("connection refused")}, m)
	if got := r.Read(context.Background(), f, "cat"); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
	if v := testutil.ToFloat64(m.PostingFetchFailures.WithLabelValues("body", "error")); v != 1 {
		t.Errorf("fetch failures = %v, want 1", v)
	}
}

func TestReadTruncatedBlock(t *testing.T) {
	store := blob.NewMemStore()
	buf := records(index.Posting{DocID: 1, Frequency: 1}, index.Posting{DocID: 2, Frequency: 1})
	store.Put("postings_body", "0.bin", buf[:9])
	f := newField(map[string]int{"cat": 2}, map[string][]index.Location{"cat": {{Block: "0.bin"}}})

	got := NewReader(store, nil).Read(context.Background(), f, "cat")
	if len(got) != 1 || got[0].DocID != 1 {
		t.Fatalf("got %v, want only the complete record", got)
	}
}

func TestReadNeverExceedsDFPerLocation(t *testing.T) {
	store := blob.NewMemStore()
	var ps []index.Posting
	for i := 0; i < 50; i++ {
		ps = append(ps, index.Posting{DocID: index.DocID(i), Frequency: 1})
	}
	store.Put("postings_body", "0.bin", records(ps...))
	f := newField(map[string]int{"cat": 3}, map[string][]index.Location{"cat": {{Block: "0.bin"}}})
	if got := NewReader(store, nil).Read(context.Background(), f, "cat"); len(got) != 3 {
		t.Fatalf("decoded %d postings, want 3", len(got))
	}
}

func TestReadCancelledContext(t *testing.T) {
	store := blob.NewMemStore()
	store.Put("postings_body", "0.bin", records(index.Posting{DocID: 1, Frequency: 1}))
	f := newField(map[string]int{"cat": 1}, map[string][]index.Location{"cat": {{Block: "0.bin"}}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := NewReader(store, nil).Read(ctx, f, "cat"); len(got) != 0 {
		t.Fatalf("cancelled read returned %v", got)
	}
}
