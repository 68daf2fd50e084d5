package metadata

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

func TestStoreDefaults(t *testing.T) {
	s := New(map[index.DocID]float64{1: 0.5}, map[index.DocID]int64{1: 42}, nil)
	if s.Authority(1) != 0.5 || s.Authority(2) != 0 {
		t.Error("authority lookup")
	}
	if s.Popularity(1) != 42 || s.Popularity(2) != 0 {
		t.Error("popularity lookup")
	}
	if _, ok := s.Title(1); ok {
		t.Error("unexpected title")
	}
	got := s.AuthorityOf([]index.DocID{2, 1})
	if len(got) != 2 || got[0] != 0 || got[1] != 0.5 {
		t.Errorf("AuthorityOf = %v", got)
	}
	views := s.PopularityOf([]index.DocID{1, 3})
	if views[0] != 42 || views[1] != 0 {
		t.Errorf("PopularityOf = %v", views)
	}
}

func put[V any](t *testing.T, store *blob.MemStore, name string, m map[index.DocID]V) {
	t.Helper()
	data, err := EncodeTable(m)
	if err != nil {
		t.Fatal(err)
	}
	store.Put("metadata", name, data)
}

func TestLoadBlobsMergesTitleShards(t *testing.T) {
	store := blob.NewMemStore()
	put(t, store, "pagerank.cbor", map[index.DocID]float64{1: 3.5, 2: 1.0})
	put(t, store, "pageviews.cbor", map[index.DocID]int64{1: 10})
	put(t, store, "titles_even.cbor", map[index.DocID]string{2: "Two", 4: "Four"})
	put(t, store, "titles_odd.cbor", map[index.DocID]string{1: "One", 3: "Three"})

	cfg := config.MetadataConfig{
		Folder:      "metadata",
		Authority:   "pagerank.cbor",
		Popularity:  "pageviews.cbor",
		TitleShards: []string{"titles_even.cbor", "titles_odd.cbor"},
	}
	s, err := LoadBlobs(context.Background(), store, cfg)
	if err != nil {
		t.Fatalf("LoadBlobs: %v", err)
	}
	if s.TitleCount() != 4 {
		t.Errorf("titles = %d, want 4", s.TitleCount())
	}
	if title, _ := s.Title(3); title != "Three" {
		t.Errorf("title(3) = %q", title)
	}
	if s.Authority(1) != 3.5 || s.Popularity(1) != 10 {
		t.Error("tables not loaded")
	}
}

func TestLoadBlobsMissingTableFails(t *testing.T) {
	store := blob.NewMemStore()
	cfg := config.MetadataConfig{Folder: "metadata", Authority: "pagerank.cbor"}
	if _, err := LoadBlobs(context.Background(), store, cfg); !blob.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}
