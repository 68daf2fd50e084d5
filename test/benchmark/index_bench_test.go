// Package benchmark measures tokenization, index building and query
// execution over a synthetic corpus.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

var benchFields = []config.FieldConfig{
	{Kind: "body", Descriptor: "body_index.cbor", Folder: "postings_body", Stemmed: true, Enabled: true},
	{Kind: "body_phrase", Descriptor: "body_phrase_index.cbor", Folder: "postings_body_phrase", Stemmed: true, Enabled: true},
	{Kind: "title_nostem", Descriptor: "title_index.cbor", Folder: "postings_title", Enabled: true},
	{Kind: "anchor", Descriptor: "anchor_index.cbor", Folder: "postings_anchor", Enabled: true},
}

var benchMeta = config.MetadataConfig{
	Source:      "blob",
	Folder:      "metadata",
	Authority:   "pagerank.cbor",
	Popularity:  "pageviews.cbor",
	TitleShards: []string{"titles_0.cbor", "titles_1.cbor"},
}

// vocabulary returns n distinct pronounceable words.
func vocabulary(n int) []string {
	syllables := []string{"ka", "lo", "mi", "ne", "ru", "sa", "to", "vi", "ze", "pa", "do", "fe"}
	out := make([]string, n)
	for i := range out {
		var sb strings.Builder
		x := i
		for j := 0; j < 3 || x > 0; j++ {
			sb.WriteString(syllables[x%len(syllables)])
			x /= len(syllables)
		}
		out[i] = sb.String()
	}
	return out
}

// syntheticCorpus draws Zipf-distributed words so a few terms have long
// posting lists and most are rare.
func syntheticCorpus(n int) []indexer.Document {
	rng := rand.New(rand.NewSource(42))
	vocab := vocabulary(5000)
	zipf := rand.NewZipf(rng, 1.1, 1, uint64(len(vocab)-1))
	words := func(k int) string {
		parts := make([]string, k)
		for i := range parts {
			parts[i] = vocab[zipf.Uint64()]
		}
		return strings.Join(parts, " ")
	}
	docs := make([]indexer.Document, n)
	for i := range docs {
		docs[i] = indexer.Document{
			ID:        uint32(i + 1),
			Title:     words(4),
			Body:      words(120),
			Anchors:   []indexer.Anchor{{Text: words(2), Count: rng.Intn(20)}},
			PageRank:  rng.Float64(),
			PageViews: int64(rng.Intn(10000)),
		}
	}
	return docs
}

func buildStore(tb testing.TB, docs []indexer.Document) *blob.MemStore {
	tb.Helper()
	ix, err := indexer.New(benchFields, benchMeta, nil)
	if err != nil {
		tb.Fatal(err)
	}
	for _, d := range docs {
		ix.Add(d)
	}
	store := blob.NewMemStore()
	if _, err := ix.Write(context.Background(), store, 1<<16); err != nil {
		tb.Fatal(err)
	}
	return store
}

func BenchmarkIndexerAdd(b *testing.B) {
	docs := syntheticCorpus(1000)
	ix, err := indexer.New(benchFields, benchMeta, nil)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d := docs[i%len(docs)]
		d.ID = uint32(i + 1)
		ix.Add(d)
	}
}

func BenchmarkIndexerWrite(b *testing.B) {
	for _, n := range []int{1000, 5000} {
		docs := syntheticCorpus(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buildStore(b, docs)
			}
		})
	}
}
