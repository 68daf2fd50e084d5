package scoring

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
)

// ScoredDoc is one entry of a ranked list.
type ScoredDoc struct {
	DocID index.DocID
	Score float64
}

// Top returns the n best entries of m, best first. Equal scores are ordered
// by ascending document id. n <= 0 returns every entry.
func Top(m ScoreMap, n int) []ScoredDoc {
	if n <= 0 || n > len(m) {
		n = len(m)
	}
	if n == 0 {
		return []ScoredDoc{}
	}
	h := make(scoredDocHeap, 0, n+1)
	for id, s := range m {
		doc := ScoredDoc{DocID: id, Score: s}
		if len(h) < n {
			heap.Push(&h, doc)
			continue
		}
		if worse(h[0], doc) {
			h[0] = doc
			heap.Fix(&h, 0)
		}
	}
	out := make([]ScoredDoc, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ScoredDoc)
	}
	return out
}

// Truncate keeps the n best entries of m as a new map.
func Truncate(m ScoreMap, n int) ScoreMap {
	if n <= 0 || len(m) <= n {
		out := make(ScoreMap, len(m))
		for id, s := range m {
			out[id] = s
		}
		return out
	}
	out := make(ScoreMap, n)
	for _, d := range Top(m, n) {
		out[d.DocID] = d.Score
	}
	return out
}

// worse reports whether a ranks below b.
func worse(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.DocID > b.DocID
}

// scoredDocHeap is a min-heap whose root is the worst retained entry.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int           { return len(h) }
func (h scoredDocHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h scoredDocHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
