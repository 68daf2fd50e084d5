// Package metadata holds the query-independent per-document tables: authority
// (PageRank), popularity (page views) and titles. Tables are loaded once at
// startup and only read afterwards.
package metadata

import (
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
)

// Store is the read-only set of metadata tables.
type Store struct {
	authority  map[index.DocID]float64
	popularity map[index.DocID]int64
	titles     map[index.DocID]string
}

// New takes ownership of the given tables; nil tables are treated as empty.
func New(authority map[index.DocID]float64, popularity map[index.DocID]int64, titles map[index.DocID]string) *Store {
	if authority == nil {
		authority = map[index.DocID]float64{}
	}
	if popularity == nil {
		popularity = map[index.DocID]int64{}
	}
	if titles == nil {
		titles = map[index.DocID]string{}
	}
	return &Store{authority: authority, popularity: popularity, titles: titles}
}

// Authority returns the authority score of id, 0 when unknown.
func (s *Store) Authority(id index.DocID) float64 { return s.authority[id] }

// Popularity returns the view count of id, 0 when unknown.
func (s *Store) Popularity(id index.DocID) int64 { return s.popularity[id] }

// Title returns the title of id.
func (s *Store) Title(id index.DocID) (string, bool) {
	t, ok := s.titles[id]
	return t, ok
}

// AuthorityOf returns the authority scores of ids in order.
func (s *Store) AuthorityOf(ids []index.DocID) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = s.authority[id]
	}
	return out
}

// PopularityOf returns the view counts of ids in order.
func (s *Store) PopularityOf(ids []index.DocID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = s.popularity[id]
	}
	return out
}

func (s *Store) TitleCount() int { return len(s.titles) }

func (s *Store) Sizes() (authority, popularity, titles int) {
	return len(s.authority), len(s.popularity), len(s.titles)
}
