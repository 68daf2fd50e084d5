package ranker

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/metadata"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/searcher/scoring"
)

func TestFuseWeightsAndNormalization(t *testing.T) {
	meta := metadata.New(
		map[index.DocID]float64{1: 2, 2: 4, 99: 1000},
		map[index.DocID]int64{1: 500},
		map[index.DocID]string{1: "One"},
	)
	r := New(DefaultWeights(), meta)
	got := r.Fuse(Signals{
		Body:   scoring.ScoreMap{1: 2, 2: 4},
		Title:  scoring.ScoreMap{1: 3},
		Anchor: scoring.ScoreMap{},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// doc 1: 0.30*0.5 + 0.50*1 + 0.05*0.5 = 0.675
	// doc 2: 0.30*1 + 0.05*1 = 0.35
	if got[0].DocID != 1 || math.Abs(got[0].Score-0.675) > 1e-9 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].DocID != 2 || math.Abs(got[1].Score-0.35) > 1e-9 {
		t.Errorf("second = %+v", got[1])
	}
	if got[0].Title != "One" || got[1].Title != UnknownTitle {
		t.Errorf("titles = %q, %q", got[0].Title, got[1].Title)
	}
}

func TestFusePopularityWeight(t *testing.T) {
	meta := metadata.New(nil, map[index.DocID]int64{2: 100}, nil)
	w := DefaultWeights()
	off := New(w, meta).Fuse(Signals{Body: scoring.ScoreMap{1: 1, 2: 1}})
	if off[0].DocID != 1 {
		t.Fatalf("with popularity weight 0, ties go to the lower id, got %+v", off)
	}
	w.Popularity = 0.1
	on := New(w, meta).Fuse(Signals{Body: scoring.ScoreMap{1: 1, 2: 1}})
	if on[0].DocID != 2 {
		t.Fatalf("popularity weight should promote doc 2, got %+v", on)
	}
}

func TestFuseTruncatesFieldsAndOutput(t *testing.T) {
	body := make(scoring.ScoreMap)
	for i := 1; i <= 1200; i++ {
		body[index.DocID(i)] = float64(i)
	}
	r := New(DefaultWeights(), metadata.New(nil, nil, nil))
	got := r.Fuse(Signals{Body: body})
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	if got[0].DocID != 1200 {
		t.Errorf("best = %d", got[0].DocID)
	}

	w := DefaultWeights()
	w.FieldDepth = 3
	small := New(w, metadata.New(nil, nil, nil)).Fuse(Signals{Body: body, Title: scoring.ScoreMap{5: 1}})
	if len(small) != 4 {
		t.Fatalf("candidates = %d, want 3 body + 1 title", len(small))
	}
}

func TestFuseEmpty(t *testing.T) {
	got := New(DefaultWeights(), metadata.New(nil, nil, nil)).Fuse(Signals{})
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil slice", got)
	}
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal([]Result{{DocID: 12, Title: "Go"}, {DocID: 7, Title: UnknownTitle}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[["12","Go"],["7","Unknown"]]` {
		t.Fatalf("json = %s", data)
	}
	var back []Result
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[0].DocID != 12 || back[1].Title != UnknownTitle {
		t.Fatalf("decoded = %+v", back)
	}
}
