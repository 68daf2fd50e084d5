package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

// LoadFields loads the descriptor of every enabled field concurrently.
// Descriptors live at the store root under their configured name; posting
// blocks live in the field's folder. Any failure aborts the load.
func LoadFields(ctx context.Context, store blob.Store, cfgs []config.FieldConfig) (Fields, error) {
	fields := make(Fields, len(cfgs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, fc := range cfgs {
		if !fc.Enabled {
			continue
		}
		kind, err := ParseFieldKind(fc.Kind)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			desc, err := Load(gctx, store, "", fc.Descriptor)
			if err != nil {
				return fmt.Errorf("loading field %s: %w", kind, err)
			}
			slog.Info("field loaded",
				"field", kind,
				"terms", desc.VocabularySize(),
				"documents", desc.CollectionSize(),
				"avg_length", desc.AverageLength(),
			)
			mu.Lock()
			fields[kind] = &Field{Kind: kind, Descriptor: desc, Folder: fc.Folder, Stemmed: fc.Stemmed}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fields, nil
}
