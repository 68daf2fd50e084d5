package index

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
)

func putDescriptor(t *testing.T, store *blob.MemStore, name string, d *Descriptor) {
	t.Helper()
	data, err := Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	store.Put("", name, data)
}

func TestLoadFields(t *testing.T) {
	store := blob.NewMemStore()
	b := NewBuilder("body", tokenizer.Default(), true)
	b.Add(1, "python programming")
	body, err := b.Build(store, "postings_body", DefaultBlockSize)
	if err != nil {
		t.Fatal(err)
	}
	putDescriptor(t, store, "body.cbor", body)

	fields, err := LoadFields(context.Background(), store, []config.FieldConfig{
		{Kind: "body", Descriptor: "body.cbor", Folder: "postings_body", Stemmed: true, Enabled: true},
		{Kind: "anchor", Descriptor: "anchor.cbor", Folder: "postings_anchor", Enabled: false},
	})
	if err != nil {
		t.Fatalf("LoadFields: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("loaded %d fields, want only the enabled one", len(fields))
	}
	f := fields.Get(KindBody)
	if f == nil || f.Folder != "postings_body" || !f.Stemmed || f.Descriptor.DF("python") != 1 {
		t.Fatalf("field = %+v", f)
	}
}

func TestLoadFieldsFailures(t *testing.T) {
	store := blob.NewMemStore()
	store.Put("", "garbage.cbor", []byte{0xff, 0x00})
	tests := []struct {
		name string
		cfg  config.FieldConfig
	}{
		{"missing descriptor", config.FieldConfig{Kind: "body", Descriptor: "body.cbor", Enabled: true}},
		{"unknown kind", config.FieldConfig{Kind: "footer", Descriptor: "footer.cbor", Enabled: true}},
		{"corrupt descriptor", config.FieldConfig{Kind: "title", Descriptor: "garbage.cbor", Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFields(context.Background(), store, []config.FieldConfig{tt.cfg}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
