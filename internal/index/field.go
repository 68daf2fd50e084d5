package index

import "fmt"

// FieldKind enumerates the indexed text channels of a document.
type FieldKind string

const (
	KindBody        FieldKind = "body"
	KindTitle       FieldKind = "title"
	KindTitleNoStem FieldKind = "title_nostem"
	KindAnchor      FieldKind = "anchor"
	KindBodyPhrase  FieldKind = "body_phrase"
	KindTitlePhrase FieldKind = "title_phrase"
)

var kinds = []FieldKind{KindBody, KindTitle, KindTitleNoStem, KindAnchor, KindBodyPhrase, KindTitlePhrase}

// ParseFieldKind validates a configured kind name.
func ParseFieldKind(s string) (FieldKind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}

// IsPhrase reports whether the field indexes underscore-joined bigrams.
func (k FieldKind) IsPhrase() bool {
	return k == KindBodyPhrase || k == KindTitlePhrase
}

// Field binds a kind to its descriptor, the storage folder holding its
// posting blocks, and whether its vocabulary is stemmed.
type Field struct {
	Kind       FieldKind
	Descriptor *Descriptor
	Folder     string
	Stemmed    bool
}

// Fields is the set of loaded fields keyed by kind.
type Fields map[FieldKind]*Field

// Get returns the field of kind k or nil.
func (f Fields) Get(k FieldKind) *Field {
	if f == nil {
		return nil
	}
	return f[k]
}
