// Package query turns raw query text into the per-request token views the
// scorers need.
package query

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index/tokenizer"
)

// Plan is the tokenized form of one query. It lives for a single request.
type Plan struct {
	Raw     string
	Tokens  []string
	Stemmed []string
	Bigrams []string
}

// Parse tokenizes raw once and derives the stemmed tokens and their bigrams.
func Parse(raw string, tok *tokenizer.Tokenizer) *Plan {
	tokens := tok.Tokenize(raw, false)
	stemmed := tokenizer.StemAll(tokens)
	return &Plan{
		Raw:     raw,
		Tokens:  tokens,
		Stemmed: stemmed,
		Bigrams: tokenizer.Bigrams(stemmed),
	}
}

// Empty reports whether no token survived tokenization.
func (p *Plan) Empty() bool { return len(p.Tokens) == 0 }

// For returns the tokens matching the stemming policy of f.
func (p *Plan) For(f *index.Field) []string {
	if f != nil && f.Stemmed {
		return p.Stemmed
	}
	return p.Tokens
}

// Normalize lowercases raw and collapses whitespace. Token order is kept
// because phrase scoring depends on it.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}
