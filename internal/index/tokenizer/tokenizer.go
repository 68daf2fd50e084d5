// Package tokenizer provides text tokenisation for the retrieval engine.
// It lower-cases input, extracts words with the same pattern the index was
// built with, removes English stop-words, and optionally applies the Porter
// stemmer.
package tokenizer

import (
	"regexp"
	"strings"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// Pattern selects the word-matching rule.
type Pattern string

const (
	// PatternStrict matches the index-building rule: a leading word
	// character, '#' or '@' followed by 2 to 24 word characters, each
	// optionally joined by an apostrophe or hyphen.
	PatternStrict Pattern = "strict"
	// PatternLight drops the length bound.
	PatternLight Pattern = "light"
)

const wordChar = `[\p{L}\p{N}_]`

var (
	strictWord = regexp.MustCompile(`[#@\p{L}\p{N}_](?:['\-]?` + wordChar + `){2,24}`)
	lightWord  = regexp.MustCompile(`[#@\p{L}\p{N}_](?:['\-]?` + wordChar + `)*`)
)

// Tokenizer turns raw text into normalised terms. It is stateless and safe
// for concurrent use.
type Tokenizer struct {
	word *regexp.Regexp
}

// New returns a Tokenizer using the given pattern. Unknown patterns fall
// back to PatternStrict.
func New(p Pattern) *Tokenizer {
	if p == PatternLight {
		return &Tokenizer{word: lightWord}
	}
	return &Tokenizer{word: strictWord}
}

// Default returns the strict Tokenizer.
func Default() *Tokenizer {
	return New(PatternStrict)
}

// Tokenize lower-cases text, extracts words, drops stop-words and, when stem
// is true, stems every surviving word. Empty input yields an empty slice.
func (t *Tokenizer) Tokenize(text string, stem bool) []string {
	text = strings.ToLower(text)
	words := t.word.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) {
			continue
		}
		if stem {
			word = Stem(word)
			if word == "" {
				continue
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Stem applies the Porter stemmer to a single lower-case word.
func Stem(word string) string {
	return porterstemmer.StemString(word)
}

// StemAll stems every token and returns a new slice.
func StemAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = Stem(tok)
	}
	return out
}

// Bigrams joins each adjacent pair of tokens with an underscore, the key
// format of the phrase indexes.
func Bigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 0; i < len(tokens)-1; i++ {
		out = append(out, tokens[i]+"_"+tokens[i+1])
	}
	return out
}
