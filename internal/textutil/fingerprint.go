package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// diacriticFolder decomposes characters and strips combining marks so that
// "Café" and "Cafe" tokenize identically.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fingerprint represents a term-frequency vector for title similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize splits text into lowercase diacritic-folded tokens. Leading
// articles are dropped so "The Cross" matches "Cross".
func Tokenize(text string) []string {
	folded := Fold(text)
	raw := tokenSplitPattern.Split(folded, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if len(terms) == 0 && (token == "the" || token == "a" || token == "an") {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// Fold lowercases text and strips diacritics for comparison purposes.
func Fold(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	folded, _, err := transform.String(diacriticFolder, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// TitleSimilarity is a convenience wrapper that fingerprints both titles and
// returns their cosine similarity, with a fast path for compact equality
// ("BoomStratus" vs "Boom Stratus").
func TitleSimilarity(a, b string) float64 {
	compactA := strings.ReplaceAll(Fold(a), " ", "")
	compactB := strings.ReplaceAll(Fold(b), " ", "")
	if compactA != "" && compactA == compactB {
		return 1.0
	}
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}
