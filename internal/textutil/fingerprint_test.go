package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewFingerprint("purple rain")},
		{"b nil", NewFingerprint("purple rain"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := NewFingerprint("Little Red Corvette")
	b := NewFingerprint("Little Red Corvette")
	if got := CosineSimilarity(a, b); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestTokenizeDropsLeadingArticle(t *testing.T) {
	got := Tokenize("The Cross")
	if len(got) != 1 || got[0] != "cross" {
		t.Errorf("Tokenize() = %v, want [cross]", got)
	}
}

func TestTokenizeKeepsShortTokens(t *testing.T) {
	got := Tokenize("Do Me Baby")
	if len(got) != 3 {
		t.Errorf("Tokenize() = %v, want 3 tokens", got)
	}
}

func TestFoldStripsDiacritics(t *testing.T) {
	if got := Fold("Café"); got != "cafe" {
		t.Errorf("Fold() = %q, want %q", got, "cafe")
	}
}

func TestTitleSimilarityCompactEquality(t *testing.T) {
	if got := TitleSimilarity("BoomStratus", "Boom Stratus"); got != 1.0 {
		t.Errorf("TitleSimilarity() = %v, want 1.0", got)
	}
}

func TestTitleSimilarityDisjoint(t *testing.T) {
	if got := TitleSimilarity("Purple Rain", "Raspberry Beret"); got != 0 {
		t.Errorf("TitleSimilarity() = %v, want 0", got)
	}
}

func TestTitleSimilarityPartialOverlap(t *testing.T) {
	got := TitleSimilarity("Purple Rain", "Purple Rain (Live)")
	if got <= 0.5 {
		t.Errorf("TitleSimilarity() = %v, want > 0.5", got)
	}
}
