package arbiter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cratedig/internal/audiofile"
	"cratedig/internal/evidence"
	"cratedig/internal/fuse"
)

type stubNormalizer struct {
	output *NormalizeOutput
	err    error
	calls  int
}

func (s *stubNormalizer) Normalize(_ context.Context, _ NormalizeInput) (*NormalizeOutput, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

func validOutput() *NormalizeOutput {
	return &NormalizeOutput{
		Title:      "Purple Rain",
		Artist:     "Prince",
		Date:       "1983-08-03",
		Venue:      "First Avenue",
		City:       "Minneapolis",
		SourceType: "SBD",
		Category:   "live",
		Confidence: 0.9,
		Rationale:  "fingerprint and reference agree",
	}
}

func testDecision(topScore float64) fuse.Decision {
	return fuse.Decision{Ranked: []fuse.Ranked{
		{
			Candidate: evidence.Candidate{
				Kind:          evidence.SourceReferenceDB,
				Title:         "First Avenue 1983",
				RecordingDate: "1983-08-03",
				Venue:         "First Avenue",
			},
			Score: topScore,
		},
	}}
}

func testDesc() *audiofile.Descriptor {
	return audiofile.NewDescriptorForTest("/in/show.flac", 296, map[string]string{
		"TITLE": "Purple Rain", "ARTIST": "Prince",
	})
}

func TestDecideProposed(t *testing.T) {
	norm := &stubNormalizer{output: validOutput()}
	arb := New(norm, "rules", Settings{}, nil)

	proposal := arb.Decide(context.Background(), testDesc(), testDecision(0.83))

	if proposal.Status != StatusProposed {
		t.Fatalf("expected proposed, got %s", proposal.Status)
	}
	if proposal.Fallback {
		t.Error("expected no fallback")
	}
	if proposal.Primary.Tags["DATE"] != "1983-08-03" {
		t.Errorf("unexpected DATE: %q", proposal.Primary.Tags["DATE"])
	}
	if proposal.Primary.Category != "live" {
		t.Errorf("unexpected category: %q", proposal.Primary.Category)
	}
	if !strings.HasPrefix(proposal.Primary.DestinationDir, "Live") {
		t.Errorf("unexpected destination: %q", proposal.Primary.DestinationDir)
	}
	if !strings.HasSuffix(proposal.Primary.Filename, ".flac") {
		t.Errorf("filename missing extension: %q", proposal.Primary.Filename)
	}
}

func TestDecideBelowThresholdIsAlwaysUnresolved(t *testing.T) {
	norm := &stubNormalizer{output: validOutput()}
	arb := New(norm, "", Settings{MinAutoScore: 0.9}, nil)

	proposal := arb.Decide(context.Background(), testDesc(), testDecision(0.5))
	if proposal.Status != StatusUnresolved {
		t.Fatalf("expected unresolved below threshold, got %s", proposal.Status)
	}
	// Primary still populated for human inspection.
	if proposal.Primary.Tags["TITLE"] == "" {
		t.Error("expected populated primary despite unresolved status")
	}
}

func TestDecideZeroCandidates(t *testing.T) {
	arb := New(&stubNormalizer{output: validOutput()}, "", Settings{}, nil)

	proposal := arb.Decide(context.Background(), testDesc(), fuse.Decision{})
	if proposal.Status != StatusUnresolved {
		t.Fatalf("expected unresolved, got %s", proposal.Status)
	}
	if len(proposal.Primary.Tags) != 0 {
		t.Errorf("expected empty primary, got %v", proposal.Primary.Tags)
	}
}

func TestDecidePathSeparatorTriggersFallback(t *testing.T) {
	bad := validOutput()
	bad.Venue = "First Avenue/Main Room"
	norm := &stubNormalizer{output: bad}
	arb := New(norm, "", Settings{}, nil)

	proposal := arb.Decide(context.Background(), testDesc(), testDecision(0.83))
	if !proposal.Fallback {
		t.Fatal("expected fallback on path separator in leaf field")
	}
	if proposal.Status != StatusUnresolved {
		t.Errorf("expected unresolved with fallback, got %s", proposal.Status)
	}
	if strings.ContainsAny(proposal.Primary.Filename, `/\`) {
		t.Errorf("invalid path leaked into filename: %q", proposal.Primary.Filename)
	}
	for _, value := range proposal.Primary.Tags {
		if strings.Contains(value, "/Main Room") {
			t.Errorf("invalid value leaked into tags: %q", value)
		}
	}
}

func TestDecideNormalizerErrorFallsBack(t *testing.T) {
	norm := &stubNormalizer{err: errors.New("backend down")}
	arb := New(norm, "", Settings{}, nil)

	proposal := arb.Decide(context.Background(), testDesc(), testDecision(0.83))
	if !proposal.Fallback {
		t.Fatal("expected fallback on normalizer error")
	}
	if proposal.Primary.Tags["TITLE"] == "" {
		t.Error("fallback template must never be empty while candidates exist")
	}
}

func TestDecideValidationCases(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NormalizeOutput)
	}{
		{"missing title", func(o *NormalizeOutput) { o.Title = "" }},
		{"missing artist", func(o *NormalizeOutput) { o.Artist = " " }},
		{"bad source type", func(o *NormalizeOutput) { o.SourceType = "BOOTLEG" }},
		{"bad category", func(o *NormalizeOutput) { o.Category = "misc" }},
		{"confidence too high", func(o *NormalizeOutput) { o.Confidence = 1.5 }},
		{"backslash in field", func(o *NormalizeOutput) { o.Album = `a\b` }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := validOutput()
			tc.mutate(out)
			if err := validateOutput(out); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if err := validateOutput(validOutput()); err != nil {
		t.Errorf("valid output rejected: %v", err)
	}
}

func TestDecideAlternatesProximityBand(t *testing.T) {
	decision := fuse.Decision{Ranked: []fuse.Ranked{
		{Candidate: evidence.Candidate{Kind: evidence.SourceReferenceDB, Title: "A", Artist: "Prince"}, Score: 0.80},
		{Candidate: evidence.Candidate{Kind: evidence.SourceMetadataService, Title: "B", Artist: "Prince"}, Score: 0.75},
		{Candidate: evidence.Candidate{Kind: evidence.SourceFileTags, Title: "C", Artist: "Prince"}, Score: 0.40},
	}}

	arb := New(RuleBased{}, "", Settings{AlternateProximity: 0.15}, nil)
	proposal := arb.Decide(context.Background(), testDesc(), decision)

	if len(proposal.Alternates) != 1 {
		t.Fatalf("expected exactly 1 alternate within band, got %d", len(proposal.Alternates))
	}
	if proposal.Alternates[0].Tags["TITLE"] != "B" {
		t.Errorf("unexpected alternate: %v", proposal.Alternates[0].Tags)
	}
}

func TestRuleBasedFillsFromOtherCandidatesAndTags(t *testing.T) {
	decision := fuse.Decision{Ranked: []fuse.Ranked{
		{Candidate: evidence.Candidate{Kind: evidence.SourceFingerprint}, Score: 0.9},
		{Candidate: evidence.Candidate{Kind: evidence.SourceReferenceDB, Title: "First Avenue 1983", Venue: "First Avenue", RecordingDate: "1983-08-03"}, Score: 0.7},
	}}

	out, err := RuleBased{}.Normalize(context.Background(), NormalizeInput{
		Descriptor: testDesc(),
		Ranked:     decision.Ranked,
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if out.Title != "First Avenue 1983" {
		t.Errorf("expected title from lower-ranked candidate, got %q", out.Title)
	}
	if out.Artist != "Prince" {
		t.Errorf("expected artist from descriptor tags, got %q", out.Artist)
	}
	if out.Category != "live" {
		t.Errorf("expected live category from venue, got %q", out.Category)
	}
}

func TestDecideAlreadyCorrectFileProposesNoChanges(t *testing.T) {
	desc := audiofile.NewDescriptorForTest("/library/Live/show.flac", 296, map[string]string{
		"TITLE": "Purple Rain", "ARTIST": "Prince", "DATE": "1983-08-03",
	})
	decision := fuse.Decision{Ranked: []fuse.Ranked{
		{Candidate: evidence.Candidate{
			Kind:          evidence.SourceFileTags,
			Title:         "Purple Rain",
			Artist:        "Prince",
			RecordingDate: "1983-08-03",
		}, Score: 0.25},
	}}

	arb := New(RuleBased{}, "", Settings{}, nil)
	proposal := arb.Decide(context.Background(), desc, decision)

	for key, want := range map[string]string{"TITLE": "Purple Rain", "ARTIST": "Prince", "DATE": "1983-08-03"} {
		if got := proposal.Primary.Tags[key]; got != want {
			t.Errorf("spurious change to %s: got %q, want %q", key, got, want)
		}
	}
	for key := range proposal.Primary.Tags {
		if _, ok := desc.Tag(key); !ok {
			t.Errorf("proposal introduced tag %s not present on the file", key)
		}
	}
}

func TestMemoizeBatch(t *testing.T) {
	norm := &stubNormalizer{output: validOutput()}
	arb := New(norm, "", Settings{MemoizeBatch: true}, nil)

	arb.Decide(context.Background(), testDesc(), testDecision(0.83))
	arb.Decide(context.Background(), testDesc(), testDecision(0.83))

	if norm.calls != 1 {
		t.Errorf("expected 1 normalizer call with memoization, got %d", norm.calls)
	}
}

func TestNoMemoizeByDefault(t *testing.T) {
	norm := &stubNormalizer{output: validOutput()}
	arb := New(norm, "", Settings{}, nil)

	arb.Decide(context.Background(), testDesc(), testDecision(0.83))
	arb.Decide(context.Background(), testDesc(), testDecision(0.83))

	if norm.calls != 2 {
		t.Errorf("expected 2 normalizer calls without memoization, got %d", norm.calls)
	}
}
