package main

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cratedig/internal/arbiter"
	"cratedig/internal/audiofile"
	"cratedig/internal/pipeline"
)

func sampleResult() pipeline.FileResult {
	return pipeline.FileResult{
		Path:       "/in/1983-08-03 First Avenue.flac",
		Descriptor: audiofile.NewDescriptorForTest("/in/1983-08-03 First Avenue.flac", 296, nil),
		Proposal: &arbiter.Proposal{
			Primary: arbiter.Normalized{
				Tags:           map[string]string{"TITLE": "Purple Rain", "ARTIST": "Prince", "DATE": "1983-08-03"},
				DestinationDir: "Live/Prince 1983-08-03",
				Filename:       "Prince - 1983-08-03 - Purple Rain.flac",
				Confidence:     0.83,
			},
			Alternates: []arbiter.Normalized{{
				Tags:     map[string]string{"TITLE": "Purple Rain (soundcheck)", "ARTIST": "Prince"},
				Filename: "alt.flac",
			}},
			Status:     arbiter.StatusProposed,
			Confidence: 0.83,
			Rationale:  "fingerprint and reference agree",
		},
	}
}

func TestRenderProposal(t *testing.T) {
	out := renderProposal(sampleResult())

	for _, want := range []string{"Purple Rain", "1983-08-03", "Alternate 1", "proposed", "fingerprint and reference agree"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered proposal missing %q:\n%s", want, out)
		}
	}
}

func TestRenderProposalFallbackFlagged(t *testing.T) {
	result := sampleResult()
	result.Proposal.Fallback = true
	result.Proposal.Status = arbiter.StatusUnresolved

	out := renderProposal(result)
	if !strings.Contains(out, "deterministic template") {
		t.Errorf("fallback not surfaced:\n%s", out)
	}
	if !strings.Contains(out, "unresolved") {
		t.Errorf("status not surfaced:\n%s", out)
	}
}

func TestApproverNonTTYSkips(t *testing.T) {
	var out bytes.Buffer
	approver := &interactiveApprover{
		in:  bufio.NewReader(strings.NewReader("")),
		out: &out,
		tty: false,
	}

	review, err := approver.Review(sampleResult())
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Action != pipeline.ActionSkip {
		t.Errorf("expected skip outside a terminal, got %v", review.Action)
	}
}

func TestApproverAnswers(t *testing.T) {
	cases := []struct {
		input  string
		action pipeline.Action
		choice int
	}{
		{"a\n", pipeline.ActionApply, 0},
		{"apply\n", pipeline.ActionApply, 0},
		{"1\n", pipeline.ActionApply, 1},
		{"s\n", pipeline.ActionSkip, 0},
		{"\n", pipeline.ActionSkip, 0},
		{"q\n", pipeline.ActionQuarantine, 0},
		{"b\n", pipeline.ActionAbort, 0},
		{"huh\ns\n", pipeline.ActionSkip, 0},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		approver := &interactiveApprover{
			in:  bufio.NewReader(strings.NewReader(tc.input)),
			out: &out,
			tty: true,
		}
		review, err := approver.Review(sampleResult())
		if err != nil {
			t.Fatalf("Review(%q): %v", tc.input, err)
		}
		if review.Action != tc.action || review.Choice != tc.choice {
			t.Errorf("Review(%q) = %+v, want action %v choice %d", tc.input, review, tc.action, tc.choice)
		}
	}
}

func TestApproverUnresolvedRequiresConfirmation(t *testing.T) {
	cases := []struct {
		input  string
		action pipeline.Action
		choice int
	}{
		{"a\ny\n", pipeline.ActionApply, 0},
		{"a\nyes\n", pipeline.ActionApply, 0},
		{"a\nn\ns\n", pipeline.ActionSkip, 0},
		{"a\n\nq\n", pipeline.ActionQuarantine, 0},
		{"1\ny\n", pipeline.ActionApply, 1},
		{"1\nn\ns\n", pipeline.ActionSkip, 0},
	}
	for _, tc := range cases {
		result := sampleResult()
		result.Proposal.Status = arbiter.StatusUnresolved

		var out bytes.Buffer
		approver := &interactiveApprover{
			in:  bufio.NewReader(strings.NewReader(tc.input)),
			out: &out,
			tty: true,
		}
		review, err := approver.Review(result)
		if err != nil {
			t.Fatalf("Review(%q): %v", tc.input, err)
		}
		if review.Action != tc.action || review.Choice != tc.choice {
			t.Errorf("Review(%q) = %+v, want action %v choice %d", tc.input, review, tc.action, tc.choice)
		}
		if !strings.Contains(out.String(), "apply anyway?") {
			t.Errorf("Review(%q) did not ask for confirmation", tc.input)
		}
	}
}

func TestApproverProposedAppliesWithoutConfirmation(t *testing.T) {
	var out bytes.Buffer
	approver := &interactiveApprover{
		in:  bufio.NewReader(strings.NewReader("a\n")),
		out: &out,
		tty: true,
	}
	review, err := approver.Review(sampleResult())
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Action != pipeline.ActionApply {
		t.Errorf("expected apply, got %+v", review)
	}
	if strings.Contains(out.String(), "apply anyway?") {
		t.Error("proposed status must not prompt for extra confirmation")
	}
}

func TestApproverRejectsMissingAlternate(t *testing.T) {
	var out bytes.Buffer
	approver := &interactiveApprover{
		in:  bufio.NewReader(strings.NewReader("2\ns\n")),
		out: &out,
		tty: true,
	}
	review, err := approver.Review(sampleResult())
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Action != pipeline.ActionSkip {
		t.Errorf("expected re-prompt then skip, got %+v", review)
	}
	if !strings.Contains(out.String(), "no alternate 2") {
		t.Errorf("expected alternate rejection message")
	}
}

func TestCollectAudioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.flac", "a.mp3", "notes.txt", "nested/c.ogg"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := collectAudioFiles(dir)
	if err != nil {
		t.Fatalf("collectAudioFiles: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 audio files, got %d: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "a.mp3" {
		t.Errorf("expected sorted order, got %v", paths)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1", "2"}, {"3"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A") || !strings.Contains(out, "3") {
		t.Errorf("unexpected table output:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output for no headers")
	}
}

func TestRenderPairs(t *testing.T) {
	out := renderPairs("Tag", "Value", [][]string{{"TITLE", "Purple Rain"}})
	if !strings.Contains(out, "TITLE") || !strings.Contains(out, "Purple Rain") {
		t.Errorf("unexpected pairs output:\n%s", out)
	}
}
