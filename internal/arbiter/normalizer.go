package arbiter

import (
	"context"
	"fmt"
	"strings"

	"cratedig/internal/audiofile"
	"cratedig/internal/evidence"
	"cratedig/internal/fuse"
)

// Recognized category names for library placement.
const (
	CategoryLive       = "live"
	CategoryOuttakes   = "outtakes"
	CategoryOfficial   = "official"
	CategoryUnofficial = "unofficial"
)

// NormalizeInput is everything a normalizer may consider: the descriptor,
// the full ranked candidate list (not just the winner), and the free-text
// naming rules.
type NormalizeInput struct {
	Descriptor  *audiofile.Descriptor
	Ranked      []fuse.Ranked
	NamingRules string
}

// NormalizeOutput is the structured decision a normalizer produces. It is
// treated as untrusted and validated on every call.
type NormalizeOutput struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Date       string  `json:"date"`
	City       string  `json:"city"`
	Venue      string  `json:"venue"`
	SourceType string  `json:"source"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Normalizer turns ranked evidence plus naming rules into final field values.
// Implementations must behave as pure functions of their input.
type Normalizer interface {
	Normalize(ctx context.Context, input NormalizeInput) (*NormalizeOutput, error)
}

// RuleBased is the deterministic normalizer: a straight template over the
// top-ranked candidate with descriptor tags filling the gaps. It doubles as
// the fallback path when a backend's output fails validation.
type RuleBased struct{}

// Normalize implements Normalizer without any I/O.
func (RuleBased) Normalize(_ context.Context, input NormalizeInput) (*NormalizeOutput, error) {
	if len(input.Ranked) == 0 {
		return nil, fmt.Errorf("rule normalizer: no candidates")
	}
	return templateFromCandidate(input.Descriptor, input.Ranked[0], input.Ranked), nil
}

// templateFromCandidate builds a deterministic output from one candidate,
// borrowing missing fields from other candidates in rank order, then from the
// descriptor's existing tags.
func templateFromCandidate(desc *audiofile.Descriptor, top fuse.Ranked, all []fuse.Ranked) *NormalizeOutput {
	out := &NormalizeOutput{
		Title:      top.Candidate.Title,
		Artist:     top.Candidate.Artist,
		Album:      top.Candidate.Album,
		Date:       top.Candidate.RecordingDate,
		City:       top.Candidate.City,
		Venue:      top.Candidate.Venue,
		SourceType: string(top.Candidate.SourceType),
		Confidence: top.Score,
		Rationale:  fmt.Sprintf("template from %s candidate", top.Candidate.Kind),
	}

	for _, ranked := range all {
		cand := ranked.Candidate
		if out.Title == "" {
			out.Title = cand.Title
		}
		if out.Artist == "" {
			out.Artist = cand.Artist
		}
		if out.Album == "" {
			out.Album = cand.Album
		}
		if out.Date == "" {
			out.Date = cand.RecordingDate
		}
		if out.City == "" {
			out.City = cand.City
		}
		if out.Venue == "" {
			out.Venue = cand.Venue
		}
		if out.SourceType == "" {
			out.SourceType = string(cand.SourceType)
		}
	}
	if desc != nil {
		if out.Title == "" {
			out.Title, _ = desc.Tag("TITLE")
		}
		if out.Artist == "" {
			out.Artist, _ = desc.Tag("ARTIST")
		}
		if out.Album == "" {
			out.Album, _ = desc.Tag("ALBUM")
		}
		if out.Title == "" {
			out.Title = desc.RawFilename
		}
	}

	out.Category = inferCategory(out, top)
	return out
}

// inferCategory maps evidence onto a library category. Venue or city implies
// a live recording; a known lineage without performance facts suggests a
// studio outtake; everything else lands in unofficial.
func inferCategory(out *NormalizeOutput, top fuse.Ranked) string {
	if strings.TrimSpace(out.Venue) != "" || strings.TrimSpace(out.City) != "" {
		return CategoryLive
	}
	if top.Candidate.Kind == evidence.SourceMetadataService {
		return CategoryOfficial
	}
	if out.SourceType != "" && out.Date != "" {
		return CategoryOuttakes
	}
	return CategoryUnofficial
}

func validCategory(category string) bool {
	switch category {
	case CategoryLive, CategoryOuttakes, CategoryOfficial, CategoryUnofficial:
		return true
	}
	return false
}
