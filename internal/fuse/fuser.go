package fuse

import (
	"sort"
	"strings"

	"cratedig/internal/audiofile"
	"cratedig/internal/evidence"
	"cratedig/internal/textutil"
)

// Source weights are this implementation's documented constants. Raw
// confidences are source-local; only weight × raw is comparable across
// kinds.
const (
	WeightFingerprint     = 1.0
	WeightReferenceDB     = 0.9
	WeightMetadataService = 0.75
	WeightFileTags        = 0.5
	WeightFilename        = 0.3
)

// Heuristic raw confidences for sources without a native score.
const (
	heuristicFileTags = 0.5
	heuristicFilename = 0.3
)

// Defaults for the duration cross-check and corroboration matching.
const (
	DefaultDurationToleranceSecs  = 5
	DefaultDurationPenaltyFactor  = 0.6
	DefaultCorroborationTolerance = 0.85
)

// Ranked is one candidate annotated with its normalized cross-source score.
type Ranked struct {
	Candidate     evidence.Candidate
	Score         float64
	Corroboration int
	Penalized     bool
}

// Decision is the fused output for one file: candidates in rank order, best
// first. The ranking is total and stable; identical input yields identical
// output.
type Decision struct {
	Ranked []Ranked
}

// Top returns the best-ranked entry, or false when no candidates existed.
func (d Decision) Top() (Ranked, bool) {
	if len(d.Ranked) == 0 {
		return Ranked{}, false
	}
	return d.Ranked[0], true
}

// Settings tunes the duration cross-check and corroboration matching.
type Settings struct {
	DurationToleranceSecs  int
	DurationPenaltyFactor  float64
	CorroborationTolerance float64
}

// Fuser merges candidates into one ranked decision.
type Fuser struct {
	settings Settings
}

// New constructs a fuser, filling unset settings with defaults.
func New(settings Settings) *Fuser {
	if settings.DurationToleranceSecs <= 0 {
		settings.DurationToleranceSecs = DefaultDurationToleranceSecs
	}
	if settings.DurationPenaltyFactor <= 0 || settings.DurationPenaltyFactor >= 1 {
		settings.DurationPenaltyFactor = DefaultDurationPenaltyFactor
	}
	if settings.CorroborationTolerance <= 0 || settings.CorroborationTolerance > 1 {
		settings.CorroborationTolerance = DefaultCorroborationTolerance
	}
	return &Fuser{settings: settings}
}

// Fuse scores and ranks candidates for one descriptor. Zero candidates yield
// an empty decision; the caller short-circuits to an unresolved proposal.
func (f *Fuser) Fuse(desc *audiofile.Descriptor, candidates []evidence.Candidate) Decision {
	ranked := make([]Ranked, 0, len(candidates))
	for _, cand := range candidates {
		score, penalized := f.score(desc, cand)
		ranked = append(ranked, Ranked{
			Candidate:     cand,
			Score:         score,
			Corroboration: f.corroboration(cand, candidates),
			Penalized:     penalized,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Corroboration != ranked[j].Corroboration {
			return ranked[i].Corroboration > ranked[j].Corroboration
		}
		return kindRank(ranked[i].Candidate.Kind) < kindRank(ranked[j].Candidate.Kind)
	})

	return Decision{Ranked: ranked}
}

func (f *Fuser) score(desc *audiofile.Descriptor, cand evidence.Candidate) (float64, bool) {
	var weight, raw float64
	switch cand.Kind {
	case evidence.SourceFingerprint:
		weight, raw = WeightFingerprint, cand.RawConfidence
	case evidence.SourceReferenceDB:
		weight, raw = WeightReferenceDB, cand.RawConfidence
	case evidence.SourceMetadataService:
		weight, raw = WeightMetadataService, cand.RawConfidence
	case evidence.SourceFileTags:
		weight, raw = WeightFileTags, heuristicFileTags
	case evidence.SourceFilename:
		weight, raw = WeightFilename, heuristicFilename
	}
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	score := weight * raw

	penalized := false
	if cand.DurationSeconds > 0 && desc.DurationSeconds > 0 && !cand.VarianceNote {
		diff := cand.DurationSeconds - desc.DurationSeconds
		if diff < 0 {
			diff = -diff
		}
		if diff > f.settings.DurationToleranceSecs {
			score *= f.settings.DurationPenaltyFactor
			penalized = true
		}
	}
	return score, penalized
}

// corroboration counts how many other candidates agree with cand on date,
// venue, or title. Empty fields never count as agreement.
func (f *Fuser) corroboration(cand evidence.Candidate, all []evidence.Candidate) int {
	count := 0
	for i := range all {
		other := all[i]
		if other.Kind == cand.Kind && equalCandidate(other, cand) {
			continue
		}
		if agreeDate(cand.RecordingDate, other.RecordingDate) {
			count++
		}
		if agreeText(cand.Venue, other.Venue) {
			count++
		}
		if cand.Title != "" && other.Title != "" &&
			textutil.TitleSimilarity(cand.Title, other.Title) >= f.settings.CorroborationTolerance {
			count++
		}
	}
	return count
}

func equalCandidate(a, b evidence.Candidate) bool {
	return a.Title == b.Title && a.RecordingDate == b.RecordingDate &&
		a.Venue == b.Venue && a.RawConfidence == b.RawConfidence
}

// agreeDate treats a year-only value as agreeing with any full date in that
// year.
func agreeDate(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) == 4 && strings.HasPrefix(b, a) {
		return true
	}
	if len(b) == 4 && strings.HasPrefix(a, b) {
		return true
	}
	return false
}

func agreeText(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// kindRank orders source kinds for the final deterministic tie-break.
func kindRank(kind evidence.SourceKind) int {
	switch kind {
	case evidence.SourceReferenceDB:
		return 0
	case evidence.SourceMetadataService:
		return 1
	case evidence.SourceFingerprint:
		return 2
	case evidence.SourceFileTags:
		return 3
	case evidence.SourceFilename:
		return 4
	}
	return 5
}
