package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"cratedig/internal/audiofile"
	"cratedig/internal/evidence"
	"cratedig/internal/fuse"
	"cratedig/internal/logging"
	"cratedig/internal/textutil"
)

// Status marks whether a proposal is ready for human approval or needs
// manual resolution.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusUnresolved Status = "unresolved"
)

// Normalized is one reviewable outcome: final tags plus where the file
// should live.
type Normalized struct {
	Tags           map[string]string
	Category       string
	DestinationDir string // relative to the library root
	Filename       string
	Confidence     float64
	Rationale      string
}

// Proposal is the arbiter's output for one file. Primary and alternates are
// populated whenever any candidates exist, even when unresolved, so a human
// always has something to inspect.
type Proposal struct {
	Primary    Normalized
	Alternates []Normalized
	Confidence float64
	Status     Status
	Rationale  string
	Fallback   bool // normalizer output failed validation, template used
}

// Settings tunes arbitration policy.
type Settings struct {
	MinAutoScore       float64
	AlternateProximity float64
	CategoryDirs       map[string]string // category name -> library subdir
	MemoizeBatch       bool
}

// Arbiter turns fused decisions into proposals via the normalizer.
type Arbiter struct {
	normalizer  Normalizer
	settings    Settings
	namingRules string
	logger      *slog.Logger

	mu   sync.Mutex
	memo map[string]*NormalizeOutput
}

// New constructs an arbiter. CategoryDirs defaults to capitalized category
// names when unset.
func New(normalizer Normalizer, namingRules string, settings Settings, logger *slog.Logger) *Arbiter {
	if logger == nil {
		logger = logging.NewNop()
	}
	if settings.AlternateProximity <= 0 {
		settings.AlternateProximity = 0.15
	}
	if settings.CategoryDirs == nil {
		settings.CategoryDirs = map[string]string{
			CategoryLive:       "Live",
			CategoryOuttakes:   "Outtakes",
			CategoryOfficial:   "Official",
			CategoryUnofficial: "Unofficial",
		}
	}
	return &Arbiter{
		normalizer:  normalizer,
		settings:    settings,
		namingRules: namingRules,
		logger:      logging.NewComponentLogger(logger, "arbiter"),
		memo:        make(map[string]*NormalizeOutput),
	}
}

// Decide produces a proposal from the fused decision. The normalizer output
// is validated strictly; on violation the deterministic template substitutes
// and the proposal is downgraded to unresolved with the fallback flagged.
func (a *Arbiter) Decide(ctx context.Context, desc *audiofile.Descriptor, decision fuse.Decision) *Proposal {
	top, ok := decision.Top()
	if !ok {
		return &Proposal{
			Status:    StatusUnresolved,
			Rationale: "no identification candidates from any source",
		}
	}

	input := NormalizeInput{Descriptor: desc, Ranked: decision.Ranked, NamingRules: a.namingRules}
	output, err := a.normalize(ctx, input)
	fallback := false
	if err == nil {
		err = validateOutput(output)
	}
	if err != nil {
		a.logger.Warn("normalizer output rejected, using template",
			logging.String(logging.FieldFile, desc.Path),
			logging.Error(err))
		output = templateFromCandidate(desc, top, decision.Ranked)
		fallback = true
	}

	proposal := &Proposal{
		Primary:    a.toNormalized(desc, output),
		Confidence: top.Score,
		Status:     StatusProposed,
		Rationale:  output.Rationale,
		Fallback:   fallback,
	}
	if fallback || top.Score < a.settings.MinAutoScore {
		proposal.Status = StatusUnresolved
	}

	proposal.Alternates = a.alternates(ctx, desc, decision, top.Score)
	return proposal
}

// alternates normalizes the 2nd and 3rd ranked candidates when their score
// sits within the proximity band of the top score.
func (a *Arbiter) alternates(ctx context.Context, desc *audiofile.Descriptor, decision fuse.Decision, topScore float64) []Normalized {
	var out []Normalized
	for i := 1; i < len(decision.Ranked) && i <= 2; i++ {
		ranked := decision.Ranked[i]
		if topScore-ranked.Score > a.settings.AlternateProximity {
			continue
		}
		input := NormalizeInput{
			Descriptor:  desc,
			Ranked:      []fuse.Ranked{ranked},
			NamingRules: a.namingRules,
		}
		output, err := a.normalize(ctx, input)
		if err == nil {
			err = validateOutput(output)
		}
		if err != nil {
			output = templateFromCandidate(desc, ranked, input.Ranked)
		}
		alt := a.toNormalized(desc, output)
		alt.Confidence = ranked.Score
		out = append(out, alt)
	}
	return out
}

// normalize invokes the normalizer, memoizing identical inputs within this
// arbiter's lifetime when enabled.
func (a *Arbiter) normalize(ctx context.Context, input NormalizeInput) (*NormalizeOutput, error) {
	if !a.settings.MemoizeBatch {
		return a.normalizer.Normalize(ctx, input)
	}

	key, err := BuildPrompt(input)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	cached, found := a.memo[key]
	a.mu.Unlock()
	if found {
		return cached, nil
	}

	output, err := a.normalizer.Normalize(ctx, input)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.memo[key] = output
	a.mu.Unlock()
	return output, nil
}

// toNormalized maps validated output to final tags, destination, and
// filename. All field values pass through filename sanitation before they
// touch a path.
func (a *Arbiter) toNormalized(desc *audiofile.Descriptor, output *NormalizeOutput) Normalized {
	tags := map[string]string{}
	put := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			tags[key] = strings.TrimSpace(value)
		}
	}
	put("TITLE", output.Title)
	put("ARTIST", output.Artist)
	put("ALBUM", output.Album)
	put("DATE", output.Date)
	put("CITY", output.City)
	put("VENUE", output.Venue)
	put("SOURCE", strings.ToUpper(output.SourceType))

	category := output.Category
	if !validCategory(category) {
		category = CategoryUnofficial
	}
	dir := a.settings.CategoryDirs[category]

	album := output.Album
	if strings.TrimSpace(album) == "" {
		album = strings.TrimSpace(output.Artist + " " + output.Date)
	}
	if strings.TrimSpace(album) != "" {
		dir = filepath.Join(dir, textutil.SanitizeFileName(album))
	}

	prefix := ""
	if output.Artist != "" {
		prefix += textutil.SanitizeFileName(output.Artist) + " - "
	}
	if output.Date != "" {
		prefix += textutil.SanitizeFileName(output.Date) + " - "
	}
	ext := ""
	if desc != nil {
		ext = desc.Extension
	}
	filename := textutil.TruncateFileName(prefix, textutil.SanitizeFileName(output.Title), ext)

	return Normalized{
		Tags:           tags,
		Category:       category,
		DestinationDir: dir,
		Filename:       filename,
		Confidence:     output.Confidence,
		Rationale:      output.Rationale,
	}
}

// validateOutput enforces the strict schema on untrusted normalizer output:
// required keys present, enum membership, leaf-name safety, confidence in
// range.
func validateOutput(output *NormalizeOutput) error {
	if output == nil {
		return fmt.Errorf("normalizer returned nothing")
	}
	if strings.TrimSpace(output.Title) == "" {
		return fmt.Errorf("missing required field: title")
	}
	if strings.TrimSpace(output.Artist) == "" {
		return fmt.Errorf("missing required field: artist")
	}
	if !evidence.ValidSourceType(output.SourceType) {
		return fmt.Errorf("unknown source type %q", output.SourceType)
	}
	if !validCategory(output.Category) {
		return fmt.Errorf("unknown category %q", output.Category)
	}
	if output.Confidence < 0 || output.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range", output.Confidence)
	}

	leafFields := map[string]string{
		"title":  output.Title,
		"artist": output.Artist,
		"album":  output.Album,
		"date":   output.Date,
		"city":   output.City,
		"venue":  output.Venue,
	}
	for name, value := range leafFields {
		if strings.ContainsAny(value, `/\`) {
			return fmt.Errorf("field %s contains a path separator: %q", name, value)
		}
	}
	return nil
}
