package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"cratedig/internal/audiofile"
	"cratedig/internal/logging"
	"cratedig/internal/refdb"
	"cratedig/internal/respcache"
	"cratedig/internal/services/acoustid"
	"cratedig/internal/services/musicbrainz"
)

const (
	cacheServiceAcoustID    = "acoustid"
	cacheServiceMusicBrainz = "musicbrainz"

	transientRetryBackoff = 2 * time.Second
)

// FingerprintService resolves an audio file to scored external recording ids.
type FingerprintService interface {
	Lookup(ctx context.Context, path string) ([]acoustid.Match, error)
}

// MetadataService resolves an external recording id to recording metadata.
type MetadataService interface {
	LookupRecording(ctx context.Context, recordingID string) (*musicbrainz.Recording, error)
}

// ReferenceSearch queries the local reference database by fuzzy title or by
// exact date plus venue.
type ReferenceSearch interface {
	SearchByTitle(ctx context.Context, query string, threshold float64, maxResults int) ([]refdb.Match, error)
	SearchByDateVenue(ctx context.Context, date, venue string) ([]refdb.Match, error)
}

// Settings bounds the collector's fan-out.
type Settings struct {
	MaxMetadataLookups  int
	SimilarityThreshold float64
	MaxReferenceResults int
}

// Collector gathers candidates from every evidence source for one file. A
// source failing contributes zero candidates; it never aborts the file.
type Collector struct {
	fingerprint FingerprintService
	metadata    MetadataService
	reference   ReferenceSearch
	cache       *respcache.Cache
	settings    Settings
	logger      *slog.Logger
	sleeper     func(time.Duration)
}

// Option customizes the collector.
type Option func(*Collector)

// WithSleeper overrides the retry backoff sleep (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Collector) {
		c.sleeper = sleeper
	}
}

// NewCollector wires the three evidence services together. Any service may be
// nil; that source then contributes nothing.
func NewCollector(fp FingerprintService, md MetadataService, ref ReferenceSearch, cache *respcache.Cache, settings Settings, logger *slog.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	if settings.MaxMetadataLookups <= 0 {
		settings.MaxMetadataLookups = 5
	}
	if settings.SimilarityThreshold <= 0 {
		settings.SimilarityThreshold = 0.6
	}
	if settings.MaxReferenceResults <= 0 {
		settings.MaxReferenceResults = 5
	}
	c := &Collector{
		fingerprint: fp,
		metadata:    md,
		reference:   ref,
		cache:       cache,
		settings:    settings,
		logger:      logging.NewComponentLogger(logger, "evidence"),
		sleeper:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect gathers candidates for one descriptor. The three remote lookups run
// concurrently and are joined before return. Candidate order is deterministic:
// fingerprint, metadata service, reference db, file tags, filename.
func (c *Collector) Collect(ctx context.Context, desc *audiofile.Descriptor) []Candidate {
	var (
		wg           sync.WaitGroup
		fpCandidates []Candidate
		mdCandidates []Candidate
		refCands     []Candidate
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fpCandidates, mdCandidates = c.collectRemote(ctx, desc)
	}()
	go func() {
		defer wg.Done()
		refCands = c.collectReference(ctx, desc)
	}()
	wg.Wait()

	candidates := make([]Candidate, 0, len(fpCandidates)+len(mdCandidates)+len(refCands)+2)
	candidates = append(candidates, fpCandidates...)
	candidates = append(candidates, mdCandidates...)
	candidates = append(candidates, refCands...)
	if tagCand, ok := c.fromFileTags(desc); ok {
		candidates = append(candidates, tagCand)
	}
	if nameCand, ok := c.fromFilename(desc); ok {
		candidates = append(candidates, nameCand)
	}

	c.logger.Debug("collected candidates",
		logging.String(logging.FieldFile, desc.Path),
		logging.Int("candidate_count", len(candidates)))
	return candidates
}

// collectRemote runs the fingerprint lookup and the per-recording metadata
// lookups it fans out to. The two run in the same goroutine because metadata
// lookups depend on fingerprint results.
func (c *Collector) collectRemote(ctx context.Context, desc *audiofile.Descriptor) (fp, md []Candidate) {
	if c.fingerprint == nil {
		return nil, nil
	}

	matches, err := c.lookupFingerprint(ctx, desc)
	if err != nil {
		c.logger.Warn("fingerprint lookup failed",
			logging.String(logging.FieldFile, desc.Path),
			logging.Error(err))
		return nil, nil
	}

	var recordingIDs []string
	for _, match := range matches {
		fp = append(fp, Candidate{
			Kind:          SourceFingerprint,
			RawConfidence: match.Score,
			ExternalIDs:   map[string]string{"acoustid": match.AcoustID},
			Notes:         fmt.Sprintf("%d linked recordings", len(match.RecordingIDs)),
		})
		recordingIDs = append(recordingIDs, match.RecordingIDs...)
	}

	if c.metadata == nil {
		return fp, nil
	}
	if len(recordingIDs) > c.settings.MaxMetadataLookups {
		recordingIDs = recordingIDs[:c.settings.MaxMetadataLookups]
	}
	for _, id := range recordingIDs {
		rec, err := c.lookupRecording(ctx, id)
		if err != nil {
			// Silent per-id degrade keeps the fingerprint-only data.
			c.logger.Debug("metadata lookup degraded",
				logging.String("recording_id", id),
				logging.Error(err))
			continue
		}
		md = append(md, Candidate{
			Kind:            SourceMetadataService,
			Title:           rec.Title,
			Artist:          rec.Artist,
			RecordingDate:   rec.FirstDate,
			DurationSeconds: rec.LengthMillis / 1000,
			ExternalIDs:     map[string]string{"musicbrainz": rec.ID},
			RawConfidence:   1.0,
			Notes:           rec.Disambiguation,
		})
	}
	return fp, md
}

// lookupFingerprint performs the single fingerprint lookup with one transient
// retry, consulting the response cache first.
func (c *Collector) lookupFingerprint(ctx context.Context, desc *audiofile.Descriptor) ([]acoustid.Match, error) {
	request := fmt.Sprintf("%s|%d|%d", desc.RawFilename, desc.FileSize, desc.DurationSeconds)
	if c.cache != nil {
		if payload, found := c.cache.Get(cacheServiceAcoustID, request); found {
			var matches []acoustid.Match
			if err := json.Unmarshal([]byte(payload), &matches); err == nil {
				return matches, nil
			}
		}
	}

	matches, err := c.fingerprint.Lookup(ctx, desc.Path)
	if err != nil {
		c.sleeper(transientRetryBackoff)
		matches, err = c.fingerprint.Lookup(ctx, desc.Path)
		if err != nil {
			return nil, err
		}
	}

	if c.cache != nil {
		if payload, marshalErr := json.Marshal(matches); marshalErr == nil {
			if cacheErr := c.cache.Put(cacheServiceAcoustID, request, string(payload)); cacheErr != nil {
				c.logger.Debug("cache write failed", logging.Error(cacheErr))
			}
		}
	}
	return matches, nil
}

func (c *Collector) lookupRecording(ctx context.Context, id string) (*musicbrainz.Recording, error) {
	if c.cache != nil {
		if payload, found := c.cache.Get(cacheServiceMusicBrainz, id); found {
			var rec musicbrainz.Recording
			if err := json.Unmarshal([]byte(payload), &rec); err == nil {
				return &rec, nil
			}
		}
	}

	rec, err := c.metadata.LookupRecording(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if payload, marshalErr := json.Marshal(rec); marshalErr == nil {
			if cacheErr := c.cache.Put(cacheServiceMusicBrainz, id, string(payload)); cacheErr != nil {
				c.logger.Debug("cache write failed", logging.Error(cacheErr))
			}
		}
	}
	return rec, nil
}

// collectReference issues one fuzzy query keyed by the best available title
// evidence: existing TITLE tag first, raw filename otherwise. When the file
// tags carry a date, an exact date+venue query corroborates the title match.
func (c *Collector) collectReference(ctx context.Context, desc *audiofile.Descriptor) []Candidate {
	if c.reference == nil {
		return nil
	}

	query := desc.RawFilename
	if title, ok := desc.Tag("TITLE"); ok && strings.TrimSpace(title) != "" {
		query = title
	}

	matches, err := c.reference.SearchByTitle(ctx, query, c.settings.SimilarityThreshold, c.settings.MaxReferenceResults)
	if err != nil {
		c.logger.Warn("reference db query failed",
			logging.String(logging.FieldFile, desc.Path),
			logging.Error(err))
		return nil
	}

	if date, ok := desc.Tag("DATE"); ok && strings.TrimSpace(date) != "" {
		venue, _ := desc.Tag("VENUE")
		exact, err := c.reference.SearchByDateVenue(ctx, date, venue)
		if err != nil {
			c.logger.Warn("reference db date query failed",
				logging.String(logging.FieldFile, desc.Path),
				logging.Error(err))
		} else {
			seen := make(map[int64]bool, len(matches))
			for _, match := range matches {
				seen[match.Recording.ID] = true
			}
			for _, match := range exact {
				if !seen[match.Recording.ID] {
					matches = append(matches, match)
				}
			}
		}
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, match := range matches {
		rec := match.Recording
		candidates = append(candidates, Candidate{
			Kind:            SourceReferenceDB,
			Title:           rec.Title,
			RecordingDate:   rec.RecordingDate,
			City:            rec.City,
			Venue:           rec.Venue,
			SourceType:      ParseSourceType(rec.SourceType),
			DurationSeconds: rec.DurationSeconds,
			ExternalIDs:     map[string]string{"refdb": fmt.Sprintf("%d", rec.ID)},
			RawConfidence:   match.Similarity,
			Notes:           rec.Notes,
			VarianceNote:    strings.TrimSpace(rec.VarianceNote) != "",
		})
	}
	return candidates
}

// fromFileTags synthesizes a candidate from the descriptor's existing tags.
// No tags at all means no candidate.
func (c *Collector) fromFileTags(desc *audiofile.Descriptor) (Candidate, bool) {
	cand := Candidate{Kind: SourceFileTags}
	any := false
	if v, ok := desc.Tag("TITLE"); ok {
		cand.Title, any = v, true
	}
	if v, ok := desc.Tag("ARTIST"); ok {
		cand.Artist, any = v, true
	}
	if v, ok := desc.Tag("DATE"); ok {
		cand.RecordingDate, any = v, true
	}
	if v, ok := desc.Tag("CITY"); ok {
		cand.City, any = v, true
	}
	if v, ok := desc.Tag("VENUE"); ok {
		cand.Venue, any = v, true
	}
	if v, ok := desc.Tag("SOURCE"); ok {
		cand.SourceType, any = ParseSourceType(v), true
	}
	if v, ok := desc.Tag("ALBUM"); ok {
		cand.Album, any = v, true
	}
	if v, ok := desc.Tag("TRACKNUMBER"); ok {
		cand.TrackNumber, any = v, true
	}
	return cand, any
}

var filenameDatePattern = regexp.MustCompile(`\b(\d{4}(?:-\d{2}-\d{2})?)\b`)

// fromFilename synthesizes a candidate from the raw filename: an embedded
// date if one parses, the rest as a title guess.
func (c *Collector) fromFilename(desc *audiofile.Descriptor) (Candidate, bool) {
	name := strings.TrimSpace(desc.RawFilename)
	if name == "" {
		return Candidate{}, false
	}

	cand := Candidate{Kind: SourceFilename}
	if m := filenameDatePattern.FindString(name); m != "" {
		cand.RecordingDate = m
		name = strings.TrimSpace(strings.Replace(name, m, "", 1))
	}
	name = strings.Trim(name, " -_.")
	cand.Title = strings.Join(strings.Fields(strings.NewReplacer("_", " ", ".", " ").Replace(name)), " ")
	if cand.Title == "" && cand.RecordingDate == "" {
		return Candidate{}, false
	}
	return cand, true
}
