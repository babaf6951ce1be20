package evidence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cratedig/internal/audiofile"
	"cratedig/internal/refdb"
	"cratedig/internal/respcache"
	"cratedig/internal/services/acoustid"
	"cratedig/internal/services/musicbrainz"
)

type stubFingerprint struct {
	matches  []acoustid.Match
	errs     []error
	calls    int
}

func (s *stubFingerprint) Lookup(ctx context.Context, path string) ([]acoustid.Match, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.matches, nil
}

type stubMetadata struct {
	recordings map[string]*musicbrainz.Recording
	calls      int
}

func (s *stubMetadata) LookupRecording(ctx context.Context, id string) (*musicbrainz.Recording, error) {
	s.calls++
	rec, ok := s.recordings[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

type stubReference struct {
	matches     []refdb.Match
	dateMatches []refdb.Match
	err         error
	query       string
	dateQuery   string
	venueQuery  string
}

func (s *stubReference) SearchByTitle(ctx context.Context, query string, threshold float64, maxResults int) ([]refdb.Match, error) {
	s.query = query
	return s.matches, s.err
}

func (s *stubReference) SearchByDateVenue(ctx context.Context, date, venue string) ([]refdb.Match, error) {
	s.dateQuery = date
	s.venueQuery = venue
	return s.dateMatches, s.err
}

func noSleep(time.Duration) {}

func testDescriptor() *audiofile.Descriptor {
	return audiofile.NewDescriptorForTest("/in/1983-08-03 First Avenue.flac", 296, map[string]string{
		"TITLE":  "Purple Rain",
		"ARTIST": "Prince",
		"DATE":   "1984",
	})
}

func TestCollectAllSources(t *testing.T) {
	fp := &stubFingerprint{matches: []acoustid.Match{
		{AcoustID: "aid-1", Score: 0.92, RecordingIDs: []string{"mbid-1"}},
	}}
	md := &stubMetadata{recordings: map[string]*musicbrainz.Recording{
		"mbid-1": {ID: "mbid-1", Title: "Purple Rain", Artist: "Prince", LengthMillis: 296000, FirstDate: "1984-06-25"},
	}}
	ref := &stubReference{matches: []refdb.Match{
		{Recording: refdb.Recording{ID: 7, Title: "First Avenue 1983", RecordingDate: "1983-08-03", Venue: "First Avenue"}, Similarity: 0.8},
	}}

	collector := NewCollector(fp, md, ref, nil, Settings{}, nil, WithSleeper(noSleep))
	candidates := collector.Collect(context.Background(), testDescriptor())

	kinds := map[SourceKind]int{}
	for _, cand := range candidates {
		kinds[cand.Kind]++
	}
	if kinds[SourceFingerprint] != 1 {
		t.Errorf("expected 1 fingerprint candidate, got %d", kinds[SourceFingerprint])
	}
	if kinds[SourceMetadataService] != 1 {
		t.Errorf("expected 1 metadata candidate, got %d", kinds[SourceMetadataService])
	}
	if kinds[SourceReferenceDB] != 1 {
		t.Errorf("expected 1 reference candidate, got %d", kinds[SourceReferenceDB])
	}
	if kinds[SourceFileTags] != 1 {
		t.Errorf("expected 1 file-tags candidate, got %d", kinds[SourceFileTags])
	}
	if kinds[SourceFilename] != 1 {
		t.Errorf("expected 1 filename candidate, got %d", kinds[SourceFilename])
	}

	if ref.query != "Purple Rain" {
		t.Errorf("expected reference query from TITLE tag, got %q", ref.query)
	}
}

func TestCollectFingerprintRetryOnce(t *testing.T) {
	fp := &stubFingerprint{
		errs:    []error{errors.New("transient")},
		matches: []acoustid.Match{{AcoustID: "aid-1", Score: 0.9}},
	}
	collector := NewCollector(fp, nil, nil, nil, Settings{}, nil, WithSleeper(noSleep))

	candidates := collector.Collect(context.Background(), testDescriptor())
	if fp.calls != 2 {
		t.Errorf("expected 2 fingerprint calls, got %d", fp.calls)
	}
	found := false
	for _, cand := range candidates {
		if cand.Kind == SourceFingerprint {
			found = true
		}
	}
	if !found {
		t.Error("expected fingerprint candidate after retry")
	}
}

func TestCollectFingerprintDegradesAfterTwoFailures(t *testing.T) {
	fp := &stubFingerprint{errs: []error{errors.New("down"), errors.New("down")}}
	collector := NewCollector(fp, nil, nil, nil, Settings{}, nil, WithSleeper(noSleep))

	candidates := collector.Collect(context.Background(), testDescriptor())
	if fp.calls != 2 {
		t.Errorf("expected exactly 2 fingerprint calls, got %d", fp.calls)
	}
	for _, cand := range candidates {
		if cand.Kind == SourceFingerprint || cand.Kind == SourceMetadataService {
			t.Errorf("expected no remote candidates, got %v", cand.Kind)
		}
	}
	// File tags and filename still synthesized.
	if len(candidates) == 0 {
		t.Fatal("expected local candidates despite remote failure")
	}
}

func TestCollectMetadataLookupCap(t *testing.T) {
	fp := &stubFingerprint{matches: []acoustid.Match{
		{AcoustID: "aid-1", Score: 0.9, RecordingIDs: []string{"a", "b", "c", "d", "e", "f", "g"}},
	}}
	md := &stubMetadata{recordings: map[string]*musicbrainz.Recording{}}
	collector := NewCollector(fp, md, nil, nil, Settings{MaxMetadataLookups: 3}, nil, WithSleeper(noSleep))

	collector.Collect(context.Background(), testDescriptor())
	if md.calls != 3 {
		t.Errorf("expected 3 metadata lookups, got %d", md.calls)
	}
}

func TestCollectMetadataPerIDDegrade(t *testing.T) {
	fp := &stubFingerprint{matches: []acoustid.Match{
		{AcoustID: "aid-1", Score: 0.9, RecordingIDs: []string{"bad", "mbid-1"}},
	}}
	md := &stubMetadata{recordings: map[string]*musicbrainz.Recording{
		"mbid-1": {ID: "mbid-1", Title: "Purple Rain", Artist: "Prince"},
	}}
	collector := NewCollector(fp, md, nil, nil, Settings{}, nil, WithSleeper(noSleep))

	candidates := collector.Collect(context.Background(), testDescriptor())
	count := 0
	for _, cand := range candidates {
		if cand.Kind == SourceMetadataService {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 metadata candidate after per-id degrade, got %d", count)
	}
}

func TestCollectReferenceFailureDegrades(t *testing.T) {
	ref := &stubReference{err: errors.New("db locked")}
	collector := NewCollector(nil, nil, ref, nil, Settings{}, nil, WithSleeper(noSleep))

	candidates := collector.Collect(context.Background(), testDescriptor())
	for _, cand := range candidates {
		if cand.Kind == SourceReferenceDB {
			t.Error("expected no reference candidates on db failure")
		}
	}
	if len(candidates) == 0 {
		t.Fatal("expected local candidates despite reference failure")
	}
}

func TestCollectReferenceDateVenueCorroboration(t *testing.T) {
	ref := &stubReference{
		matches: []refdb.Match{
			{Recording: refdb.Recording{ID: 7, Title: "First Avenue 1983"}, Similarity: 0.8},
		},
		dateMatches: []refdb.Match{
			{Recording: refdb.Recording{ID: 7, Title: "First Avenue 1983"}, Similarity: 1.0},
			{Recording: refdb.Recording{ID: 9, Title: "Soundcheck", RecordingDate: "1984"}, Similarity: 1.0},
		},
	}
	collector := NewCollector(nil, nil, ref, nil, Settings{}, nil, WithSleeper(noSleep))

	candidates := collector.Collect(context.Background(), testDescriptor())
	count := 0
	for _, cand := range candidates {
		if cand.Kind == SourceReferenceDB {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected title match plus deduplicated date match, got %d", count)
	}
	if ref.dateQuery != "1984" {
		t.Errorf("expected date query from DATE tag, got %q", ref.dateQuery)
	}
}

func TestCollectUsesCache(t *testing.T) {
	cache := respcache.New(filepath.Join(t.TempDir(), "cache.json"), nil)
	fp := &stubFingerprint{matches: []acoustid.Match{{AcoustID: "aid-1", Score: 0.9, RecordingIDs: []string{"mbid-1"}}}}
	md := &stubMetadata{recordings: map[string]*musicbrainz.Recording{
		"mbid-1": {ID: "mbid-1", Title: "Purple Rain", Artist: "Prince"},
	}}

	collector := NewCollector(fp, md, nil, cache, Settings{}, nil, WithSleeper(noSleep))
	collector.Collect(context.Background(), testDescriptor())
	collector.Collect(context.Background(), testDescriptor())

	if fp.calls != 1 {
		t.Errorf("expected second run to hit fingerprint cache, got %d calls", fp.calls)
	}
	if md.calls != 1 {
		t.Errorf("expected second run to hit metadata cache, got %d calls", md.calls)
	}
}

func TestFilenameCandidateParsesDate(t *testing.T) {
	desc := audiofile.NewDescriptorForTest("/in/1983-08-03 First Avenue.flac", 296, nil)
	collector := NewCollector(nil, nil, nil, nil, Settings{}, nil)

	candidates := collector.Collect(context.Background(), desc)
	var filename *Candidate
	for i := range candidates {
		if candidates[i].Kind == SourceFilename {
			filename = &candidates[i]
		}
	}
	if filename == nil {
		t.Fatal("expected filename candidate")
	}
	if filename.RecordingDate != "1983-08-03" {
		t.Errorf("unexpected date: %q", filename.RecordingDate)
	}
	if filename.Title != "First Avenue" {
		t.Errorf("unexpected title: %q", filename.Title)
	}
}

func TestCollectZeroSources(t *testing.T) {
	desc := audiofile.NewDescriptorForTest("/in/x.flac", 10, nil)
	collector := NewCollector(nil, nil, nil, nil, Settings{}, nil)

	candidates := collector.Collect(context.Background(), desc)
	// Filename still yields a candidate; only a fully empty descriptor gives none.
	for _, cand := range candidates {
		if cand.Kind != SourceFilename {
			t.Errorf("unexpected candidate kind %v", cand.Kind)
		}
	}
}
