package evidence

import "strings"

// SourceKind identifies which evidence source produced a candidate. It never
// changes after the candidate is created.
type SourceKind string

const (
	SourceFingerprint     SourceKind = "fingerprint"
	SourceMetadataService SourceKind = "metadata-service"
	SourceReferenceDB     SourceKind = "reference-db"
	SourceFileTags        SourceKind = "file-tags"
	SourceFilename        SourceKind = "filename"
)

// SourceType classifies the recording lineage of a bootleg.
type SourceType string

const (
	SourceTypeUnknown SourceType = ""
	SourceTypeSBD     SourceType = "SBD"
	SourceTypeAUD     SourceType = "AUD"
	SourceTypeFM      SourceType = "FM"
	SourceTypeTV      SourceType = "TV"
	SourceTypePRO     SourceType = "PRO"
	SourceTypeMatrix  SourceType = "MATRIX"
	SourceTypeVinyl   SourceType = "VINYL"
	SourceTypeCD      SourceType = "CD"
	SourceTypeDAT     SourceType = "DAT"
)

var sourceTypes = map[string]SourceType{
	"SBD":    SourceTypeSBD,
	"AUD":    SourceTypeAUD,
	"FM":     SourceTypeFM,
	"TV":     SourceTypeTV,
	"PRO":    SourceTypePRO,
	"MATRIX": SourceTypeMatrix,
	"VINYL":  SourceTypeVinyl,
	"CD":     SourceTypeCD,
	"DAT":    SourceTypeDAT,
}

// ParseSourceType maps free-text lineage codes onto the enum. Unrecognized
// values map to unknown rather than erroring; lineage is advisory evidence.
func ParseSourceType(value string) SourceType {
	if st, ok := sourceTypes[strings.ToUpper(strings.TrimSpace(value))]; ok {
		return st
	}
	return SourceTypeUnknown
}

// ValidSourceType reports whether value names a known lineage code. The empty
// string is valid and means unknown.
func ValidSourceType(value string) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}
	_, ok := sourceTypes[strings.ToUpper(strings.TrimSpace(value))]
	return ok
}

// Candidate is one identification hypothesis from one evidence source.
// Immutable once produced by the collector. RawConfidence is on the source's
// own scale and is not comparable across source kinds without fusion
// weighting.
type Candidate struct {
	Kind            SourceKind
	Title           string
	Artist          string
	RecordingDate   string // ISO-8601 or year-only, empty when unknown
	City            string
	Venue           string
	SourceType      SourceType
	Album           string
	TrackNumber     string
	DurationSeconds int // implied duration, 0 when unknown
	ExternalIDs     map[string]string
	RawConfidence   float64
	Notes           string
	VarianceNote    bool // reference db flagged a known speed/pitch variance
}
