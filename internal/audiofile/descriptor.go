package audiofile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.senan.xyz/taglib"
)

// SupportedExtensions lists the audio container formats the pipeline accepts.
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
}

// Descriptor is an immutable snapshot of one input audio file, created once at
// pipeline entry and never mutated afterwards.
type Descriptor struct {
	Path            string
	RawFilename     string // stem without extension
	Extension       string
	FileSize        int64
	DurationSeconds int
	Bitrate         int
	SampleRate      int
	Channels        int
	tags            map[string]string
}

// IsSupported reports whether the file extension is a supported audio format.
func IsSupported(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Describe reads technical properties and tags from an audio file and returns
// the immutable descriptor the rest of the pipeline operates on.
func Describe(path string) (*Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !SupportedExtensions[ext] {
		return nil, fmt.Errorf("describe %s: unsupported format %q", path, ext)
	}

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return nil, fmt.Errorf("describe %s: read properties: %w", path, err)
	}
	rawTags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("describe %s: read tags: %w", path, err)
	}

	tags := make(map[string]string, len(rawTags))
	for key, values := range rawTags {
		if len(values) == 0 {
			continue
		}
		tags[strings.ToUpper(key)] = values[0]
	}

	return &Descriptor{
		Path:            path,
		RawFilename:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Extension:       ext,
		FileSize:        info.Size(),
		DurationSeconds: int(props.Length.Seconds()),
		Bitrate:         int(props.Bitrate),
		SampleRate:      int(props.SampleRate),
		Channels:        int(props.Channels),
		tags:            tags,
	}, nil
}

// Tag returns the value for a tag key, case-insensitively. The second return
// reports whether the tag exists.
func (d *Descriptor) Tag(key string) (string, bool) {
	value, ok := d.tags[strings.ToUpper(key)]
	return value, ok
}

// Tags returns a copy of the tag map so callers cannot mutate the descriptor.
func (d *Descriptor) Tags() map[string]string {
	out := make(map[string]string, len(d.tags))
	for key, value := range d.tags {
		out[key] = value
	}
	return out
}

// NewDescriptorForTest builds a descriptor without touching the filesystem.
// Production code always goes through Describe.
func NewDescriptorForTest(path string, durationSeconds int, tags map[string]string) *Descriptor {
	normalized := make(map[string]string, len(tags))
	for key, value := range tags {
		normalized[strings.ToUpper(key)] = value
	}
	return &Descriptor{
		Path:            path,
		RawFilename:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Extension:       strings.ToLower(filepath.Ext(path)),
		DurationSeconds: durationSeconds,
		tags:            normalized,
	}
}
