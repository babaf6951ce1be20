package applygate

import (
	"fmt"

	"go.senan.xyz/taglib"
)

// TagWriter replaces the tag block of an audio file with the given map.
type TagWriter interface {
	WriteTags(path string, tags map[string]string) error
}

// TaglibWriter writes tags through taglib, clearing the existing block so
// stale fields from the old identification do not linger.
type TaglibWriter struct{}

// WriteTags implements TagWriter.
func (TaglibWriter) WriteTags(path string, tags map[string]string) error {
	expanded := make(map[string][]string, len(tags))
	for key, value := range tags {
		expanded[key] = []string{value}
	}
	if err := taglib.WriteTags(path, expanded, taglib.Clear); err != nil {
		return fmt.Errorf("write tags to %s: %w", path, err)
	}
	return nil
}
