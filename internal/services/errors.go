package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying every failure the pipeline can produce.
// Components wrap their errors with exactly one of these markers so outcomes
// can be derived with errors.Is instead of string matching.
var (
	// ErrSourceUnavailable marks a single evidence source failing; the
	// collector degrades to zero candidates from that source and continues.
	ErrSourceUnavailable = errors.New("evidence source unavailable")
	// ErrLowConfidence marks a fused decision below the auto threshold.
	ErrLowConfidence = errors.New("low confidence")
	// ErrSchemaViolation marks malformed normalizer output; the arbiter falls
	// back to the deterministic template.
	ErrSchemaViolation = errors.New("normalization schema violation")
	// ErrDuplicate marks a content-hash match at the destination.
	ErrDuplicate = errors.New("duplicate at destination")
	// ErrFilesystem marks a filesystem failure during apply; surfaced
	// verbatim, never retried.
	ErrFilesystem = errors.New("filesystem error")
	// ErrConfiguration marks a malformed configuration or naming-rules file;
	// fatal before any file is processed.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrSourceUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
