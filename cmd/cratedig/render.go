package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"cratedig/internal/arbiter"
	"cratedig/internal/audiofile"
	"cratedig/internal/pipeline"
)

var proposalTagOrder = []string{"TITLE", "ARTIST", "ALBUM", "DATE", "CITY", "VENUE", "SOURCE"}

func renderProposal(result pipeline.FileResult) string {
	proposal := result.Proposal
	if proposal == nil {
		return ""
	}

	headers := []string{"Field", "Primary"}
	for i := range proposal.Alternates {
		headers = append(headers, fmt.Sprintf("Alternate %d", i+1))
	}

	outcomes := append([]arbiter.Normalized{proposal.Primary}, proposal.Alternates...)
	var rows [][]string
	for _, key := range proposalTagOrder {
		row := []string{key}
		any := false
		for _, outcome := range outcomes {
			value := outcome.Tags[key]
			if value != "" {
				any = true
			}
			row = append(row, value)
		}
		if any {
			rows = append(rows, row)
		}
	}

	destRow := []string{"Destination"}
	nameRow := []string{"Filename"}
	confRow := []string{"Confidence"}
	for _, outcome := range outcomes {
		destRow = append(destRow, outcome.DestinationDir)
		nameRow = append(nameRow, outcome.Filename)
		confRow = append(confRow, fmt.Sprintf("%.2f", outcome.Confidence))
	}
	rows = append(rows, destRow, nameRow, confRow)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", filepath.Base(result.Path))
	fmt.Fprintf(&b, "Status: %s", proposal.Status)
	if proposal.Fallback {
		b.WriteString(" (normalizer output rejected, deterministic template shown)")
	}
	b.WriteString("\n")
	if proposal.Rationale != "" {
		fmt.Fprintf(&b, "Rationale: %s\n", proposal.Rationale)
	}
	b.WriteString(renderTable(headers, rows, nil))
	b.WriteString("\n")
	return b.String()
}

func renderDescriptor(desc *audiofile.Descriptor) string {
	rows := [][]string{
		{"Path", desc.Path},
		{"Format", strings.TrimPrefix(desc.Extension, ".")},
		{"Duration", fmt.Sprintf("%ds", desc.DurationSeconds)},
		{"Bitrate", fmt.Sprintf("%d kbps", desc.Bitrate)},
		{"Sample rate", fmt.Sprintf("%d Hz", desc.SampleRate)},
		{"Channels", fmt.Sprintf("%d", desc.Channels)},
		{"Size", fmt.Sprintf("%d bytes", desc.FileSize)},
	}
	tagTable := renderTagMap(desc.Tags())
	out := renderPairs("Property", "Value", rows)
	if tagTable != "" {
		out += "\n" + tagTable
	}
	return out
}

func renderTagMap(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	var rows [][]string
	for _, key := range proposalTagOrder {
		if value, ok := tags[key]; ok {
			rows = append(rows, []string{key, value})
			delete(tags, key)
		}
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		rows = append(rows, []string{key, tags[key]})
	}
	return renderPairs("Tag", "Value", rows)
}
