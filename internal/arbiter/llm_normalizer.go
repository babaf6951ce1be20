package arbiter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cratedig/internal/services/llm"
)

const normalizerSystemPrompt = `You identify bootleg and live music recordings. You receive technical file context, existing tags, and identification candidates from several evidence sources, plus naming rules. Respond with a single JSON object with exactly these keys: title, artist, album, date, city, venue, source, category, confidence, rationale. Use ISO-8601 dates (year-only allowed). source is one of SBD, AUD, FM, TV, PRO, MATRIX, VINYL, CD, DAT, or empty when unknown. category is one of live, outtakes, official, unofficial. confidence is a number between 0 and 1. Field values are leaf names: never include path separators. Do not invent facts absent from the evidence.`

// LLMCompleter is the chat-completion surface the LLM normalizer needs.
type LLMCompleter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// LLMBacked delegates normalization to a chat-completion backend. Its output
// is untrusted; the arbiter validates it before use.
type LLMBacked struct {
	completer LLMCompleter
}

var _ Normalizer = (*LLMBacked)(nil)

// NewLLMBacked wraps a completion client as a Normalizer.
func NewLLMBacked(completer *llm.Client) *LLMBacked {
	return &LLMBacked{completer: completer}
}

// NewLLMBackedFromCompleter is the test seam for stub completers.
func NewLLMBackedFromCompleter(completer LLMCompleter) *LLMBacked {
	return &LLMBacked{completer: completer}
}

// Normalize builds the structured prompt, calls the backend, and decodes the
// JSON reply. Decode failures surface as errors so the arbiter can fall back.
func (n *LLMBacked) Normalize(ctx context.Context, input NormalizeInput) (*NormalizeOutput, error) {
	prompt, err := BuildPrompt(input)
	if err != nil {
		return nil, err
	}

	content, err := n.completer.CompleteJSON(ctx, normalizerSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm normalize: %w", err)
	}

	var out NormalizeOutput
	if err := llm.DecodeLLMJSON(content, &out); err != nil {
		return nil, fmt.Errorf("llm normalize: decode response: %w", err)
	}
	return &out, nil
}

type promptCandidate struct {
	Source       string            `json:"source_kind"`
	Rank         int               `json:"rank"`
	Score        float64           `json:"score"`
	Title        string            `json:"title,omitempty"`
	Artist       string            `json:"artist,omitempty"`
	Date         string            `json:"date,omitempty"`
	City         string            `json:"city,omitempty"`
	Venue        string            `json:"venue,omitempty"`
	SourceType   string            `json:"source_type,omitempty"`
	Album        string            `json:"album,omitempty"`
	Duration     int               `json:"duration_seconds,omitempty"`
	ExternalIDs  map[string]string `json:"external_ids,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	VarianceNote bool              `json:"variance_note,omitempty"`
}

type promptPayload struct {
	Filename        string            `json:"filename"`
	DurationSeconds int               `json:"duration_seconds"`
	ExistingTags    map[string]string `json:"existing_tags"`
	Candidates      []promptCandidate `json:"candidates"`
}

// BuildPrompt serializes the full ranked candidate list, the descriptor
// context, and the naming rules into the user prompt. The serialization is
// deterministic, which also makes it the memoization key.
func BuildPrompt(input NormalizeInput) (string, error) {
	if input.Descriptor == nil {
		return "", fmt.Errorf("build prompt: descriptor required")
	}

	payload := promptPayload{
		Filename:        input.Descriptor.RawFilename + input.Descriptor.Extension,
		DurationSeconds: input.Descriptor.DurationSeconds,
		ExistingTags:    input.Descriptor.Tags(),
	}
	for i, ranked := range input.Ranked {
		cand := ranked.Candidate
		payload.Candidates = append(payload.Candidates, promptCandidate{
			Source:       string(cand.Kind),
			Rank:         i + 1,
			Score:        ranked.Score,
			Title:        cand.Title,
			Artist:       cand.Artist,
			Date:         cand.RecordingDate,
			City:         cand.City,
			Venue:        cand.Venue,
			SourceType:   string(cand.SourceType),
			Album:        cand.Album,
			Duration:     cand.DurationSeconds,
			ExternalIDs:  cand.ExternalIDs,
			Notes:        cand.Notes,
			VarianceNote: cand.VarianceNote,
		})
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("build prompt: marshal context: %w", err)
	}

	var b strings.Builder
	b.WriteString("Naming rules:\n")
	b.WriteString(strings.TrimSpace(input.NamingRules))
	b.WriteString("\n\nFile context and identification candidates:\n")
	b.Write(encoded)
	b.WriteString("\nReturn the JSON decision object.")
	return b.String(), nil
}
