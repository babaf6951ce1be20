// Package llm wraps the OpenRouter chat completion API used by the tag
// normalization collaborator. Requests are JSON-only with bounded retry and
// backoff; responses are decoded tolerantly because model output sometimes
// arrives wrapped in code fences or prose.
package llm
