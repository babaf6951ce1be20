// Package logging wraps log/slog with the repository's standard construction
// options, typed attribute helpers, and field-name constants so every
// component logs the same keys for the same concepts.
package logging
