// Package arbiter turns ranked identification evidence into a reviewable
// proposal: final tag values, a destination inside the library, and up to two
// alternates. Normalization is delegated to a pluggable collaborator whose
// output is validated strictly; an invalid reply falls back to a
// deterministic template rather than ever producing nothing.
package arbiter
