// Package fuse merges per-source identification candidates into one ranked
// decision. Scoring is weight times raw confidence with a duration-mismatch
// penalty; ties break on corroboration count, then a fixed source-kind order,
// so the ranking is total and stable.
package fuse
