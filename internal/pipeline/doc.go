// Package pipeline orchestrates identification end to end: descriptor,
// evidence collection, fusion, arbitration, then human review and the apply
// gate. Batch mode overlaps collection across files but keeps review and
// apply strictly sequential.
package pipeline
