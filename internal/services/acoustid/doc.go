// Package acoustid fingerprints audio files with Chromaprint (fpcalc) and
// resolves the fingerprints against the AcoustID web service.
package acoustid
