// Package textutil provides text processing utilities for title matching and
// filename sanitization.
//
// The primary use cases are:
//   - Creating token-based fingerprints from song titles for fuzzy comparison
//   - Computing cosine similarity between fingerprints
//   - Sanitizing destination filenames and path segments per the library's
//     restricted character set
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// Tokenization folds diacritics, lowercases, and splits on non-alphanumeric
// characters. Short tokens are kept because bootleg titles are often short
// ("1999", "Head").
package textutil
