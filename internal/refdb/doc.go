// Package refdb reads the curated reference database of known circulating
// recordings. Title lookups are fuzzy: the query is folded and tokenized the
// same way as the stored titles and aliases, and results below the configured
// similarity threshold are dropped.
package refdb
