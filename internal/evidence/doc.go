// Package evidence gathers identification hypotheses for one audio file from
// every available source: acoustic fingerprint, metadata service, local
// reference database, existing tags, and the filename itself. Each source
// failing degrades to zero candidates from that source; collection never
// aborts a file.
package evidence
