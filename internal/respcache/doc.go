// Package respcache persists raw service responses on disk so repeated runs
// over the same files do not re-query AcoustID, MusicBrainz, or the LLM
// backend. Entries are keyed by a digest of service name plus request text
// and never expire automatically.
package respcache
