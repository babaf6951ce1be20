// Package musicbrainz looks up recording metadata by MusicBrainz id with the
// rate limiting the service's open-data policy requires.
package musicbrainz
