// Package audiofile reads technical properties and existing tags from audio
// containers into an immutable Descriptor, the pipeline's per-file entry
// record. Tag access is case-insensitive because ID3 and Vorbis conventions
// disagree on key casing.
package audiofile
