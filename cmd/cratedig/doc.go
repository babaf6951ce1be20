// Command cratedig identifies, normalizes, and retags bootleg audio
// recordings. Identification fuses acoustic fingerprinting, metadata-service
// lookups, a local reference database, and existing tag and filename
// evidence; nothing is written without explicit per-file approval.
package main
