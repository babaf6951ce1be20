// Package applygate commits human-approved proposals. Before any write it
// hashes the decoded audio stream and refuses to place content that already
// exists at the destination. Tag-only applies are atomic from the caller's
// view; copy-and-place never modifies the source file.
package applygate
