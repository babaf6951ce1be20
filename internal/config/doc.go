// Package config loads, validates, and normalizes cratedig configuration.
//
// Configuration is a single TOML file (default ~/.config/cratedig/config.toml,
// or ./cratedig.toml for project-local runs). Load applies defaults, expands
// paths, and validates; a malformed configuration is fatal before any file is
// processed. The resulting Config is immutable by convention and passed by
// reference through the pipeline rather than read as ambient state.
package config
