package testsupport

import (
	"path/filepath"
	"testing"

	"cratedig/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The normalizer defaults to the deterministic rules backend so tests never
// need credentials.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfg := &cfgVal
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.QuarantineDir = filepath.Join(base, "quarantine")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.LLM.Backend = config.LLMBackendRules

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     cfg,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRefDBPath points the config at a reference database file.
func WithRefDBPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.RefDBPath = path
	}
}

// WithLLMBackend overrides the normalizer backend on the test config.
func WithLLMBackend(backend, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.Backend = backend
		b.cfg.LLM.APIKey = apiKey
	}
}

// WithMinAutoScore sets the proposal threshold on the test config.
func WithMinAutoScore(score float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fusion.MinAutoScore = score
	}
}
