package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"cratedig/internal/testsupport"
)

func TestBuildWithRulesBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	p, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p == nil {
		t.Fatal("expected pipeline")
	}
}

func TestBuildMissingRefDBDegrades(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithRefDBPath(filepath.Join(t.TempDir(), "missing.sqlite")))

	if _, err := Build(cfg, nil); err != nil {
		t.Fatalf("expected missing refdb to degrade, got %v", err)
	}
}

func TestProcessMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result := p.Process(context.Background(), filepath.Join(t.TempDir(), "missing.flac"))
	if result.Err == nil {
		t.Fatal("expected error for missing input file")
	}
	if result.CorrelationID == "" {
		t.Error("expected correlation id even on failure")
	}
}
