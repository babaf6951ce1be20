package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"cratedig/internal/arbiter"
	"cratedig/internal/audiofile"
	"cratedig/internal/config"
	"cratedig/internal/evidence"
	"cratedig/internal/fuse"
	"cratedig/internal/logging"
	"cratedig/internal/refdb"
	"cratedig/internal/respcache"
	"cratedig/internal/services/acoustid"
	"cratedig/internal/services/llm"
	"cratedig/internal/services/musicbrainz"
)

// FileResult is the outcome of identifying one file: a proposal awaiting
// human review, or the error that stopped this file. Errors are contained to
// the file; they never abort a batch.
type FileResult struct {
	Path          string
	CorrelationID string
	Descriptor    *audiofile.Descriptor
	Proposal      *arbiter.Proposal
	Err           error
}

// Pipeline runs the identification stages for single files:
// describe, collect, fuse, decide.
type Pipeline struct {
	collector *evidence.Collector
	fuser     *fuse.Fuser
	arbiter   *arbiter.Arbiter
	logger    *slog.Logger
}

// New assembles a pipeline from its stages.
func New(collector *evidence.Collector, fuser *fuse.Fuser, arb *arbiter.Arbiter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		collector: collector,
		fuser:     fuser,
		arbiter:   arb,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Build wires a pipeline from configuration: fingerprint and metadata
// clients, reference database, response cache, and the configured normalizer
// backend. Missing optional pieces degrade that evidence source rather than
// failing.
func Build(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var fingerprint evidence.FingerprintService
	if cfg.AcoustID.APIKey != "" {
		fingerprint = acoustid.NewClient(acoustid.Config{
			APIKey:         cfg.AcoustID.APIKey,
			BaseURL:        cfg.AcoustID.BaseURL,
			FpcalcBinary:   cfg.AcoustID.FpcalcBinary,
			TimeoutSeconds: cfg.AcoustID.TimeoutSeconds,
		})
	}

	metadata := musicbrainz.NewClient(musicbrainz.Config{
		BaseURL:            cfg.MusicBrainz.BaseURL,
		UserAgent:          cfg.MusicBrainz.UserAgent,
		TimeoutSeconds:     cfg.MusicBrainz.TimeoutSeconds,
		RateLimitPerSecond: cfg.MusicBrainz.RateLimitPerSecond,
	})

	var reference evidence.ReferenceSearch
	if cfg.Paths.RefDBPath != "" {
		store, err := refdb.Open(cfg.Paths.RefDBPath)
		if err != nil {
			logger.Warn("reference database unavailable",
				logging.String("path", cfg.Paths.RefDBPath),
				logging.Error(err))
		} else {
			reference = store
		}
	}

	cache := respcache.New(cfg.ResponseCachePath(), logger)

	collector := evidence.NewCollector(fingerprint, metadata, reference, cache, evidence.Settings{
		MaxMetadataLookups:  cfg.MusicBrainz.MaxLookups,
		SimilarityThreshold: cfg.RefDB.SimilarityThreshold,
		MaxReferenceResults: cfg.RefDB.MaxResults,
	}, logger)

	fuser := fuse.New(fuse.Settings{
		DurationToleranceSecs:  cfg.Fusion.DurationToleranceSecs,
		DurationPenaltyFactor:  cfg.Fusion.DurationPenaltyFactor,
		CorroborationTolerance: cfg.Fusion.CorroborationTolerance,
	})

	rules, err := cfg.LoadNamingRules()
	if err != nil {
		return nil, fmt.Errorf("load naming rules: %w", err)
	}

	var normalizer arbiter.Normalizer
	switch cfg.LLM.Backend {
	case config.LLMBackendRules:
		normalizer = arbiter.RuleBased{}
	default:
		normalizer = arbiter.NewLLMBacked(llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}))
	}

	arb := arbiter.New(normalizer, rules, arbiter.Settings{
		MinAutoScore:       cfg.Fusion.MinAutoScore,
		AlternateProximity: cfg.Fusion.AlternateProximity,
		CategoryDirs: map[string]string{
			arbiter.CategoryLive:       cfg.Library.LiveDir,
			arbiter.CategoryOuttakes:   cfg.Library.OuttakesDir,
			arbiter.CategoryOfficial:   cfg.Library.OfficialDir,
			arbiter.CategoryUnofficial: cfg.Library.UnofficialDir,
		},
		MemoizeBatch: cfg.LLM.MemoizeBatch,
	}, logger)

	return New(collector, fuser, arb, logger), nil
}

// Process identifies one file. Exactly one fused decision per file per run.
func (p *Pipeline) Process(ctx context.Context, path string) FileResult {
	result := FileResult{Path: path, CorrelationID: uuid.NewString()}
	log := p.logger.With(logging.String(logging.FieldCorrelationID, result.CorrelationID))

	if _, err := os.Stat(path); err != nil {
		result.Err = fmt.Errorf("input file: %w", err)
		return result
	}

	desc, err := audiofile.Describe(path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Descriptor = desc

	candidates := p.collector.Collect(ctx, desc)
	decision := p.fuser.Fuse(desc, candidates)
	result.Proposal = p.arbiter.Decide(ctx, desc, decision)

	log.Info("proposal ready",
		logging.String(logging.FieldFile, path),
		logging.String("status", string(result.Proposal.Status)),
		logging.Int("candidates", len(candidates)),
		logging.Float64("confidence", result.Proposal.Confidence))
	return result
}
