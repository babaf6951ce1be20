package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcoustID()
	c.normalizeMusicBrainz()
	c.normalizeRefDB()
	c.normalizeLLM()
	c.normalizeFusion()
	c.normalizeApply()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.QuarantineDir, err = expandPath(c.Paths.QuarantineDir); err != nil {
		return fmt.Errorf("paths.quarantine_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.RefDBPath, err = expandPath(c.Paths.RefDBPath); err != nil {
		return fmt.Errorf("paths.refdb_path: %w", err)
	}
	if c.Naming.RulesFile, err = expandPath(c.Naming.RulesFile); err != nil {
		return fmt.Errorf("naming.rules_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcoustID() {
	if key, ok := os.LookupEnv("ACOUSTID_API_KEY"); ok && strings.TrimSpace(c.AcoustID.APIKey) == "" {
		c.AcoustID.APIKey = strings.TrimSpace(key)
	}
	if strings.TrimSpace(c.AcoustID.BaseURL) == "" {
		c.AcoustID.BaseURL = defaultAcoustIDBaseURL
	}
	if strings.TrimSpace(c.AcoustID.FpcalcBinary) == "" {
		c.AcoustID.FpcalcBinary = defaultFpcalcBinary
	}
	if c.AcoustID.TimeoutSeconds <= 0 {
		c.AcoustID.TimeoutSeconds = defaultAcoustIDTimeoutSeconds
	}
}

func (c *Config) normalizeMusicBrainz() {
	if strings.TrimSpace(c.MusicBrainz.BaseURL) == "" {
		c.MusicBrainz.BaseURL = defaultMusicBrainzBaseURL
	}
	if strings.TrimSpace(c.MusicBrainz.UserAgent) == "" {
		c.MusicBrainz.UserAgent = defaultMusicBrainzUserAgent
	}
	if c.MusicBrainz.TimeoutSeconds <= 0 {
		c.MusicBrainz.TimeoutSeconds = defaultMusicBrainzTimeout
	}
	if c.MusicBrainz.MaxLookups <= 0 {
		c.MusicBrainz.MaxLookups = defaultMaxMetadataLookups
	}
	if c.MusicBrainz.RateLimitPerSecond <= 0 {
		c.MusicBrainz.RateLimitPerSecond = defaultMusicBrainzRateLimit
	}
}

func (c *Config) normalizeRefDB() {
	if c.RefDB.SimilarityThreshold <= 0 || c.RefDB.SimilarityThreshold >= 1 {
		c.RefDB.SimilarityThreshold = defaultRefDBSimilarityThreshold
	}
	if c.RefDB.MaxResults <= 0 {
		c.RefDB.MaxResults = defaultRefDBMaxResults
	}
}

func (c *Config) normalizeLLM() {
	if key, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(c.LLM.APIKey) == "" {
		c.LLM.APIKey = strings.TrimSpace(key)
	}
	c.LLM.Backend = strings.ToLower(strings.TrimSpace(c.LLM.Backend))
	if c.LLM.Backend == "" {
		c.LLM.Backend = defaultLLMBackend
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if strings.TrimSpace(c.LLM.Referer) == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	if strings.TrimSpace(c.LLM.Title) == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeFusion() {
	if c.Fusion.MinAutoScore < 0 {
		c.Fusion.MinAutoScore = defaultMinAutoScore
	}
	if c.Fusion.AlternateProximity <= 0 || c.Fusion.AlternateProximity >= 1 {
		c.Fusion.AlternateProximity = defaultAlternateProximity
	}
	if c.Fusion.DurationToleranceSecs <= 0 {
		c.Fusion.DurationToleranceSecs = defaultDurationToleranceSecs
	}
	if c.Fusion.DurationPenaltyFactor <= 0 || c.Fusion.DurationPenaltyFactor >= 1 {
		c.Fusion.DurationPenaltyFactor = defaultDurationPenaltyFactor
	}
	if c.Fusion.CorroborationTolerance <= 0 || c.Fusion.CorroborationTolerance > 1 {
		c.Fusion.CorroborationTolerance = defaultCorroborationTolerance
	}
}

func (c *Config) normalizeApply() {
	if strings.TrimSpace(c.Apply.FFmpegBinary) == "" {
		c.Apply.FFmpegBinary = defaultFFmpegBinary
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.CollectWorkers <= 0 {
		c.Batch.CollectWorkers = defaultCollectWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
