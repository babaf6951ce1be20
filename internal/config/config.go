package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

//go:embed default_naming_rules.md
var defaultNamingRules string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir    string `toml:"library_dir"`
	LogDir        string `toml:"log_dir"`
	QuarantineDir string `toml:"quarantine_dir"`
	CacheDir      string `toml:"cache_dir"`
	RefDBPath     string `toml:"refdb_path"`
}

// Library contains configuration for the destination library structure.
// Category directories live directly under paths.library_dir.
type Library struct {
	LiveDir       string `toml:"live_dir"`
	OuttakesDir   string `toml:"outtakes_dir"`
	OfficialDir   string `toml:"official_dir"`
	UnofficialDir string `toml:"unofficial_dir"`
}

// AcoustID contains configuration for the acoustic fingerprint service.
type AcoustID struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	FpcalcBinary   string `toml:"fpcalc_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// MusicBrainz contains configuration for the metadata service.
type MusicBrainz struct {
	BaseURL            string `toml:"base_url"`
	UserAgent          string `toml:"user_agent"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	MaxLookups         int    `toml:"max_lookups"`
	RateLimitPerSecond int    `toml:"rate_limit_per_second"`
}

// RefDB contains configuration for the local reference database.
type RefDB struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MaxResults          int     `toml:"max_results"`
}

// LLM contains connection settings for the normalization collaborator.
type LLM struct {
	Backend        string `toml:"backend"` // "openrouter" or "rules"
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MemoizeBatch   bool   `toml:"memoize_batch"`
}

// Naming contains naming-rule configuration passed verbatim to the normalizer.
type Naming struct {
	RulesFile string `toml:"rules_file"`
}

// Fusion contains scoring thresholds for the evidence fuser and arbiter.
type Fusion struct {
	MinAutoScore           float64 `toml:"min_auto_score"`
	AlternateProximity     float64 `toml:"alternate_proximity"`
	DurationToleranceSecs  int     `toml:"duration_tolerance_seconds"`
	DurationPenaltyFactor  float64 `toml:"duration_penalty_factor"`
	CorroborationTolerance float64 `toml:"corroboration_tolerance"`
}

// Apply contains behavior settings for the apply gate.
type Apply struct {
	CopyPlace    bool     `toml:"copy_place"`
	FFmpegBinary string   `toml:"ffmpeg_binary"`
	KeepTags     []string `toml:"keep_tags"`
}

// Batch contains settings for directory batch runs.
type Batch struct {
	CollectWorkers int `toml:"collect_workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cratedig.
//
// Configuration sections by subsystem:
//   - Paths: library, log, quarantine, cache, and reference database locations
//   - Library: category subdirectories under the library root
//   - AcoustID: acoustic fingerprint lookups (fpcalc + web service)
//   - MusicBrainz: metadata-service lookups and rate limiting
//   - RefDB: fuzzy-match thresholds for the local reference database
//   - LLM: normalization collaborator connection settings
//   - Naming: free-text naming rules handed to the normalizer
//   - Fusion: cross-source scoring thresholds
//   - Apply: tag-only vs copy+place behavior and preserved custom tags
//   - Batch: batch-mode worker limits
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Library     Library     `toml:"library"`
	AcoustID    AcoustID    `toml:"acoustid"`
	MusicBrainz MusicBrainz `toml:"musicbrainz"`
	RefDB       RefDB       `toml:"refdb"`
	LLM         LLM         `toml:"llm"`
	Naming      Naming      `toml:"naming"`
	Fusion      Fusion      `toml:"fusion"`
	Apply       Apply       `toml:"apply"`
	Batch       Batch       `toml:"batch"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cratedig/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A validation failure
// aborts before the pipeline starts.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cratedig.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes to. The
// library directory is created best-effort so identification-only commands
// can run when external storage is unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	if strings.TrimSpace(c.Paths.QuarantineDir) != "" {
		if err := os.MkdirAll(c.Paths.QuarantineDir, 0o755); err != nil {
			return fmt.Errorf("create quarantine directory %q: %w", c.Paths.QuarantineDir, err)
		}
	}
	return nil
}

// Normalizer backend names accepted in llm.backend.
const (
	LLMBackendOpenRouter = "openrouter"
	LLMBackendRules      = "rules"
)

// ResponseCachePath is the on-disk location of the service response cache.
func (c *Config) ResponseCachePath() string {
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.CacheDir, "responses.json")
}

// LoadNamingRules returns the naming-rules text for the normalizer. Falls back
// to the embedded default rules when no rules file is configured or present.
func (c *Config) LoadNamingRules() (string, error) {
	path := strings.TrimSpace(c.Naming.RulesFile)
	if path == "" {
		return defaultNamingRules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultNamingRules, nil
		}
		return "", fmt.Errorf("read naming rules: %w", err)
	}
	return string(data), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
