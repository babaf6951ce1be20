package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Any error here halts the run
// before the pipeline processes a single file.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateFusion(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	for name, dir := range map[string]string{
		"library.live_dir":       c.Library.LiveDir,
		"library.outtakes_dir":   c.Library.OuttakesDir,
		"library.official_dir":   c.Library.OfficialDir,
		"library.unofficial_dir": c.Library.UnofficialDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s must be set", name)
		}
		if strings.ContainsAny(dir, "/\\") {
			return fmt.Errorf("%s must be a single directory name, got %q", name, dir)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Backend {
	case "openrouter":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/cratedig/config.toml"
			}
			return fmt.Errorf("llm.api_key is required for the openrouter backend. Set OPENROUTER_API_KEY or edit %s (create with 'cratedig config init')", defaultPath)
		}
	case "rules":
		// Deterministic backend needs no credentials.
	default:
		return fmt.Errorf("llm.backend must be \"openrouter\" or \"rules\", got %q", c.LLM.Backend)
	}
	return nil
}

func (c *Config) validateFusion() error {
	if c.Fusion.MinAutoScore < 0 || c.Fusion.MinAutoScore > 1 {
		return errors.New("fusion.min_auto_score must be between 0 and 1")
	}
	if c.RefDB.SimilarityThreshold < 0 || c.RefDB.SimilarityThreshold > 1 {
		return errors.New("refdb.similarity_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"acoustid.timeout_seconds":    c.AcoustID.TimeoutSeconds,
		"musicbrainz.timeout_seconds": c.MusicBrainz.TimeoutSeconds,
		"musicbrainz.max_lookups":     c.MusicBrainz.MaxLookups,
		"llm.timeout_seconds":         c.LLM.TimeoutSeconds,
		"batch.collect_workers":       c.Batch.CollectWorkers,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
